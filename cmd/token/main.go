package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"drummond-geometry/config"
	"drummond-geometry/internal/auth"
	"drummond-geometry/internal/vault"
)

func main() {
	godotenv.Load()

	clientID := flag.String("client", "", "client id the token is issued to")
	scopes := flag.String("scopes", "", "comma separated scopes")
	configPath := flag.String("config", "", "optional YAML or JSON config file")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to auth.access_token_duration)")
	flag.Parse()

	if *clientID == "" {
		fmt.Fprintln(os.Stderr, "usage: token -client NAME [-scopes a,b] [-ttl 24h] [-config config.yaml]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err == nil {
		err = vaultClient.Apply(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve secrets: %v\n", err)
		os.Exit(1)
	}

	duration := cfg.AuthConfig.AccessTokenDuration
	if *ttl > 0 {
		duration = *ttl
	}
	manager, err := auth.NewJWTManager(auth.Config{
		JWTSecret:           cfg.AuthConfig.JWTSecret,
		Issuer:              cfg.AuthConfig.Issuer,
		AccessTokenDuration: duration,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize auth: %v\n", err)
		os.Exit(1)
	}

	claims := auth.ClientClaims{ClientID: *clientID}
	for _, s := range strings.Split(*scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			claims.Scopes = append(claims.Scopes, s)
		}
	}

	resp, err := manager.IssueToken(claims)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
}
