package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"

	"drummond-geometry/config"
	"drummond-geometry/internal/logging"
)

// Secrets holds the service credentials stored in Vault
type Secrets struct {
	DatabasePassword string
	RedisPassword    string
	JWTSecret        string
}

// secretReader is the subset of the Vault logical API used here
type secretReader interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client *api.Client
	reader secretReader
	config config.VaultConfig
	logger *logging.Logger
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig) (*Client, error) {
	c := &Client{config: cfg, logger: logging.WithComponent("vault")}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)
	c.client = client
	c.reader = client.Logical()
	return c, nil
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// ReadSecrets fetches the service secrets from the KV v2 secret path
func (c *Client) ReadSecrets(ctx context.Context) (*Secrets, error) {
	if !c.IsEnabled() {
		return &Secrets{}, nil
	}

	secret, err := c.reader.ReadWithContext(ctx, c.secretPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets from vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secrets at %s", c.secretPath())
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}

	return &Secrets{
		DatabasePassword: getString(data, "database_password"),
		RedisPassword:    getString(data, "redis_password"),
		JWTSecret:        getString(data, "jwt_secret"),
	}, nil
}

// Apply resolves secrets and writes every non-empty one into cfg
func (c *Client) Apply(ctx context.Context, cfg *config.Config) error {
	if !c.IsEnabled() {
		return nil
	}
	s, err := c.ReadSecrets(ctx)
	if err != nil {
		return err
	}

	applied := 0
	if s.DatabasePassword != "" {
		cfg.DatabaseConfig.Password = s.DatabasePassword
		applied++
	}
	if s.RedisPassword != "" {
		cfg.RedisConfig.Password = s.RedisPassword
		applied++
	}
	if s.JWTSecret != "" {
		cfg.AuthConfig.JWTSecret = s.JWTSecret
		applied++
	}
	c.logger.Info("Secrets resolved from vault", "path", c.secretPath(), "applied", applied)
	return nil
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.IsEnabled() || c.client == nil {
		return nil
	}

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// secretPath returns the KV v2 data path for the service secrets
func (c *Client) secretPath() string {
	return fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
