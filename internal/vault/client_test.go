package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/vault/api"

	"drummond-geometry/config"
	"drummond-geometry/internal/logging"
)

type fakeReader struct {
	path   string
	secret *api.Secret
	err    error
}

func (f *fakeReader) ReadWithContext(_ context.Context, path string) (*api.Secret, error) {
	f.path = path
	return f.secret, f.err
}

func newTestClient(reader secretReader) *Client {
	return &Client{
		reader: reader,
		config: config.VaultConfig{Enabled: true, MountPath: "secret", SecretPath: "drummond-geometry"},
		logger: logging.WithComponent("vault"),
	}
}

func TestApplyWritesSecrets(t *testing.T) {
	reader := &fakeReader{secret: &api.Secret{Data: map[string]interface{}{
		"data": map[string]interface{}{
			"database_password": "db-pass",
			"jwt_secret":        "signing-key",
		},
	}}}
	c := newTestClient(reader)
	if !c.IsEnabled() {
		t.Fatal("Expected enabled client")
	}

	cfg := config.Default()
	cfg.RedisConfig.Password = "keep-me"
	if err := c.Apply(context.Background(), cfg); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if reader.path != "secret/data/drummond-geometry" {
		t.Errorf("Unexpected secret path %q", reader.path)
	}
	if cfg.DatabaseConfig.Password != "db-pass" {
		t.Errorf("Expected database password from vault, got %q", cfg.DatabaseConfig.Password)
	}
	if cfg.AuthConfig.JWTSecret != "signing-key" {
		t.Errorf("Expected jwt secret from vault, got %q", cfg.AuthConfig.JWTSecret)
	}
	if cfg.RedisConfig.Password != "keep-me" {
		t.Errorf("Missing secret must not clear existing value, got %q", cfg.RedisConfig.Password)
	}
}

func TestReadSecretsErrors(t *testing.T) {
	tests := []struct {
		name   string
		reader *fakeReader
	}{
		{"read error", &fakeReader{err: errors.New("permission denied")}},
		{"missing secret", &fakeReader{}},
		{"bad format", &fakeReader{secret: &api.Secret{Data: map[string]interface{}{"data": "oops"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newTestClient(tt.reader).ReadSecrets(context.Background()); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	c, err := NewClient(config.VaultConfig{})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.IsEnabled() {
		t.Error("Expected disabled client")
	}
	cfg := config.Default()
	if err := c.Apply(context.Background(), cfg); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy disabled client, got %v", err)
	}
}
