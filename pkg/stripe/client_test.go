package stripe

import (
	"context"
	"testing"

	"github.com/freshkit/freshkit-backend/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnv(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{name: "test key in test env", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec", Env: "test"}},
		{name: "restricted live key", cfg: config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec", Env: "LIVE"}},
		{name: "live key in test env", cfg: config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec", Env: "test"}, wantErr: true},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec", Env: "staging"}, wantErr: true},
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec"}, wantErr: true},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_123"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.SigningSecret() != "whsec" {
				t.Fatalf("unexpected signing secret %q", client.SigningSecret())
			}
		})
	}
}

func TestNilClientAccessors(t *testing.T) {
	var c *Client
	if c.SigningSecret() != "" || c.Environment() != "" || c.SuccessURL() != "" {
		t.Fatalf("nil client should return empty values")
	}
	if NewGateway(nil) != nil {
		t.Fatalf("nil client should produce nil gateway")
	}
}
