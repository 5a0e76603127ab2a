package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"
	"luxegen-backend/internal/config"
)

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

type apiConfigRow struct {
	Provider string `json:"provider"`
	KeyValue string `json:"key_value"`
}

// SecretsClient reads provider API keys from the api_configs table through PostgREST.
type SecretsClient struct {
	client *supabase.Client
}

func NewSecretsClient(client *Client) *SecretsClient {
	return &SecretsClient{client: client.Supabase}
}

// GetSecret returns the key stored for provider, or "" when none is configured.
// Keys are looked up on every call so rotations apply to the next request.
func (s *SecretsClient) GetSecret(_ context.Context, provider string) (string, error) {
	var rows []apiConfigRow
	_, err := s.client.From("api_configs").
		Select("provider,key_value", "", false).
		Eq("provider", provider).
		ExecuteTo(&rows)
	if err != nil {
		return "", fmt.Errorf("failed to read api config %s: %w", provider, err)
	}

	for _, row := range rows {
		if row.Provider == provider {
			return strings.TrimSpace(row.KeyValue), nil
		}
	}
	return "", nil
}

type SecretSource interface {
	GetSecret(ctx context.Context, provider string) (string, error)
}

// SecretChain asks each source in order and returns the first non-empty key.
// A source error is only returned when no later source has the key.
type SecretChain []SecretSource

func (c SecretChain) GetSecret(ctx context.Context, provider string) (string, error) {
	var errs []error
	for _, src := range c {
		key, err := src.GetSecret(ctx, provider)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", errors.Join(errs...)
}
