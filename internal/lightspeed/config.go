package lightspeed

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config is Lightspeed Golf's slice of a course's provider configuration blob.
// SeedRefreshToken bootstraps the OAuth flow the first time; after that the
// rotated refresh token in the cache wins.
type Config struct {
	BaseURL          string `json:"baseUrl"`
	ClientID         string `json:"clientId"`
	ClientSecret     string `json:"clientSecret"`
	ClubID           string `json:"clubId"`
	SeedRefreshToken string `json:"refreshToken"`
	PaymentMethodID  string `json:"paymentMethodId"`
}

func parseConfig(raw json.RawMessage) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("lightspeed: parse provider configuration: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.lightspeedgolf.com"
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("lightspeed: provider configuration missing oauth client credentials")
	}
	if cfg.ClubID == "" {
		return nil, fmt.Errorf("lightspeed: provider configuration missing clubId")
	}
	return &cfg, nil
}
