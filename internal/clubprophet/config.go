package clubprophet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config is ClubProphet's slice of a course's provider configuration blob.
type Config struct {
	BaseURL      string `json:"baseUrl"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	ComponentID  string `json:"componentId"`
	CourseID     string `json:"courseId"`
	SiteID       string `json:"siteId"`
	TokenTTLMins int    `json:"tokenTtlMins"`
}

func parseConfig(raw json.RawMessage) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("clubprophet: parse provider configuration: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("clubprophet: provider configuration missing baseUrl")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("clubprophet: provider configuration missing client credentials")
	}
	if cfg.ComponentID == "" {
		return nil, fmt.Errorf("clubprophet: provider configuration missing componentId")
	}
	return &cfg, nil
}
