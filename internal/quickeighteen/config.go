package quickeighteen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config is Quick18's slice of a course's provider configuration blob. Each
// course lives on its own subdomain, e.g. https://pinevalley.quick18.com.
// BaseURL, when set, replaces the subdomain-derived URL for staging endpoints.
type Config struct {
	Subdomain string `json:"subdomain"`
	BaseURL   string `json:"baseUrl"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CourseID  string `json:"courseId"`
}

func parseConfig(raw json.RawMessage) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("quickeighteen: parse provider configuration: %w", err)
	}
	cfg.Subdomain = strings.TrimSpace(cfg.Subdomain)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Subdomain == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("quickeighteen: provider configuration missing subdomain")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("quickeighteen: provider configuration missing credentials")
	}
	return &cfg, nil
}

func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.quick18.com", c.Subdomain)
}
