package foreup

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config is ForeUp's slice of a course's provider configuration blob, parsed
// once at adapter construction.
type Config struct {
	BaseURL      string `json:"baseUrl"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	CourseID     string `json:"courseId"`
	BookingClass string `json:"bookingClass"`
	SaleItemID   string `json:"saleItemId"`
	TokenTTLMins int    `json:"tokenTtlMins"`
}

func parseConfig(raw json.RawMessage) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("foreup: parse provider configuration: %w", err)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://foreupsoftware.com/index.php"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("foreup: provider configuration missing credentials")
	}
	if cfg.CourseID == "" {
		return nil, fmt.Errorf("foreup: provider configuration missing courseId")
	}
	return &cfg, nil
}
