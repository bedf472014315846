package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
	"github.com/dmitrijs2005/gophguard/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the timeout either as
// a string like "3s" or as integer nanoseconds.
type JsonConfig struct {
	RangeURL           string         `json:"hibp_range_url"`
	EmailURL           string         `json:"hibp_email_url"`
	APIKey             string         `json:"hibp_api_key"`
	FallbackEmailURL   string         `json:"fallback_email_url"`
	Timeout            timex.Duration `json:"breach_timeout"`
	MaxRetries         int            `json:"breach_max_retries"`
	DatabaseDSN        string         `json:"database_dsn"`
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
}

// parseJson overlays cfg with the JSON file named by -c or -config in args.
// Fields left out of the file keep their current value.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.RangeURL != "" {
		cfg.RangeURL = jc.RangeURL
	}
	if jc.EmailURL != "" {
		cfg.EmailURL = jc.EmailURL
	}
	if jc.APIKey != "" {
		cfg.APIKey = jc.APIKey
	}
	if jc.FallbackEmailURL != "" {
		cfg.FallbackEmailURL = jc.FallbackEmailURL
	}
	if jc.Timeout.Duration != 0 {
		cfg.Timeout = jc.Timeout.Duration
	}
	if jc.MaxRetries != 0 {
		cfg.MaxRetries = jc.MaxRetries
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	return nil
}
