package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
	"github.com/dmitrijs2005/gophguard/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. Fields left out of the file keep the value already in Config.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	MetricsAddr                  string         `json:"metrics_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	TokenIssuer                  string         `json:"token_issuer"`
	TokenAudience                string         `json:"token_audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	EncryptionKey                string         `json:"encryption_key"`
	LockoutThreshold             int            `json:"lockout_threshold"`
	LockoutDuration              timex.Duration `json:"lockout_duration"`
	HIBPRangeURL                 string         `json:"hibp_range_url"`
	HIBPEmailURL                 string         `json:"hibp_email_url"`
	HIBPAPIKey                   string         `json:"hibp_api_key"`
	FallbackEmailURL             string         `json:"fallback_email_url"`
	BreachTimeout                timex.Duration `json:"breach_timeout"`
	BreachMaxRetries             int            `json:"breach_max_retries"`
	RedisAddr                    string         `json:"redis_addr"`
	RangeCacheTTL                timex.Duration `json:"range_cache_ttl"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	OTLPEndpoint                 string         `json:"otlp_endpoint"`
	LogLevel                     string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config command-line flag. Without the flag nothing is loaded.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JSONConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config %s: %w", jsonConfigFile, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.TokenAudience, c.TokenAudience)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setInt(&config.LockoutThreshold, c.LockoutThreshold)
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	setString(&config.HIBPRangeURL, c.HIBPRangeURL)
	setString(&config.HIBPEmailURL, c.HIBPEmailURL)
	setString(&config.HIBPAPIKey, c.HIBPAPIKey)
	setString(&config.FallbackEmailURL, c.FallbackEmailURL)
	setDuration(&config.BreachTimeout, c.BreachTimeout)
	setInt(&config.BreachMaxRetries, c.BreachMaxRetries)
	setString(&config.RedisAddr, c.RedisAddr)
	setDuration(&config.RangeCacheTTL, c.RangeCacheTTL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.OTLPEndpoint, c.OTLPEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
