// Package config loads runtime configuration for guardctl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. GOPHGUARD_-prefixed environment variables, shared with the server.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-r string     k-anonymity range endpoint
//	-t duration   per-call timeout
//	-d string     PostgreSQL DSN (unlock only)
//	-a string     address:port of the server (ping, export)
//
// # JSON schema
//
//	{
//	  "hibp_range_url": "https://api.pwnedpasswords.com/range",
//	  "breach_timeout": "3s",
//	  "database_dsn": "postgres://..."
//	}
package config
