// Package breach answers "has this secret or account appeared in a known
// breach?" against public breach directories.
//
// Password checks use the k-anonymity range protocol: only the first five
// hex characters of the password's SHA-1 leave the process, and the match
// against the returned suffixes happens locally. Email checks ask one or more
// breach-directory providers in order and normalize their answers into Record.
//
// The oracle never fails its callers. When every provider is unreachable the
// report comes back with Offline set.
package breach

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Severity classifies a breach by the number of exposed records.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

const (
	criticalRecords = 500_000_000
	highRecords     = 100_000_000
)

// SeverityFor maps a breach's record count to its severity.
func SeverityFor(recordCount int64) Severity {
	switch {
	case recordCount > criticalRecords:
		return SeverityCritical
	case recordCount > highRecords:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Record is one breach an account appeared in, normalized across providers.
type Record struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Domain      string   `json:"domain"`
	Date        string   `json:"date"`
	RecordCount int64    `json:"record_count"`
	DataClasses []string `json:"data_classes"`
	Severity    Severity `json:"severity"`
}

// PasswordReport is the outcome of a k-anonymity password lookup.
type PasswordReport struct {
	Exposed bool   `json:"exposed"`
	Count   int64  `json:"count"`
	Offline bool   `json:"offline"`
	Source  string `json:"source"`
}

// EmailReport is the outcome of an account lookup.
type EmailReport struct {
	Records []Record `json:"records"`
	Offline bool     `json:"offline"`
	Source  string   `json:"source"`
}

const (
	prefixLen = 5
	suffixLen = 35
)

// SplitHash returns the uppercase hex SHA-1 of password split into the
// 5-character prefix that may be sent upstream and the 35-character suffix
// that must not.
func SplitHash(password string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(password))
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:prefixLen], h[prefixLen:]
}

// normalizeEmail trims and lowercases an account identifier.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
