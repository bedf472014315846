// Package strength scores password quality. Score is pure and deterministic:
// the same password always yields the same Report.
package strength

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Level is a coarse password quality bucket.
type Level string

const (
	LevelWeak      Level = "weak"
	LevelMedium    Level = "medium"
	LevelStrong    Level = "strong"
	LevelExcellent Level = "excellent"
)

// Report is the outcome of scoring one password.
type Report struct {
	Score    int      `json:"score"`
	Level    Level    `json:"level"`
	Feedback []string `json:"feedback"`
}

const (
	weightLower  = 15
	weightUpper  = 15
	weightDigit  = 15
	weightSymbol = 20
	uniqueBonus  = 5

	penaltyCommon   = 20
	penaltyRepeat   = 15
	penaltySequence = 10

	uniqueRatioThreshold = 0.7
)

// lengthTiers is ordered from the longest requirement down; the first match wins.
var lengthTiers = []struct {
	min    int
	points int
}{
	{16, 30},
	{12, 25},
	{8, 15},
}

// levels is ordered by descending floor so that every score maps to exactly
// one level. The last floor must stay 0.
var levels = []struct {
	floor int
	level Level
}{
	{85, LevelExcellent},
	{70, LevelStrong},
	{50, LevelMedium},
	{0, LevelWeak},
}

var commonFragments = []string{
	"password", "passwd", "123456", "12345678", "qwerty", "azerty", "letmein",
	"welcome", "admin", "iloveyou", "monkey", "dragon", "football", "baseball",
	"master", "sunshine", "princess", "abc123", "111111", "login", "trustno1",
}

// Score rates password on a 0..100 scale.
func Score(password string) Report {
	var (
		score    int
		feedback []string
	)

	runes := decodeRunes(password)
	n := len(runes)

	tierPoints := 0
	for _, t := range lengthTiers {
		if n >= t.min {
			tierPoints = t.points
			break
		}
	}
	if tierPoints == 0 {
		feedback = append(feedback, "Use at least 8 characters")
	}
	score += tierPoints

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	classes := []struct {
		present bool
		points  int
		hint    string
	}{
		{hasLower, weightLower, "Add lowercase letters"},
		{hasUpper, weightUpper, "Add uppercase letters"},
		{hasDigit, weightDigit, "Add digits"},
		{hasSymbol, weightSymbol, "Add symbols"},
	}
	for _, c := range classes {
		if c.present {
			score += c.points
		} else {
			feedback = append(feedback, c.hint)
		}
	}

	if n > 0 && float64(uniqueCount(runes))/float64(n) > uniqueRatioThreshold {
		score += uniqueBonus
	}

	if containsCommonFragment(password) {
		score -= penaltyCommon
		feedback = append(feedback, "Avoid common words and patterns")
	}
	if hasRepeatRun(runes, 3) {
		score -= penaltyRepeat
		feedback = append(feedback, "Avoid repeating the same character")
	}
	if hasSequence(runes, 3) {
		score -= penaltySequence
		feedback = append(feedback, "Avoid sequences like abc or 321")
	}

	score = clamp(score, 0, 100)

	return Report{Score: score, Level: LevelFor(score), Feedback: feedback}
}

// LevelFor maps a score to its level.
func LevelFor(score int) Level {
	for _, l := range levels {
		if score >= l.floor {
			return l.level
		}
	}
	return LevelWeak
}

// invalidByteBase maps each byte of an invalid UTF-8 sequence into the
// supplementary private use area, so distinct bytes stay distinct and
// count as symbols.
const invalidByteBase = 0x10FF00

// decodeRunes decodes password like []rune but keeps invalid bytes by value
// instead of folding them all into U+FFFD.
func decodeRunes(password string) []rune {
	runes := make([]rune, 0, len(password))
	for i := 0; i < len(password); {
		r, size := utf8.DecodeRuneInString(password[i:])
		if r == utf8.RuneError && size == 1 {
			r = invalidByteBase + rune(password[i])
		}
		runes = append(runes, r)
		i += size
	}
	return runes
}

func uniqueCount(runes []rune) int {
	seen := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func containsCommonFragment(password string) bool {
	lower := strings.ToLower(password)
	for _, f := range commonFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func hasRepeatRun(runes []rune, length int) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= length {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// hasSequence reports ascending or descending runs of consecutive code
// points among letters and digits, case-insensitive ("abc", "CBA", "789").
func hasSequence(runes []rune, length int) bool {
	if len(runes) < length {
		return false
	}
	lower := []rune(strings.ToLower(string(runes)))
	for i := 0; i+length <= len(lower); i++ {
		asc, desc := true, true
		for j := 1; j < length; j++ {
			prev, cur := lower[i+j-1], lower[i+j]
			if !isAlnum(prev) || !isAlnum(cur) {
				asc, desc = false, false
				break
			}
			if cur-prev != 1 {
				asc = false
			}
			if prev-cur != 1 {
				desc = false
			}
		}
		if asc || desc {
			return true
		}
	}
	return false
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
