package breach

import (
	"bufio"
	"strconv"
	"strings"
)

// matchSuffix scans a range response ("SUFFIX:COUNT" per line) for suffix
// and returns its count. Padding lines carry count 0 and are never matches.
func matchSuffix(body, suffix string) int64 {
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		s, c, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(s), suffix) {
			continue
		}
		count, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil || count <= 0 {
			return 0
		}
		return count
	}
	return 0
}
