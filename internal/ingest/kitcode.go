package ingest

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoKitMatch      = errors.New("item number is not a kit code")
	ErrEmptyItemNumber = errors.New("item number is empty")
)

// FP[RS|PM] is a character class (one of R S | P M), not an alternation.
// It matches what historical feeds were imported with and must not change silently.
var kitCodeRe = regexp.MustCompile(`^EZ(?:C5E|C6|C6A|RD6|FP[RS|PM](?:6A|5E|6))\d{2,3}Q(\d{2,3})-\d{2}$`)

// MatchKitCode returns the pack multiplier encoded in a kit item number,
// e.g. EZC5E12Q06-01 -> 6.
func MatchKitCode(itemNumber string) (int, error) {
	if strings.TrimSpace(itemNumber) == "" {
		return 0, ErrEmptyItemNumber
	}
	m := kitCodeRe.FindStringSubmatch(itemNumber)
	if m == nil {
		return 0, ErrNoKitMatch
	}
	// at most three digits, cannot overflow
	n, _ := strconv.Atoi(m[1])
	if n == 0 {
		// a zero pack would shrink the quantity
		return 0, ErrNoKitMatch
	}
	return n, nil
}
