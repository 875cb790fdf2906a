package cart

import "strings"

// Craft multiplier bounds.
const (
	MinMultiplier = 1
	MaxMultiplier = 100
)

// ClampMultiplier forces v into [MinMultiplier, MaxMultiplier].
func ClampMultiplier(v int) int {
	if v < MinMultiplier {
		return MinMultiplier
	}
	if v > MaxMultiplier {
		return MaxMultiplier
	}
	return v
}

// ParseMultiplier reads a multiplier typed into a numeric field. Leading
// whitespace and an optional sign are accepted, then digits are read until
// the first non-digit ("12x" is 12, "3.9" is 3). Input with no leading digits
// normalizes to MinMultiplier. The result is always clamped.
func ParseMultiplier(raw string) int {
	s := strings.TrimLeft(raw, " \t\r\n")
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		digits++
		if n <= MaxMultiplier {
			n = n*10 + int(r-'0')
		}
	}
	if digits == 0 || negative {
		return MinMultiplier
	}
	return ClampMultiplier(n)
}
