package password

import (
	"strings"
	"unicode"
)

// Violation identifies a single failed policy rule. The strings are stable
// and safe to surface to end users.
type Violation string

const (
	// ViolationTooShort is an exported constant or variable used by the authentication engine.
	ViolationTooShort Violation = "password must be at least 12 characters"
	// ViolationTooLong is an exported constant or variable used by the authentication engine.
	ViolationTooLong Violation = "password must be at most 128 characters"
	// ViolationNoUpper is an exported constant or variable used by the authentication engine.
	ViolationNoUpper Violation = "password must contain an uppercase letter"
	// ViolationNoLower is an exported constant or variable used by the authentication engine.
	ViolationNoLower Violation = "password must contain a lowercase letter"
	// ViolationNoDigit is an exported constant or variable used by the authentication engine.
	ViolationNoDigit Violation = "password must contain a digit"
	// ViolationNoSpecial is an exported constant or variable used by the authentication engine.
	ViolationNoSpecial Violation = "password must contain a special character"
	// ViolationCommon is an exported constant or variable used by the authentication engine.
	ViolationCommon Violation = "password is too common"
	// ViolationSequence is an exported constant or variable used by the authentication engine.
	ViolationSequence Violation = "password contains an ascending character sequence"
	// ViolationRepeat is an exported constant or variable used by the authentication engine.
	ViolationRepeat Violation = "password contains too many repeated characters"
)

// commonPasswords is the fixed deny list. Matching is case-insensitive.
var commonPasswords = map[string]struct{}{
	"password":      {},
	"password1":     {},
	"password123":   {},
	"123456":        {},
	"12345678":      {},
	"123456789":     {},
	"qwerty":        {},
	"qwerty123":     {},
	"letmein":       {},
	"welcome":       {},
	"welcome1":      {},
	"admin":         {},
	"administrator": {},
	"iloveyou":      {},
	"monkey":        {},
	"dragon":        {},
	"sunshine":      {},
	"princess":      {},
	"football":      {},
	"baseball":      {},
	"trustno1":      {},
	"superman":      {},
	"changeme":      {},
	"passw0rd":      {},
	"p@ssword":      {},
	"abc123":        {},
}

// Policy holds the tunable validation bounds. Zero values select defaults.
type Policy struct {
	MinLength int
	MaxLength int
	MaxRepeat int
}

// DefaultPolicy returns the documented default policy: 12–128 characters,
// at most 3 consecutive repeats of any single character.
func DefaultPolicy() Policy {
	return Policy{
		MinLength: 12,
		MaxLength: 128,
		MaxRepeat: 3,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MinLength <= 0 {
		p.MinLength = 12
	}
	if p.MaxLength <= 0 {
		p.MaxLength = 128
	}
	if p.MaxRepeat <= 0 {
		p.MaxRepeat = 3
	}
	return p
}

// Validate checks every policy rule and returns the full violation list so
// callers can display all failures at once. An empty result means the
// password is acceptable.
func (p Policy) Validate(plaintext string) []Violation {
	p = p.withDefaults()

	var violations []Violation

	runes := []rune(plaintext)
	if len(runes) < p.MinLength {
		violations = append(violations, ViolationTooShort)
	}
	if len(runes) > p.MaxLength {
		violations = append(violations, ViolationTooLong)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	if !hasUpper {
		violations = append(violations, ViolationNoUpper)
	}
	if !hasLower {
		violations = append(violations, ViolationNoLower)
	}
	if !hasDigit {
		violations = append(violations, ViolationNoDigit)
	}
	if !hasSpecial {
		violations = append(violations, ViolationNoSpecial)
	}

	if _, common := commonPasswords[strings.ToLower(plaintext)]; common {
		violations = append(violations, ViolationCommon)
	}
	if hasAscendingRun(runes) {
		violations = append(violations, ViolationSequence)
	}
	if hasRepeatRun(runes, p.MaxRepeat) {
		violations = append(violations, ViolationRepeat)
	}

	return violations
}

// Valid is a convenience wrapper over [Policy.Validate].
func (p Policy) Valid(plaintext string) bool {
	return len(p.Validate(plaintext)) == 0
}

// hasAscendingRun detects any three consecutive characters forming an
// ascending sequence, case-insensitively ("abc", "ABC", "123").
func hasAscendingRun(runes []rune) bool {
	for i := 0; i+2 < len(runes); i++ {
		a := unicode.ToLower(runes[i])
		b := unicode.ToLower(runes[i+1])
		c := unicode.ToLower(runes[i+2])
		if b == a+1 && c == b+1 {
			return true
		}
	}
	return false
}

// hasRepeatRun detects any run of a single character longer than maxRepeat.
func hasRepeatRun(runes []rune, maxRepeat int) bool {
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > maxRepeat {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
