package password

import (
	"math"
	"unicode"
)

// StrengthLevel buckets a strength score into a display label.
type StrengthLevel string

const (
	// LevelVeryWeak is an exported constant or variable used by the authentication engine.
	LevelVeryWeak StrengthLevel = "very_weak"
	// LevelWeak is an exported constant or variable used by the authentication engine.
	LevelWeak StrengthLevel = "weak"
	// LevelFair is an exported constant or variable used by the authentication engine.
	LevelFair StrengthLevel = "fair"
	// LevelGood is an exported constant or variable used by the authentication engine.
	LevelGood StrengthLevel = "good"
	// LevelExcellent is an exported constant or variable used by the authentication engine.
	LevelExcellent StrengthLevel = "excellent"
)

// StrengthResult is the outcome of [Strength]: a 0–100 score and its bucket.
type StrengthResult struct {
	Score int
	Level StrengthLevel
}

// Strength computes a weighted score from length tiers, character-class
// presence, and a Shannon-style entropy estimate (length × log2(charset
// size)). Buckets change at 30/50/70/85.
func Strength(plaintext string) StrengthResult {
	runes := []rune(plaintext)
	score := 0

	// Length tiers.
	switch n := len(runes); {
	case n >= 16:
		score += 30
	case n >= 12:
		score += 25
	case n >= 8:
		score += 15
	case n > 0:
		score += 5
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

	charset := 0
	if hasLower {
		score += 10
		charset += 26
	}
	if hasUpper {
		score += 10
		charset += 26
	}
	if hasDigit {
		score += 10
		charset += 10
	}
	if hasSpecial {
		score += 15
		charset += 32
	}

	// Entropy term: up to 25 points at ~90 bits.
	if charset > 0 && len(runes) > 0 {
		entropy := float64(len(runes)) * math.Log2(float64(charset))
		bonus := int(entropy / 90.0 * 25.0)
		if bonus > 25 {
			bonus = 25
		}
		score += bonus
	}

	if score > 100 {
		score = 100
	}

	return StrengthResult{Score: score, Level: levelFor(score)}
}

func levelFor(score int) StrengthLevel {
	switch {
	case score >= 85:
		return LevelExcellent
	case score >= 70:
		return LevelGood
	case score >= 50:
		return LevelFair
	case score >= 30:
		return LevelWeak
	default:
		return LevelVeryWeak
	}
}
