// Package player resolves the display name and age used for leaderboard attribution.
package player

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

const (
	// DefaultName is used when no profile or stored name is available.
	DefaultName = "Player"
	// MaxNameRunes bounds stored and displayed names.
	MaxNameRunes = 24
	maxAge       = 130
)

// ErrInvalidName is returned when a name is empty after sanitising.
var ErrInvalidName = errors.New("player name must contain at least one visible character")

// Source records where a resolved name came from.
type Source string

const (
	SourceAccount   Source = "account"
	SourceDirectory Source = "directory"
	SourceStored    Source = "stored"
	SourceDefault   Source = "default"
)

// Identity is what the request knows about the caller.
type Identity struct {
	ProfileID string
	Email     string
	Name      string
	Age       *int
}

// Profile is the resolved player.
type Profile struct {
	ProfileID string `json:"profileId"`
	Name      string `json:"name"`
	Age       *int   `json:"age,omitempty"`
	Source    Source `json:"source"`
}

// SanitizeName trims, drops control characters, collapses runs of whitespace and caps the
// length at MaxNameRunes. ok is false when nothing visible remains.
func SanitizeName(raw string) (string, bool) {
	var b strings.Builder
	runes := 0
	space := false
	for _, r := range strings.TrimSpace(raw) {
		if runes == MaxNameRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && runes > 0 {
			b.WriteRune(' ')
			runes++
			if runes == MaxNameRunes {
				break
			}
		}
		space = false
		b.WriteRune(r)
		runes++
	}
	out := strings.TrimSpace(b.String())
	return out, out != ""
}

// SanitizeAge converts a numeric age into a plausible whole number of years. NaN, negative,
// zero and absurd values are dropped.
func SanitizeAge(raw float64) *int {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 || raw > maxAge {
		return nil
	}
	age := int(math.Floor(raw))
	if age <= 0 {
		return nil
	}
	return &age
}
