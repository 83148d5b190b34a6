// Package pattern decodes pattern tokens and holds the named interleaving
// patterns used to assemble lesson audio.
package pattern

import (
	"fmt"
	"strconv"

	"github.com/satriahrh/lingualoop/domain"
)

// Side selects which voice a token is spoken in.
type Side int

const (
	// SideTo is the target voice, encoded as a trailing 0.
	SideTo Side = iota
	// SideFrom is the native voice, encoded as any other trailing digit.
	SideFrom
)

func (s Side) String() string {
	if s == SideTo {
		return "to"
	}
	return "from"
}

// Token points at one phrase of a lesson, spoken by one side.
type Token struct {
	Ordinal int
	Side    Side
	// Digit is the encoded side digit, kept so Encode round-trips.
	Digit int
}

// Decode parses a decimal token: the last digit is the side and the leading
// digits are the 1-based phrase ordinal.
func Decode(s string) (Token, error) {
	if len(s) < 2 {
		return Token{}, fmt.Errorf("%w: %q is shorter than two digits", domain.ErrInvalidToken, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Token{}, fmt.Errorf("%w: %q is not a decimal number", domain.ErrInvalidToken, s)
		}
	}

	ordinal, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return Token{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidToken, s, err)
	}
	if ordinal < 1 {
		return Token{}, fmt.Errorf("%w: %q has ordinal %d", domain.ErrInvalidToken, s, ordinal)
	}

	digit := int(s[len(s)-1] - '0')
	side := SideFrom
	if digit == 0 {
		side = SideTo
	}
	return Token{Ordinal: ordinal, Side: side, Digit: digit}, nil
}

// Encode is the inverse of Decode.
func Encode(t Token) string {
	digit := t.Digit
	if t.Side == SideTo {
		digit = 0
	} else if digit == 0 {
		digit = 1
	}
	return strconv.Itoa(t.Ordinal) + strconv.Itoa(digit)
}
