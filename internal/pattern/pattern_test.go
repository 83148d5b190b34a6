package pattern

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/satriahrh/lingualoop/domain"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		input    string
		expected Token
	}{
		{"1230", Token{Ordinal: 123, Side: SideTo, Digit: 0}},
		{"99", Token{Ordinal: 9, Side: SideFrom, Digit: 9}},
		{"11", Token{Ordinal: 1, Side: SideFrom, Digit: 1}},
		{"10", Token{Ordinal: 1, Side: SideTo, Digit: 0}},
	}

	for _, tt := range tests {
		got, err := Decode(tt.input)
		if err != nil {
			t.Errorf("Decode(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Decode(%q) = %+v, want %+v", tt.input, got, tt.expected)
		}
		if Encode(got) != tt.input {
			t.Errorf("Encode(Decode(%q)) = %q", tt.input, Encode(got))
		}
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, input := range []string{"", "7", "1a", "-10", "00", "01"} {
		if _, err := Decode(input); !errors.Is(err, domain.ErrInvalidToken) {
			t.Errorf("Decode(%q) expected ErrInvalidToken, got %v", input, err)
		}
	}
}

func TestLoad(t *testing.T) {
	yamlText := `
patterns:
  tiny: [11, 10, 21, 20]
  reverse: [20, 10]
`
	p, err := Load(strings.NewReader(yamlText))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tokens, err := p.Get("tiny")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	expected := []Token{
		{Ordinal: 1, Side: SideFrom, Digit: 1},
		{Ordinal: 1, Side: SideTo},
		{Ordinal: 2, Side: SideFrom, Digit: 1},
		{Ordinal: 2, Side: SideTo},
	}
	if diff := cmp.Diff(expected, tokens); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"reverse", "tiny"}, p.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	tokens[0].Ordinal = 99
	again, _ := p.Get("tiny")
	if again[0].Ordinal != 1 {
		t.Error("Get should return a copy")
	}
}

func TestLoad_InvalidToken(t *testing.T) {
	_, err := Load(strings.NewReader("patterns:\n  broken: [11, 5]\n"))
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestGet_Unknown(t *testing.T) {
	p, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if _, err := p.Get("nonexistent"); !errors.Is(err, domain.ErrPatternNotFound) {
		t.Errorf("Expected ErrPatternNotFound, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	p, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	for _, name := range []string{"standard", "intermediate", "advanced"} {
		tokens, err := p.Get(name)
		if err != nil {
			t.Errorf("Get(%q) error: %v", name, err)
			continue
		}
		if len(tokens) == 0 {
			t.Errorf("pattern %q is empty", name)
		}
	}

	standard, _ := p.Get("standard")
	if standard[0] != (Token{Ordinal: 1, Side: SideFrom, Digit: 1}) {
		t.Errorf("unexpected first standard token %+v", standard[0])
	}
}
