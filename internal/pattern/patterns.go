package pattern

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/lingualoop/domain"
)

//go:embed patterns.yaml
var defaultPatterns []byte

type patternFile struct {
	Patterns map[string][]int `yaml:"patterns"`
}

// Patterns is an immutable set of named token lists. Build it once at
// startup and share it; nothing mutates it afterwards.
type Patterns struct {
	byName map[string][]Token
}

// Default returns the built-in pattern set.
func Default() (*Patterns, error) {
	return Load(bytes.NewReader(defaultPatterns))
}

// LoadFile reads a pattern set from a YAML file. An empty path selects the
// built-in set.
func LoadFile(path string) (*Patterns, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patterns file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML pattern set. Every token is validated up front.
func Load(r io.Reader) (*Patterns, error) {
	var file patternFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("decode patterns: no patterns defined")
	}

	p := &Patterns{byName: make(map[string][]Token, len(file.Patterns))}
	for name, raw := range file.Patterns {
		tokens := make([]Token, 0, len(raw))
		for i, value := range raw {
			token, err := Decode(strconv.Itoa(value))
			if err != nil {
				return nil, fmt.Errorf("pattern %q token %d: %w", name, i, err)
			}
			tokens = append(tokens, token)
		}
		p.byName[name] = tokens
	}
	return p, nil
}

// Get returns a copy of the named pattern's tokens.
func (p *Patterns) Get(name string) ([]Token, error) {
	tokens, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrPatternNotFound, name)
	}
	out := make([]Token, len(tokens))
	copy(out, tokens)
	return out, nil
}

// Names lists the pattern names in alphabetical order.
func (p *Patterns) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
