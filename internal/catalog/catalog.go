// Package catalog loads the supported languages and voices from a YAML seed
// file into a store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

type LanguageSeed struct {
	Name string `yaml:"name"`
	Tag  string `yaml:"tag"`
}

type VoiceSeed struct {
	ShortName   string `yaml:"short_name"`
	DisplayName string `yaml:"display_name,omitempty"`
	// Language is the tag of a language in the same file or store.
	Language string `yaml:"language"`
	Locale   string `yaml:"locale,omitempty"`
	Gender   string `yaml:"gender,omitempty"`
}

// Seed is the content of a catalog file
type Seed struct {
	Languages []LanguageSeed `yaml:"languages"`
	Voices    []VoiceSeed    `yaml:"voices"`
}

// Result counts what Apply created and what already existed.
type Result struct {
	LanguagesCreated int
	VoicesCreated    int
	Existing         int
}

// LoadFile reads a seed file
func LoadFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a seed and checks every entry, reporting all problems.
func Load(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	var errs error
	for i, l := range seed.Languages {
		lang := entities.Language{Name: l.Name, Tag: l.Tag}
		if err := lang.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("language %d: %w", i, err))
		}
	}
	for i, v := range seed.Voices {
		if v.ShortName == "" {
			errs = multierr.Append(errs, fmt.Errorf("voice %d: short name is required", i))
		}
		if v.Language == "" {
			errs = multierr.Append(errs, fmt.Errorf("voice %d (%s): language is required", i, v.ShortName))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return &seed, nil
}

// Apply creates the seed's languages, then its voices. Entries that already
// exist are left untouched, so a seed can be applied repeatedly.
func Apply(ctx context.Context, store repositories.Store, seed *Seed, logger *zap.Logger) (Result, error) {
	var result Result
	for _, l := range seed.Languages {
		lang := &entities.Language{Name: l.Name, Tag: l.Tag}
		err := store.Languages.Create(ctx, lang)
		switch {
		case err == nil:
			result.LanguagesCreated++
			logger.Info("Language created", zap.String("tag", lang.Tag))
		case errors.Is(err, domain.ErrDuplicateName):
			result.Existing++
		default:
			return result, fmt.Errorf("create language %s: %w", l.Tag, err)
		}
	}

	for _, v := range seed.Voices {
		if _, err := store.Voices.GetByShortName(ctx, v.ShortName); err == nil {
			result.Existing++
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return result, fmt.Errorf("look up voice %s: %w", v.ShortName, err)
		}

		lang, err := store.Languages.GetByTag(ctx, v.Language)
		if err != nil {
			return result, fmt.Errorf("voice %s: language %s: %w", v.ShortName, v.Language, err)
		}
		voice := &entities.Voice{
			ShortName:   v.ShortName,
			DisplayName: v.DisplayName,
			LanguageID:  lang.ID,
			Locale:      v.Locale,
			Gender:      v.Gender,
		}
		if err := store.Voices.Create(ctx, voice); err != nil {
			return result, fmt.Errorf("create voice %s: %w", v.ShortName, err)
		}
		result.VoicesCreated++
		logger.Info("Voice created",
			zap.String("voice", voice.ShortName),
			zap.String("language", lang.Tag))
	}
	return result, nil
}

// VendorVoice is a voice as listed by a speech vendor.
type VendorVoice struct {
	ID     string
	Name   string
	Labels map[string]string
}

// VoicesFromVendor turns vendor voices into seed entries for language,
// sorted by name. The vendor id becomes the short name.
func VoicesFromVendor(voices []VendorVoice, language string) []VoiceSeed {
	out := make([]VoiceSeed, 0, len(voices))
	for _, v := range voices {
		locale := language
		if accent := v.Labels["accent"]; accent != "" {
			locale = language + " (" + accent + ")"
		}
		out = append(out, VoiceSeed{
			ShortName:   v.ID,
			DisplayName: v.Name,
			Language:    language,
			Locale:      locale,
			Gender:      strings.ToLower(v.Labels["gender"]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out
}

// Write encodes seed as YAML
func Write(w io.Writer, seed *Seed) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seed); err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}
	return enc.Close()
}
