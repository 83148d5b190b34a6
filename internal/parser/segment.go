package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
)

const (
	// Lines with this many words or fewer are dropped.
	minWords = 3
	// Lines with at least this many words are split at punctuation.
	splitWords = 8
	// Fragments with more words than this stand alone.
	fragmentWords = 4

	clauseDelimiters   = "!.?"
	fragmentDelimiters = "!.?,;"
)

var (
	numericLine   = regexp.MustCompile(`^\d+$`)
	bracketCue    = regexp.MustCompile(`^\[.*\]$`)
	markupTag     = regexp.MustCompile(`<[^>]*>`)
	bracketed     = regexp.MustCompile(`\[[^\]]*\]`)
	braced        = regexp.MustCompile(`\{[^}]*\}`)
	dialogueDash  = regexp.MustCompile(`(^|\s)-+`)
	decorativeSet = strings.NewReplacer(
		"♪", "", "♫", "", "♬", "", "♩", "",
		"\"", "", "“", "", "”", "", "„", "",
		"–", " ", "—", " ",
	)
)

// Result is the outcome of segmenting one document.
type Result struct {
	Format Format
	// Phrases holds the accepted phrases in document order.
	Phrases []string
	// TooLong holds phrases longer than entities.MaxPhraseLength.
	TooLong []string
	// Skipped counts lines dropped for having too few words.
	Skipped int
}

// Parse detects the format of r and segments it.
func Parse(r io.ReadSeeker) (*Result, error) {
	format, err := DetectFormat(r)
	if err != nil {
		return nil, err
	}
	return Segment(r, format)
}

// Segment reads r as the given format and turns it into phrases.
func Segment(r io.Reader, format Format) (*Result, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil stream", domain.ErrInvalidInput)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", domain.ErrInvalidInput, err)
	}
	text := string(data)

	var lines []string
	switch format {
	case FormatSrt:
		lines = srtLines(text)
	case FormatParagraph:
		lines = paragraphClauses(text)
	case FormatOnePhrasePerLine:
		lines = phraseLines(text)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", domain.ErrInvalidFormat, format)
	}

	result := &Result{Format: format}
	for _, line := range lines {
		phrases := SplitLongPhrase(line)
		if phrases == nil {
			result.Skipped++
			continue
		}
		for _, phrase := range phrases {
			if utf8.RuneCountInString(phrase) > entities.MaxPhraseLength {
				result.TooLong = append(result.TooLong, phrase)
				continue
			}
			result.Phrases = append(result.Phrases, phrase)
		}
	}
	return result, nil
}

// SplitLongPhrase turns one extracted line into phrases. Lines of three
// words or fewer return nil. Lines under eight words are returned as they
// are. Longer lines are split after punctuation and the fragments merged
// greedily, left to right: a fragment over four words stands alone, a
// shorter one absorbs the next fragment (and one more if still short), and a
// short final fragment is appended to the previous phrase.
func SplitLongPhrase(line string) []string {
	w := wordCount(line)
	if w <= minWords {
		return nil
	}
	if w < splitWords {
		return []string{line}
	}

	var fragments []string
	for _, f := range splitAfter(line, fragmentDelimiters) {
		f = strings.TrimSpace(f)
		if f == "" || f == "." {
			continue
		}
		fragments = append(fragments, f)
	}

	var phrases []string
	for i := 0; i < len(fragments); {
		current := fragments[i]
		i++
		if wordCount(current) > fragmentWords {
			phrases = append(phrases, current)
			continue
		}
		if i < len(fragments) {
			current += " " + fragments[i]
			i++
			if wordCount(current) <= fragmentWords && i < len(fragments) {
				current += " " + fragments[i]
				i++
			}
			phrases = append(phrases, current)
			continue
		}
		if len(phrases) > 0 {
			phrases[len(phrases)-1] += " " + current
			continue
		}
		phrases = append(phrases, current)
	}

	for i, p := range phrases {
		phrases[i] = collapseSpaces(p)
	}
	return phrases
}

// srtLines extracts caption text, joining two-line captions.
func srtLines(text string) []string {
	raw := splitLines(text)
	var lines []string
	for i := 0; i < len(raw); i++ {
		line := strings.TrimSpace(raw[i])
		if skipSrtLine(line) {
			continue
		}
		if i+1 < len(raw) {
			next := strings.TrimSpace(raw[i+1])
			if !skipSrtLine(next) {
				line += " " + next
				i++
			}
		}
		if cleaned := cleanCaption(line); cleaned != "" {
			lines = append(lines, cleaned)
		}
	}
	return lines
}

func skipSrtLine(line string) bool {
	switch {
	case line == "":
		return true
	case numericLine.MatchString(line):
		return true
	case bracketCue.MatchString(line):
		return true
	case strings.Contains(line, "-->"):
		return true
	case markupTag.MatchString(line):
		return true
	}
	return false
}

// cleanCaption strips bracketed, braced and tagged content, note glyphs,
// dialogue dashes and quotes.
func cleanCaption(line string) string {
	line = bracketed.ReplaceAllString(line, " ")
	line = braced.ReplaceAllString(line, " ")
	line = markupTag.ReplaceAllString(line, " ")
	line = decorativeSet.Replace(line)
	line = dialogueDash.ReplaceAllString(line, "$1")
	return collapseSpaces(line)
}

// paragraphClauses splits prose after sentence punctuation.
func paragraphClauses(text string) []string {
	text = strings.Join(splitLines(text), " ")
	var clauses []string
	for _, clause := range splitAfter(text, clauseDelimiters) {
		clause = collapseSpaces(clause)
		if clause == "" || clause == "." {
			continue
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

func phraseLines(text string) []string {
	var lines []string
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitAfter cuts s after every rune found in delimiters.
func splitAfter(s, delimiters string) []string {
	var parts []string
	start := 0
	for i, r := range s {
		if strings.ContainsRune(delimiters, r) {
			end := i + utf8.RuneLen(r)
			parts = append(parts, s[start:end])
			start = end
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
