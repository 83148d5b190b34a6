// Package parser classifies uploaded text and segments it into phrases.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/satriahrh/lingualoop/domain"
)

// Format is the detected layout of an uploaded text.
type Format string

const (
	FormatSrt              Format = "srt"
	FormatOnePhrasePerLine Format = "one_phrase_per_line"
	FormatParagraph        Format = "paragraph"
)

const (
	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize = 64 * 1024

	srtProbeLines     = 15
	phraseLineMinimum = 3
	phraseLineMaxAvg  = 80
)

var timestampPattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3}`)

// CheckSize rejects uploads larger than MaxUploadSize.
func CheckSize(size int64) error {
	if size > MaxUploadSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrInputTooLarge, size, MaxUploadSize)
	}
	return nil
}

// DetectFormat classifies r. A subtitle timestamp within the first 15 lines
// means Srt; otherwise more than three lines averaging under 80 characters
// means OnePhrasePerLine, and anything else is Paragraph. r is rewound to the
// start before returning.
func DetectFormat(r io.ReadSeeker) (Format, error) {
	if r == nil {
		return "", fmt.Errorf("%w: nil stream", domain.ErrInvalidInput)
	}
	if err := rewind(r); err != nil {
		return "", err
	}

	isSrt, err := probeSrt(r)
	if err != nil {
		return "", err
	}
	if err := rewind(r); err != nil {
		return "", err
	}
	if isSrt {
		return FormatSrt, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: read: %v", domain.ErrInvalidInput, err)
	}
	if err := rewind(r); err != nil {
		return "", err
	}

	lines := nonBlankLines(string(data))
	if len(lines) == 0 {
		return FormatParagraph, nil
	}
	total := 0
	for _, line := range lines {
		total += utf8.RuneCountInString(line)
	}
	average := total / len(lines)
	if len(lines) > phraseLineMinimum && average < phraseLineMaxAvg {
		return FormatOnePhrasePerLine, nil
	}
	return FormatParagraph, nil
}

func probeSrt(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)
	for i := 0; i < srtProbeLines; i++ {
		line, err := br.ReadString('\n')
		if timestampPattern.MatchString(line) {
			return true, nil
		}
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: read: %v", domain.ErrInvalidInput, err)
		}
	}
	return false, nil
}

func rewind(r io.Seeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// splitLines splits on any line break and drops a leading byte order mark.
func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
