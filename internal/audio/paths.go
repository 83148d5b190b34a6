package audio

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/satriahrh/lingualoop/domain"
)

// Supported pause lengths, in seconds.
const (
	MinPause = 3
	MaxPause = 10
)

// VoiceDir is the directory holding one clip per phrase for a lesson, language
// and voice.
func VoiceDir(baseDir, lessonName, languageTag, voice string) string {
	return filepath.Join(baseDir, lessonName, languageTag, voice)
}

// ClipPath is the path of a phrase clip inside a voice directory. Clips are
// named by phrase id with no extension.
func ClipPath(voiceDir string, phraseID int64) string {
	return filepath.Join(voiceDir, strconv.FormatInt(phraseID, 10))
}

// PauseDir holds the pre-generated silence files.
func PauseDir(baseDir string) string {
	return filepath.Join(baseDir, "pause")
}

// PausePath returns the silence file for a pause length.
func PausePath(baseDir string, seconds int) (string, error) {
	if seconds < MinPause || seconds > MaxPause {
		return "", fmt.Errorf("%w: %d seconds, want %d..%d", domain.ErrInvalidPauseDuration, seconds, MinPause, MaxPause)
	}
	return filepath.Join(PauseDir(baseDir), fmt.Sprintf("%dSecondsOfSilence.wav", seconds)), nil
}

// GeneratePauses writes every supported pause file under baseDir.
func GeneratePauses(baseDir string) ([]string, error) {
	if err := mkdirAll(PauseDir(baseDir)); err != nil {
		return nil, err
	}
	var written []string
	for n := MinPause; n <= MaxPause; n++ {
		path, _ := PausePath(baseDir, n)
		if err := WriteSilence(path, n); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
