package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/audio"
)

// CompleteMarker names the file that records a fully synthesized voice
// directory. It holds the digest of the texts the clips were made from.
const CompleteMarker = ".complete"

// DefaultSynthesisLimit bounds concurrent synthesis calls for one voice.
const DefaultSynthesisLimit = 8

// Runs a caller joins before giving up on ones cancelled by other callers.
const maxSharedAttempts = 3

// SpeechService renders one clip per phrase for a lesson voice
type SpeechService struct {
	tts     repositories.TextToSpeech
	baseDir string
	limit   int
	group   singleflight.Group
	logger  *zap.Logger
}

// NewSpeechService creates a new speech service. A limit below one selects
// DefaultSynthesisLimit.
func NewSpeechService(tts repositories.TextToSpeech, baseDir string, limit int, logger *zap.Logger) *SpeechService {
	if limit < 1 {
		limit = DefaultSynthesisLimit
	}
	return &SpeechService{
		tts:     tts,
		baseDir: baseDir,
		limit:   limit,
		logger:  logger,
	}
}

// Synthesize makes sure the voice directory of lesson holds a clip for every
// translation and returns the directory. A directory whose marker matches the
// translations is reused without vendor calls. A marker for other texts
// clears the directory first. Concurrent calls for one directory share a
// single run; when that run is cancelled by its caller, waiters whose own
// context is still live start another run.
func (s *SpeechService) Synthesize(
	ctx context.Context,
	lesson *entities.Lesson,
	language *entities.Language,
	voice *entities.Voice,
	translations []*entities.Translation,
) (string, error) {
	dir := audio.VoiceDir(s.baseDir, lesson.Name, language.Tag, voice.ShortName)
	for attempt := 1; ; attempt++ {
		_, err, shared := s.group.Do(dir, func() (interface{}, error) {
			return nil, s.synthesize(ctx, dir, language, voice, translations)
		})
		if shared {
			s.logger.Debug("Synthesis shared", zap.String("dir", dir))
		}
		if err == nil {
			return dir, nil
		}
		if !shared || attempt >= maxSharedAttempts || ctx.Err() != nil || !errors.Is(err, domain.ErrCancelled) {
			return "", err
		}
		s.logger.Info("Shared synthesis cancelled by another caller, retrying",
			zap.String("dir", dir), zap.Int("attempt", attempt))
	}
}

func (s *SpeechService) synthesize(
	ctx context.Context,
	dir string,
	language *entities.Language,
	voice *entities.Voice,
	translations []*entities.Translation,
) error {
	digest := Digest(translations)
	marker := filepath.Join(dir, CompleteMarker)

	stored, err := os.ReadFile(marker)
	switch {
	case err == nil && bytes.Equal(bytes.TrimSpace(stored), digest):
		s.logger.Debug("Voice already synthesized", zap.String("dir", dir))
		return nil
	case err == nil:
		s.logger.Info("Translations changed, clearing voice", zap.String("dir", dir))
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read marker: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	var pending []*entities.Translation
	for _, t := range translations {
		if _, err := os.Stat(audio.ClipPath(dir, t.PhraseID)); err != nil {
			pending = append(pending, t)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, t := range pending {
		g.Go(func() error {
			req := repositories.SynthesisRequest{
				Text:        t.Text,
				Voice:       voice.ShortName,
				LanguageTag: language.Tag,
			}
			if err := s.tts.SynthesizeToFile(gctx, req, audio.ClipPath(dir, t.PhraseID)); err != nil {
				return fmt.Errorf("phrase %d: %w", t.PhraseID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Cancelled(ctx, err)
	}

	if err := os.WriteFile(marker, append(digest, '\n'), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	s.logger.Info("Voice synthesized",
		zap.String("dir", dir),
		zap.String("voice", voice.ShortName),
		zap.Int("synthesized", len(pending)),
		zap.Int("phrases", len(translations)))
	return nil
}

// Digest identifies the phrase texts a voice directory was rendered from.
func Digest(translations []*entities.Translation) []byte {
	h := xxhash.New()
	for _, t := range translations {
		h.WriteString(strconv.FormatInt(t.PhraseID, 10))
		h.WriteString("\x00")
		h.WriteString(t.Text)
		h.WriteString("\x00")
	}
	return strconv.AppendUint(nil, h.Sum64(), 16)
}
