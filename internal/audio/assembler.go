package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/internal/pattern"
)

// ChunkSize is the number of pattern tokens rendered into one output file.
const ChunkSize = 125

// Voice picks the clip directory for one side of the lesson.
type Voice struct {
	LanguageTag string
	ShortName   string
}

// AssembleRequest describes one lesson track to render.
type AssembleRequest struct {
	LessonName string
	// PhraseIDs maps 1-based phrase ordinals to phrase ids.
	PhraseIDs map[int]int64
	Pattern   string
	Pause     int
	To        Voice
	From      Voice
	OutputDir string
}

// Assembler renders lesson tracks from synthesized phrase clips.
type Assembler struct {
	baseDir  string
	patterns *pattern.Patterns
	logger   *zap.Logger
}

func NewAssembler(baseDir string, patterns *pattern.Patterns, logger *zap.Logger) *Assembler {
	return &Assembler{baseDir: baseDir, patterns: patterns, logger: logger}
}

// Assemble writes {LessonName}_{NN}.wav files into OutputDir and returns
// their paths in order. Chunks are numbered from 00. Rendering stops after
// the chunk that plays the last phrase of the lesson.
func (a *Assembler) Assemble(req AssembleRequest) ([]string, error) {
	pause, err := PausePath(a.baseDir, req.Pause)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(pause); err != nil {
		return nil, fmt.Errorf("pause file: %w", err)
	}
	tokens, err := a.patterns.Get(req.Pattern)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: pattern %q has no tokens", domain.ErrInvalidInput, req.Pattern)
	}
	if req.LessonName == "" {
		return nil, fmt.Errorf("%w: lesson name is required", domain.ErrInvalidInput)
	}
	if err := mkdirAll(req.OutputDir); err != nil {
		return nil, err
	}

	toDir := VoiceDir(a.baseDir, req.LessonName, req.To.LanguageTag, req.To.ShortName)
	fromDir := VoiceDir(a.baseDir, req.LessonName, req.From.LanguageTag, req.From.ShortName)
	lastOrdinal := len(req.PhraseIDs)

	var outputs []string
	for i := 0; i*ChunkSize < len(tokens); i++ {
		end := min((i+1)*ChunkSize, len(tokens))
		files := []string{pause}
		finished := false

		for _, tok := range tokens[i*ChunkSize : end] {
			id, ok := req.PhraseIDs[tok.Ordinal]
			if !ok {
				continue
			}
			dir := toDir
			if tok.Side == pattern.SideFrom {
				dir = fromDir
			}
			files = append(files, ClipPath(dir, id), pause)
			if tok.Ordinal == lastOrdinal {
				finished = true
			}
		}

		out := filepath.Join(req.OutputDir, fmt.Sprintf("%s_%02d.wav", req.LessonName, i))
		if err := Concat(out, files); err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
		a.logger.Debug("Chunk assembled",
			zap.String("lesson", req.LessonName),
			zap.String("file", out),
			zap.Int("clips", len(files)))

		if finished {
			break
		}
	}

	a.logger.Info("Lesson audio assembled",
		zap.String("lesson", req.LessonName),
		zap.String("pattern", req.Pattern),
		zap.Int("files", len(outputs)))
	return outputs, nil
}

func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
