package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/archive"
	"github.com/satriahrh/lingualoop/internal/audio"
	"github.com/satriahrh/lingualoop/internal/pattern"
	"github.com/satriahrh/lingualoop/internal/pipeline"
)

// Steps of the audio pipeline, in order.
const (
	StepValidate       pipeline.StepID = "validate"
	StepTranslateFrom  pipeline.StepID = "translate-from"
	StepTranslateTo    pipeline.StepID = "translate-to"
	StepSynthesizeFrom pipeline.StepID = "synthesize-from"
	StepSynthesizeTo   pipeline.StepID = "synthesize-to"
	StepAssemble       pipeline.StepID = "assemble"
	StepPackage        pipeline.StepID = "package"
)

const generatePipeline = "generate-audio"

// GenerateRequest asks for a lesson rendered with two voices
type GenerateRequest struct {
	LessonID    int64  `json:"lesson_id"`
	FromVoiceID int64  `json:"from_voice_id"`
	ToVoiceID   int64  `json:"to_voice_id"`
	Pattern     string `json:"pattern"`
	Pause       int    `json:"pause"`
}

// GenerateResult is a finished lesson archive. Archive is open for reading
// and must be closed by the caller.
type GenerateResult struct {
	ArchivePath string
	Archive     *os.File
	Files       []string
	Run         *pipeline.Run
}

// generation carries the state passed between pipeline steps.
type generation struct {
	req       GenerateRequest
	lesson    *LessonPhrases
	fromVoice *entities.Voice
	toVoice   *entities.Voice
	fromLang  *entities.Language
	toLang    *entities.Language
	fromTexts []*entities.Translation
	toTexts   []*entities.Translation
	outDir    string
	files     []string
	archive   string
	opened    *os.File
	unlock    func()
}

// AudioService runs the lesson audio pipeline
type AudioService struct {
	store        repositories.Store
	languages    *LanguageCache
	translations *TranslationService
	speech       *SpeechService
	assembler    *audio.Assembler
	patterns     *pattern.Patterns
	runner       *pipeline.Runner
	baseDir      string
	outputDir    string
	outputLocks  sync.Map
	logger       *zap.Logger
}

// NewAudioService creates a new audio service
func NewAudioService(
	store repositories.Store,
	languages *LanguageCache,
	translations *TranslationService,
	speech *SpeechService,
	patterns *pattern.Patterns,
	baseDir string,
	outputDir string,
	logger *zap.Logger,
) *AudioService {
	return &AudioService{
		store:        store,
		languages:    languages,
		translations: translations,
		speech:       speech,
		assembler:    audio.NewAssembler(baseDir, patterns, logger),
		patterns:     patterns,
		runner:       pipeline.NewRunner(logger),
		baseDir:      baseDir,
		outputDir:    outputDir,
		logger:       logger,
	}
}

// Generate translates, synthesizes, assembles and packages a lesson. Work
// finished by earlier steps is kept when a later step fails.
func (s *AudioService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	g := &generation{req: req}
	defer func() {
		if g.unlock != nil {
			g.unlock()
		}
	}()

	run, err := s.runner.Run(ctx, generatePipeline,
		pipeline.NewStep(StepValidate, func(ctx context.Context) error {
			return s.validate(ctx, g)
		}),
		pipeline.NewStep(StepTranslateFrom, func(ctx context.Context) error {
			var err error
			g.fromTexts, err = s.translations.GetOrCreate(ctx, g.lesson.Lesson, g.lesson.Texts, g.lesson.Original, g.fromLang)
			return err
		}),
		pipeline.NewStep(StepTranslateTo, func(ctx context.Context) error {
			var err error
			g.toTexts, err = s.translations.GetOrCreate(ctx, g.lesson.Lesson, g.fromTexts, g.fromLang, g.toLang)
			return err
		}),
		pipeline.NewStep(StepSynthesizeFrom, func(ctx context.Context) error {
			_, err := s.speech.Synthesize(ctx, g.lesson.Lesson, g.fromLang, g.fromVoice, g.fromTexts)
			return err
		}),
		pipeline.NewStep(StepSynthesizeTo, func(ctx context.Context) error {
			_, err := s.speech.Synthesize(ctx, g.lesson.Lesson, g.toLang, g.toVoice, g.toTexts)
			return err
		}),
		pipeline.NewStep(StepAssemble, func(ctx context.Context) error {
			return s.assemble(g)
		}),
		pipeline.NewStep(StepPackage, func(ctx context.Context) error {
			return s.pack(g)
		}),
	)
	if err != nil {
		if g.opened != nil {
			g.opened.Close()
		}
		return &GenerateResult{Run: run}, err
	}

	if err := s.store.Lessons.IncrementPopularity(ctx, req.LessonID); err != nil {
		s.logger.Warn("Failed to increment popularity",
			zap.Int64("lessonID", req.LessonID),
			zap.Error(err))
	}

	return &GenerateResult{
		ArchivePath: g.archive,
		Archive:     g.opened,
		Files:       g.files,
		Run:         run,
	}, nil
}

// validate checks every request field and loads what later steps need,
// reporting all problems together.
func (s *AudioService) validate(ctx context.Context, g *generation) error {
	var errs error
	if _, err := audio.PausePath(s.baseDir, g.req.Pause); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := s.patterns.Get(g.req.Pattern); err != nil {
		errs = multierr.Append(errs, err)
	}

	var err error
	if g.fromVoice, g.fromLang, err = s.voice(ctx, "from", g.req.FromVoiceID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if g.toVoice, g.toLang, err = s.voice(ctx, "to", g.req.ToVoiceID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if g.lesson, err = s.translations.LoadLesson(ctx, g.req.LessonID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return errs
	}

	g.outDir = filepath.Join(s.outputDir, g.lesson.Lesson.Name, g.fromVoice.ShortName, g.toVoice.ShortName)
	return nil
}

func (s *AudioService) voice(ctx context.Context, side string, id int64) (*entities.Voice, *entities.Language, error) {
	if id == 0 {
		return nil, nil, fmt.Errorf("%w: %s voice is required", domain.ErrInvalidInput, side)
	}
	voice, err := s.store.Voices.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s voice: %w", side, err)
	}
	language, err := s.languages.GetByID(ctx, voice.LanguageID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s voice language: %w", side, err)
	}
	return voice, language, nil
}

// assemble renders the chunk files into a cleared output directory. The
// directory stays locked until the archive has been opened.
func (s *AudioService) assemble(g *generation) error {
	mu, _ := s.outputLocks.LoadOrStore(g.outDir, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	g.unlock = lock.Unlock

	if err := os.RemoveAll(g.outDir); err != nil {
		return fmt.Errorf("clear %s: %w", g.outDir, err)
	}
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", g.outDir, err)
	}

	files, err := s.assembler.Assemble(audio.AssembleRequest{
		LessonName: g.lesson.Lesson.Name,
		PhraseIDs:  g.lesson.PhraseIDs(),
		Pattern:    g.req.Pattern,
		Pause:      g.req.Pause,
		To:         audio.Voice{LanguageTag: g.toLang.Tag, ShortName: g.toVoice.ShortName},
		From:       audio.Voice{LanguageTag: g.fromLang.Tag, ShortName: g.fromVoice.ShortName},
		OutputDir:  g.outDir,
	})
	if err != nil {
		return err
	}
	g.files = files
	return nil
}

func (s *AudioService) pack(g *generation) error {
	name := fmt.Sprintf("%s_%s_%s.zip", g.lesson.Lesson.Name, g.fromLang.Tag, g.toLang.Tag)
	g.archive = filepath.Join(g.outDir, name)
	if err := archive.ZipDir(g.outDir, g.archive); err != nil {
		return err
	}
	f, err := os.Open(g.archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	g.opened = f

	s.logger.Info("Lesson audio packaged",
		zap.String("lesson", g.lesson.Lesson.Name),
		zap.String("from", g.fromVoice.ShortName),
		zap.String("to", g.toVoice.ShortName),
		zap.String("archive", g.archive))
	return nil
}
