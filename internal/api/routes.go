package api

import (
	"crypto/subtle"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/auth"
	"github.com/satriahrh/lingualoop/internal/catalog"
	"github.com/satriahrh/lingualoop/internal/pattern"
	"github.com/satriahrh/lingualoop/usecase"
)

const (
	// uploadBodyLimit leaves room for multipart framing around a 64 KiB file.
	uploadBodyLimit = "72K"
	jsonBodyLimit   = "8K"

	adminKeyHeader = "X-Admin-Key"
)

// Services holds what the handlers call into
type Services struct {
	Lessons   *usecase.LessonService
	Audio     *usecase.AudioService
	Languages *usecase.LanguageCache
	Tokens    *auth.TokenService
	Store     repositories.Store
	Patterns  *pattern.Patterns
	// AdminKey guards token issuance and catalog updates. Empty disables
	// both endpoints.
	AdminKey string
}

type handler struct {
	svc    Services
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, svc Services, logger *zap.Logger) {
	h := &handler{svc: svc, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "lingualoop",
		})
	})

	v1 := e.Group("/api/v1")

	// Catalog
	v1.GET("/languages", h.listLanguages)
	v1.GET("/voices", h.listVoices)
	v1.GET("/lessons", h.listLessons)
	v1.GET("/patterns", h.listPatterns)

	// Ingestion
	upload := middleware.BodyLimit(uploadBodyLimit)
	v1.POST("/parse", h.parse, upload)
	v1.POST("/lessons", h.createLesson, upload)

	// Audio, admitted by single-use token
	v1.POST("/audio", h.generateAudio, middleware.BodyLimit(jsonBodyLimit))
	v1.POST("/tokens", h.issueToken)

	// Admin
	v1.POST("/catalog", h.applyCatalog, upload)
}

func (h *handler) listLanguages(c echo.Context) error {
	languages, err := h.svc.Languages.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, languages)
}

func (h *handler) listVoices(c echo.Context) error {
	ctx := c.Request().Context()
	tag := c.QueryParam("language")

	var voices []*entities.Voice
	var err error
	if tag == "" {
		voices, err = h.svc.Store.Voices.List(ctx)
	} else {
		var language *entities.Language
		if language, err = h.svc.Languages.GetByTag(ctx, tag); err == nil {
			voices, err = h.svc.Store.Voices.ListByLanguage(ctx, language.ID)
		}
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if voices == nil {
		voices = []*entities.Voice{}
	}
	return c.JSON(http.StatusOK, voices)
}

func (h *handler) listLessons(c echo.Context) error {
	lessons, err := h.svc.Store.Lessons.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, lessons)
}

func (h *handler) listPatterns(c echo.Context) error {
	return c.JSON(http.StatusOK, PatternsResponse{Patterns: h.svc.Patterns.Names()})
}

// parse returns the phrases of an upload as a zip of text files.
func (h *handler) parse(c echo.Context) error {
	file, header, err := formFile(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	defer file.Close()

	path, err := h.svc.Lessons.ParseToArchive(c.Request().Context(), file, header.Size, header.Filename)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Attachment(path, filepath.Base(path))
}

func (h *handler) createLesson(c echo.Context) error {
	file, header, err := formFile(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	defer file.Close()

	lesson, err := h.svc.Lessons.CreateLesson(c.Request().Context(), file, header.Size,
		c.FormValue("name"), c.FormValue("description"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, lesson)
}

// generateAudio renders a lesson and streams the archive. The access token is
// consumed only when the archive is ready.
func (h *handler) generateAudio(c echo.Context) error {
	ctx := c.Request().Context()

	token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if token == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "Access token is required in Authorization header",
		})
	}
	hash, err := h.svc.Tokens.Check(ctx, token)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var req usecase.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
	}

	result, err := h.svc.Audio.Generate(ctx, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	defer result.Archive.Close()

	if err := h.svc.Tokens.MarkUsed(ctx, hash); err != nil {
		return respondError(c, h.logger, fmt.Errorf("consume token: %w", err))
	}

	h.logger.Info("Lesson audio delivered",
		zap.Int64("lessonID", req.LessonID),
		zap.String("archive", result.ArchivePath),
		zap.String("runID", result.Run.ID))

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", filepath.Base(result.ArchivePath)))
	return c.Stream(http.StatusOK, "application/zip", result.Archive)
}

// checkAdmin returns echo.ErrNotFound when admin endpoints are disabled and
// ErrAccessDenied for a wrong key.
func (h *handler) checkAdmin(c echo.Context) error {
	if h.svc.AdminKey == "" {
		return echo.ErrNotFound
	}
	key := c.Request().Header.Get(adminKeyHeader)
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.svc.AdminKey)) != 1 {
		return fmt.Errorf("%w: admin key mismatch", domain.ErrAccessDenied)
	}
	return nil
}

func (h *handler) issueToken(c echo.Context) error {
	if err := h.checkAdmin(c); err != nil {
		return respondError(c, h.logger, err)
	}

	token, claims, err := h.svc.Tokens.Issue(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, TokenResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// applyCatalog adds the languages and voices of a YAML seed body and drops the
// cached language list so they are served at once.
func (h *handler) applyCatalog(c echo.Context) error {
	if err := h.checkAdmin(c); err != nil {
		return respondError(c, h.logger, err)
	}

	seed, err := catalog.Load(c.Request().Body)
	if err != nil {
		var errs error
		for _, e := range multierr.Errors(err) {
			errs = multierr.Append(errs, fmt.Errorf("%w: %v", domain.ErrInvalidInput, e))
		}
		return respondError(c, h.logger, errs)
	}

	result, err := catalog.Apply(c.Request().Context(), h.svc.Store, seed, h.logger)
	// a failed apply may still have written languages
	h.svc.Languages.Invalidate()
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, CatalogResponse{
		LanguagesCreated: result.LanguagesCreated,
		VoicesCreated:    result.VoicesCreated,
		Existing:         result.Existing,
	})
}

func formFile(c echo.Context) (multipart.File, *multipart.FileHeader, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open upload: %v", domain.ErrInvalidInput, err)
	}
	return file, header, nil
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
