package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/internal/auth"
)

// statusClientClosedRequest reports a request abandoned by its client.
const statusClientClosedRequest = 499

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order; the first match decides the response.
var errorMappings = []errorMapping{
	{auth.ErrTokenUsed, http.StatusForbidden, "token_used"},
	{domain.ErrAccessDenied, http.StatusUnauthorized, "invalid_token"},
	{domain.ErrInputTooLarge, http.StatusRequestEntityTooLarge, "input_too_large"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrInvalidFormat, http.StatusBadRequest, "invalid_format"},
	{domain.ErrPhraseTooLong, http.StatusBadRequest, "phrase_too_long"},
	{domain.ErrInvalidToken, http.StatusBadRequest, "invalid_pattern_token"},
	{domain.ErrInvalidPauseDuration, http.StatusBadRequest, "invalid_pause"},
	{domain.ErrPatternNotFound, http.StatusBadRequest, "pattern_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrDuplicateName, http.StatusConflict, "duplicate_name"},
	{domain.ErrMissingOriginalLanguage, http.StatusConflict, "lesson_incomplete"},
	{domain.ErrPhraseCountMismatch, http.StatusConflict, "lesson_incomplete"},
	{domain.ErrLanguageDetectionAmbiguous, http.StatusUnprocessableEntity, "language_ambiguous"},
	{domain.ErrCancelled, statusClientClosedRequest, "cancelled"},
	{domain.ErrVendorFailure, http.StatusBadGateway, "vendor_failure"},
}

// respondError writes err as an ErrorResponse. Echo's own errors pass through
// to its error handler.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	status, code := http.StatusInternalServerError, "internal_error"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, code = m.status, m.code
			break
		}
	}

	resp := ErrorResponse{Error: code, Message: err.Error()}
	if errs := multierr.Errors(err); len(errs) > 1 {
		resp.Message = "request has multiple problems"
		for _, e := range errs {
			resp.Errors = append(resp.Errors, e.Error())
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
		if status == http.StatusInternalServerError {
			resp.Message = "internal server error"
			resp.Errors = nil
		}
	} else {
		logger.Info("Request rejected",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	return c.JSON(status, resp)
}
