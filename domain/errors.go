package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers match with errors.Is.
var (
	ErrInputTooLarge              = errors.New("input too large")
	ErrInvalidInput               = errors.New("invalid input")
	ErrInvalidFormat              = errors.New("invalid format")
	ErrInvalidToken               = errors.New("invalid pattern token")
	ErrPatternNotFound            = errors.New("pattern not found")
	ErrInvalidPauseDuration       = errors.New("invalid pause duration")
	ErrLanguageDetectionAmbiguous = errors.New("could not determine language")
	ErrVendorFailure              = errors.New("vendor failure")
	ErrNotFound                   = errors.New("not found")
	ErrDuplicateName              = errors.New("duplicate name")
	ErrCancelled                  = errors.New("operation cancelled")
	ErrPhraseTooLong              = errors.New("phrase too long")
	ErrPhraseCountMismatch        = errors.New("phrase count mismatch")
	ErrMissingOriginalLanguage    = errors.New("lesson has no original language")
	ErrAccessDenied               = errors.New("access denied")
	ErrAlreadyUsed                = errors.New("already used")
)

// VendorError carries the reason reported by an external translation or
// speech service.
type VendorError struct {
	Vendor string
	Reason string
	Err    error
}

func (e *VendorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Vendor, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Vendor, e.Reason)
}

// Is lets errors.Is(err, ErrVendorFailure) match any VendorError.
func (e *VendorError) Is(target error) bool {
	return target == ErrVendorFailure
}

func (e *VendorError) Unwrap() error {
	return e.Err
}

// NewVendorError builds a VendorError.
func NewVendorError(vendor, reason string, err error) *VendorError {
	return &VendorError{Vendor: vendor, Reason: reason, Err: err}
}

// Cancelled reports err as ErrCancelled when ctx has been cancelled or its
// deadline has passed, so cancellation is not mistaken for a vendor failure.
// Otherwise err is returned unchanged.
func Cancelled(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelled) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}
