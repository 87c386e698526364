package service

import "errors"

// Error kinds returned by the services. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadySaved      = errors.New("recipe already saved")
	ErrConflict          = errors.New("conflict")
	ErrGeneration        = errors.New("generation failed")
	ErrMalformedResponse = errors.New("malformed generation response")
	ErrSynthesis         = errors.New("image synthesis failed")
	ErrStorage           = errors.New("storage failed")
)
