package core

import "errors"

// Error kinds returned by core operations. Callers map these 1:1 to
// transport-level responses; anything else is an internal failure.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("operation not permitted in current status")
	ErrInvalidAction   = errors.New("action not permitted")
	ErrMalformedToken  = errors.New("malformed QR token")
	ErrExpiredToken    = errors.New("QR token expired")
	ErrOutOfWindow     = errors.New("outpass window not active")
	ErrNoActiveOutpass = errors.New("no active approved outpass")
)
