package services

import "errors"

// Transition failures are classified so handlers can map them to HTTP
// statuses or push-channel error events. Every failure leaves the session
// aggregate untouched.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidState        = errors.New("invalid session state")
	ErrRevealExhausted     = errors.New("no more participants to reveal")
	ErrValidation          = errors.New("validation failed")
)
