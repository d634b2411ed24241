package handlers

import (
	"errors"
	"net/http"

	"github.com/skogeo/hear-me-out-cake/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error" example:"session not found"`
}

type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// statusFor maps classified service errors to HTTP statuses. Anything
// unclassified is a server-side failure (store unavailable and the like).
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrRevealExhausted),
		errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
