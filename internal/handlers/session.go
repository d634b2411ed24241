package handlers

import (
	"net/http"

	"github.com/skogeo/hear-me-out-cake/internal/services"
	"github.com/skogeo/hear-me-out-cake/internal/ws"

	"github.com/gin-gonic/gin"
)

// SessionHandler is the synchronous facade. Only creation, lookup and the
// two privileged transitions live here; everything else flows through the
// push channel. start and reveal still broadcast to the room so spectators
// stay in sync, but the caller gets a correlated result.
type SessionHandler struct {
	sessionService *services.SessionService
	hub            *ws.Hub
}

func NewSessionHandler(sessionService *services.SessionService, hub *ws.Hub) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, hub: hub}
}

// CreateSession godoc
// @Summary      Create a session
// @Description  Create a new reveal session and return its join id
// @Tags         sessions
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      500 {object} ErrorResponse
// @Router       /api/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	session, err := h.sessionService.CreateSession()
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID})
}

// GetSession godoc
// @Summary      Get session summary
// @Description  Current status, participant count, startability and reveal cursor
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} services.SessionSummary
// @Failure      404 {object} ErrorResponse
// @Router       /api/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	summary, err := h.sessionService.GetSession(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// StartSession godoc
// @Summary      Start the reveal phase
// @Description  Move the session to viewing. Requires every participant to be ready.
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} SuccessResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	sessionID := c.Param("id")

	result, err := h.sessionService.Start(sessionID)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	h.hub.Broadcast(sessionID, ws.EventSessionStarted, result)

	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// RevealNext godoc
// @Summary      Reveal the next participant
// @Description  Advance the reveal cursor by one and broadcast the new index
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} services.RevealResult
// @Failure      400 {object} ErrorResponse
// @Router       /api/sessions/{id}/reveal [post]
func (h *SessionHandler) RevealNext(c *gin.Context) {
	sessionID := c.Param("id")

	result, err := h.sessionService.RevealNext(sessionID)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	h.hub.Broadcast(sessionID, ws.EventRevealNext, result)

	c.JSON(http.StatusOK, result)
}
