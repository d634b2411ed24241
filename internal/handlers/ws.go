package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/skogeo/hear-me-out-cake/internal/services"
	"github.com/skogeo/hear-me-out-cake/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler is the broadcast gateway's inbound side: it owns the socket
// lifecycle and dispatches decoded client actions to the state machine.
// Failed actions are answered with an error event on the originating
// connection only; successful ones broadcast the new snapshot to the room.
type WSHandler struct {
	sessionService *services.SessionService
	hub            *ws.Hub
}

func NewWSHandler(sessionService *services.SessionService, hub *ws.Hub) *WSHandler {
	return &WSHandler{sessionService: sessionService, hub: hub}
}

// HandleWebSocket godoc
// @Summary      Session push channel
// @Description  Bidirectional channel for join/leave/ready/upload actions and session broadcasts
// @Tags         websocket
// @Router       /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	connID := h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(connID)
		h.handleDisconnect(connID)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg ws.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(connID, "malformed message")
			continue
		}
		h.dispatch(connID, msg)
	}
}

func (h *WSHandler) dispatch(connID string, msg ws.ClientMessage) {
	switch msg.Type {
	case ws.ActionJoinSession:
		h.handleJoin(connID, msg.Data)
	case ws.ActionLeaveSession:
		h.handleLeave(connID, msg.Data)
	case ws.ActionSetReady:
		h.handleSetReady(connID, msg.Data)
	case ws.ActionUploadImages:
		h.handleUploadImages(connID, msg.Data)
	default:
		h.sendError(connID, "unknown message type: "+msg.Type)
	}
}

func (h *WSHandler) handleJoin(connID string, data json.RawMessage) {
	var payload ws.JoinSessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" || payload.Username == "" {
		h.sendError(connID, "joinSession requires sessionId and username")
		return
	}

	result, err := h.sessionService.Join(payload.SessionID, connID, payload.Username)
	if err != nil {
		h.sendError(connID, err.Error())
		return
	}

	h.hub.JoinRoom(payload.SessionID, connID)
	h.hub.Broadcast(payload.SessionID, ws.EventSessionUpdate, result.Snapshot)

	// A reconnecting client recovers its uploads from this private event
	// instead of guessing.
	h.hub.Unicast(connID, ws.EventParticipantImages, gin.H{"images": result.Participant.Images})
}

func (h *WSHandler) handleLeave(connID string, data json.RawMessage) {
	var payload ws.LeaveSessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		h.sendError(connID, "leaveSession requires sessionId")
		return
	}

	snap, err := h.sessionService.Leave(payload.SessionID, connID)
	if err != nil {
		h.sendError(connID, err.Error())
		return
	}

	h.hub.LeaveRoom(connID)
	h.hub.Broadcast(payload.SessionID, ws.EventSessionUpdate, snap)
}

func (h *WSHandler) handleSetReady(connID string, data json.RawMessage) {
	var payload ws.SetReadyPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		h.sendError(connID, "setReady requires sessionId")
		return
	}

	snap, err := h.sessionService.SetReady(payload.SessionID, connID, payload.Ready)
	if err != nil {
		h.sendError(connID, err.Error())
		return
	}

	h.hub.Broadcast(payload.SessionID, ws.EventSessionUpdate, snap)
}

func (h *WSHandler) handleUploadImages(connID string, data json.RawMessage) {
	var payload ws.UploadImagesPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		h.sendError(connID, "uploadImages requires sessionId")
		return
	}

	images := make([]services.ImageUpload, len(payload.Images))
	for i, img := range payload.Images {
		images[i] = services.ImageUpload{URL: img.URL, CharacterName: img.CharacterName}
	}

	snap, err := h.sessionService.UploadImages(payload.SessionID, connID, images)
	if err != nil {
		h.sendError(connID, err.Error())
		return
	}

	h.hub.Broadcast(payload.SessionID, ws.EventSessionUpdate, snap)
}

// handleDisconnect runs after the socket drops. Unlike an explicit leave,
// the participant record and its images survive for a later reconnect.
func (h *WSHandler) handleDisconnect(connID string) {
	sessionID, snap, err := h.sessionService.Disconnect(connID)
	if err != nil {
		if !errors.Is(err, services.ErrParticipantNotFound) {
			log.Printf("ws: disconnect %s: %v", connID, err)
		}
		return
	}

	h.hub.Broadcast(sessionID, ws.EventSessionUpdate, snap)
}

func (h *WSHandler) sendError(connID, message string) {
	h.hub.Unicast(connID, ws.EventError, ws.ErrorPayload{Message: message})
}
