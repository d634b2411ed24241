package ws

import "encoding/json"

// Client-to-server actions.
const (
	ActionJoinSession  = "joinSession"
	ActionLeaveSession = "leaveSession"
	ActionSetReady     = "setReady"
	ActionUploadImages = "uploadImages"
)

// Server-to-client events. sessionUpdate carries the canonical full
// snapshot; sessionStarted and revealNext are the distinct signals clients
// switch view modes on. participantImages and error are unicast only.
const (
	EventSessionUpdate     = "sessionUpdate"
	EventSessionStarted    = "sessionStarted"
	EventRevealNext        = "revealNext"
	EventParticipantImages = "participantImages"
	EventError             = "error"
)

// ClientMessage is the envelope for inbound actions. Data is decoded into
// one of the payload types below according to Type, and validated before it
// reaches the state machine.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JoinSessionPayload struct {
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
}

type LeaveSessionPayload struct {
	SessionID string `json:"sessionId"`
}

type SetReadyPayload struct {
	SessionID string `json:"sessionId"`
	Ready     bool   `json:"ready"`
}

type UploadImagesPayload struct {
	SessionID string         `json:"sessionId"`
	Images    []ImagePayload `json:"images"`
}

type ImagePayload struct {
	URL           string `json:"url"`
	CharacterName string `json:"characterName"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
