// Package events contains the event contracts pushed over the session
// WebSocket of the CPT Data Merger.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Session content changes
	MessageTypeSoundingAdded   MessageType = "sounding.added"
	MessageTypeSoundingUpdated MessageType = "sounding.updated"
	MessageTypeSoundingRemoved MessageType = "sounding.removed"
	MessageTypeTableReplaced   MessageType = "table.replaced"
	MessageTypeProjectRenamed  MessageType = "project.renamed"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// SoundingEvent describes a change to one row of the sounding table.
type SoundingEvent struct {
	SoundingID         string  `json:"sounding_id"`
	Name               string  `json:"name"`
	ReferenceElevation float64 `json:"reference_elevation"`
	Records            int     `json:"records"`
}

// TableEvent is sent after the whole table was replaced in one edit.
type TableEvent struct {
	Soundings []SoundingEvent `json:"soundings"`
}

// ProjectEvent carries the new project name.
type ProjectEvent struct {
	ProjectName string `json:"project_name"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage stamps a payload with type, session and time.
func NewMessage(t MessageType, sessionID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      t,
			SessionID: sessionID,
			Timestamp: time.Now().UTC(),
		},
		Data: data,
	}
}
