package websocket

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	TypeNoteCreated  EventType = "note_created"
	TypeNoteUpdated  EventType = "note_updated"
	TypeNoteDeleted  EventType = "note_deleted"
	TypeNoteRestored EventType = "note_restored"
	TypePing         EventType = "ping"
	TypePong         EventType = "pong"
)

type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type NoteChangePayload struct {
	NoteID    string    `json:"note_id"`
	Version   int64     `json:"version,omitempty"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	// RestoredFrom carries the version number whose content a restore
	// brought back. Zero for every other event type.
	RestoredFrom int64 `json:"restored_from,omitempty"`
}

func NewEvent(eventType EventType, payload interface{}) (*Event, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}
