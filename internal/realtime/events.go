package realtime

import (
	"encoding/json"
	"fmt"
)

// Client-facing event names.
const (
	EventJoinGym            = "joinGym"
	EventSendMessage        = "sendMessage"
	EventMessage            = "message"
	EventAnnouncement       = "announcement"
	EventAnnouncementUpdate = "announcementUpdate"
	EventAnnouncementDelete = "announcementDelete"
	EventAck                = "ack"
	EventPresence           = "presence"
)

// Frame is the envelope of every websocket text message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals payload into a frame for event.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// DecodeFrame parses a raw frame.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, err
	}
	if f.Event == "" {
		return Frame{}, fmt.Errorf("frame has no event name")
	}
	return f, nil
}
