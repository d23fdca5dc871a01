package domain

import (
	"context"
	"time"
)

// Message is a persisted direct message between two participants of a gym.
type Message struct {
	ID            string    `json:"id"`
	SenderID      string    `json:"senderId"`
	SenderModel   string    `json:"senderModel"`
	ReceiverID    string    `json:"receiverId"`
	ReceiverModel string    `json:"receiverModel"`
	GymID         string    `json:"gymId"`
	Body          string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// Involves reports whether userID is the sender or the receiver.
func (m *Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// MessageRepository persists direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)
	// FindMessages returns the messages of gymID exchanged between a and b in
	// either direction, oldest first.
	FindMessages(ctx context.Context, gymID, a, b string) ([]*Message, error)
}
