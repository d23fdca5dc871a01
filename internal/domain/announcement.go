package domain

import (
	"context"
	"time"
)

// Announcement is a gym-wide notice owned by a gym-profile account.
type Announcement struct {
	ID          string    `json:"id"`
	GymID       string    `json:"gymId"`
	SenderID    string    `json:"senderId"`
	SenderModel string    `json:"senderModel"`
	SenderName  string    `json:"senderName,omitempty"`
	Body        string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AnnouncementRepository persists announcements. Get, Update and Delete
// return ErrNotFound for unknown ids.
type AnnouncementRepository interface {
	CreateAnnouncement(ctx context.Context, a *Announcement) (*Announcement, error)
	GetAnnouncement(ctx context.Context, id string) (*Announcement, error)
	UpdateAnnouncement(ctx context.Context, id, body string, at time.Time) (*Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error
	// ListAnnouncements returns the announcements of gymID, newest first.
	ListAnnouncements(ctx context.Context, gymID string) ([]*Announcement, error)
}
