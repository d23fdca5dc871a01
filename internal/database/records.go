package database

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/nfrund/gymhub/internal/domain"
)

// Table names.
const (
	messageTable      = "message"
	announcementTable = "announcement"
	affiliationTable  = "affiliation"
	eventLogTable     = "event_log"
)

// Rows carry the application id in uid; SurrealDB keeps its own record id.

type messageRecord struct {
	UID           string                        `json:"uid"`
	SenderID      string                        `json:"sender_id"`
	SenderModel   string                        `json:"sender_model"`
	ReceiverID    string                        `json:"receiver_id"`
	ReceiverModel string                        `json:"receiver_model"`
	GymID         string                        `json:"gym_id"`
	Body          string                        `json:"body"`
	Timestamp     *surrealmodels.CustomDateTime `json:"timestamp"`
}

func newMessageRecord(m *domain.Message) messageRecord {
	return messageRecord{
		UID:           m.ID,
		SenderID:      m.SenderID,
		SenderModel:   m.SenderModel,
		ReceiverID:    m.ReceiverID,
		ReceiverModel: m.ReceiverModel,
		GymID:         m.GymID,
		Body:          m.Body,
		Timestamp:     dateTime(m.Timestamp),
	}
}

func (r messageRecord) toDomain() *domain.Message {
	return &domain.Message{
		ID:            r.UID,
		SenderID:      r.SenderID,
		SenderModel:   r.SenderModel,
		ReceiverID:    r.ReceiverID,
		ReceiverModel: r.ReceiverModel,
		GymID:         r.GymID,
		Body:          r.Body,
		Timestamp:     fromDateTime(r.Timestamp),
	}
}

type announcementRecord struct {
	UID         string                        `json:"uid"`
	GymID       string                        `json:"gym_id"`
	SenderID    string                        `json:"sender_id"`
	SenderModel string                        `json:"sender_model"`
	SenderName  string                        `json:"sender_name"`
	Body        string                        `json:"body"`
	CreatedAt   *surrealmodels.CustomDateTime `json:"created_at"`
	UpdatedAt   *surrealmodels.CustomDateTime `json:"updated_at"`
}

func newAnnouncementRecord(a *domain.Announcement) announcementRecord {
	return announcementRecord{
		UID:         a.ID,
		GymID:       a.GymID,
		SenderID:    a.SenderID,
		SenderModel: a.SenderModel,
		SenderName:  a.SenderName,
		Body:        a.Body,
		CreatedAt:   dateTime(a.CreatedAt),
		UpdatedAt:   dateTime(a.UpdatedAt),
	}
}

func (r announcementRecord) toDomain() *domain.Announcement {
	return &domain.Announcement{
		ID:          r.UID,
		GymID:       r.GymID,
		SenderID:    r.SenderID,
		SenderModel: r.SenderModel,
		SenderName:  r.SenderName,
		Body:        r.Body,
		CreatedAt:   fromDateTime(r.CreatedAt),
		UpdatedAt:   fromDateTime(r.UpdatedAt),
	}
}

type affiliationRecord struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	GymID  string `json:"gym_id"`
	Name   string `json:"name"`
}

func (r affiliationRecord) toDomain() domain.Affiliation {
	return domain.Affiliation{UserID: r.UserID, Role: domain.Role(r.Role), GymID: r.GymID, Name: r.Name}
}

type eventLogRecord struct {
	UID       string                        `json:"uid"`
	Event     string                        `json:"event"`
	GymID     string                        `json:"gym_id"`
	UserID    string                        `json:"user_id"`
	UserModel string                        `json:"user_model"`
	Details   map[string]string             `json:"details"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at"`
}

func (r eventLogRecord) toDomain() *domain.EventLog {
	return &domain.EventLog{
		ID:        r.UID,
		Event:     r.Event,
		GymID:     r.GymID,
		UserID:    r.UserID,
		UserModel: r.UserModel,
		Details:   r.Details,
		CreatedAt: fromDateTime(r.CreatedAt),
	}
}

func dateTime(t time.Time) *surrealmodels.CustomDateTime {
	return &surrealmodels.CustomDateTime{Time: t.UTC()}
}

func fromDateTime(dt *surrealmodels.CustomDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	return dt.Time.UTC()
}
