package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.AnnouncementRepository = (*AnnouncementStore)(nil)

// AnnouncementStore persists announcements in SurrealDB.
type AnnouncementStore struct {
	client Client[announcementRecord]
}

// NewAnnouncementStore creates a store on conn.
func NewAnnouncementStore(conn DBConnection) (*AnnouncementStore, error) {
	c, err := NewClient[announcementRecord](conn)
	if err != nil {
		return nil, err
	}
	return &AnnouncementStore{client: c}, nil
}

func announcementNotFound(id string) error {
	return NewDBError(ErrNotFound, "announcement "+id)
}

// CreateAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) CreateAnnouncement(ctx context.Context, a *domain.Announcement) (*domain.Announcement, error) {
	if a == nil || a.ID == "" {
		return nil, NewDBError(ErrInvalidInput, "announcement and announcement id are required")
	}
	rec, err := s.client.Create(ctx, announcementTable, newAnnouncementRecord(a))
	if err != nil {
		return nil, fmt.Errorf("create announcement: %w", err)
	}
	return rec.toDomain(), nil
}

// GetAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error) {
	rec, err := s.client.QueryOne(ctx, "SELECT * FROM announcement WHERE uid = $uid", map[string]any{"uid": id})
	if err != nil {
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	if rec == nil {
		return nil, announcementNotFound(id)
	}
	return rec.toDomain(), nil
}

// UpdateAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) UpdateAnnouncement(ctx context.Context, id, body string, at time.Time) (*domain.Announcement, error) {
	rows, err := s.client.Mutate(ctx,
		"UPDATE announcement SET body = $body, updated_at = $at WHERE uid = $uid RETURN AFTER",
		map[string]any{"uid": id, "body": body, "at": dateTime(at)})
	if err != nil {
		return nil, fmt.Errorf("update announcement: %w", err)
	}
	if len(rows) == 0 {
		return nil, announcementNotFound(id)
	}
	return rows[0].toDomain(), nil
}

// DeleteAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) DeleteAnnouncement(ctx context.Context, id string) error {
	rows, err := s.client.Mutate(ctx, "DELETE announcement WHERE uid = $uid RETURN BEFORE", map[string]any{"uid": id})
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if len(rows) == 0 {
		return announcementNotFound(id)
	}
	return nil
}

// ListAnnouncements implements domain.AnnouncementRepository.
func (s *AnnouncementStore) ListAnnouncements(ctx context.Context, gymID string) ([]*domain.Announcement, error) {
	rows, err := s.client.Query(ctx,
		"SELECT * FROM announcement WHERE gym_id = $gym ORDER BY created_at DESC",
		map[string]any{"gym": gymID})
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	out := make([]*domain.Announcement, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
