package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.AnnouncementRepository = (*AnnouncementStore)(nil)

// AnnouncementStore keeps announcements keyed by id.
type AnnouncementStore struct {
	mu    sync.RWMutex
	byID  map[string]domain.Announcement
	order map[string]int
	seq   int
}

// NewAnnouncementStore returns an empty store.
func NewAnnouncementStore() *AnnouncementStore {
	return &AnnouncementStore{
		byID:  make(map[string]domain.Announcement),
		order: make(map[string]int),
	}
}

func notFound(id string) error {
	return fmt.Errorf("announcement %s: %w", id, domain.ErrNotFound)
}

// CreateAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) CreateAnnouncement(_ context.Context, a *domain.Announcement) (*domain.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[a.ID]; exists {
		return nil, fmt.Errorf("announcement %s already exists", a.ID)
	}
	s.byID[a.ID] = *a
	s.seq++
	s.order[a.ID] = s.seq
	out := *a
	return &out, nil
}

// GetAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) GetAnnouncement(_ context.Context, id string) (*domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	return &a, nil
}

// UpdateAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) UpdateAnnouncement(_ context.Context, id, body string, at time.Time) (*domain.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	a.Body = body
	a.UpdatedAt = at
	s.byID[id] = a
	return &a, nil
}

// DeleteAnnouncement implements domain.AnnouncementRepository.
func (s *AnnouncementStore) DeleteAnnouncement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return notFound(id)
	}
	delete(s.byID, id)
	delete(s.order, id)
	return nil
}

// ListAnnouncements implements domain.AnnouncementRepository.
func (s *AnnouncementStore) ListAnnouncements(_ context.Context, gymID string) ([]*domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Announcement
	for id := range s.byID {
		a := s.byID[id]
		if a.GymID == gymID {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	return out, nil
}
