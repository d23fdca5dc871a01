package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/gymhub/internal/domain"
)

func TestMessageStore_FindMessagesIsSymmetricAndOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMessageStore()
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	add := func(id, from, to, gym string, offset time.Duration) {
		_, err := s.CreateMessage(ctx, &domain.Message{
			ID: id, SenderID: from, ReceiverID: to, GymID: gym, Body: id, Timestamp: base.Add(offset),
		})
		require.NoError(t, err)
	}
	add("m2", "t1", "u1", "g1", 2*time.Minute)
	add("m1", "u1", "t1", "g1", time.Minute)
	add("other-gym", "u1", "t1", "g2", 0)
	add("other-pair", "u2", "t1", "g1", 0)

	forward, err := s.FindMessages(ctx, "g1", "u1", "t1")
	require.NoError(t, err)
	backward, err := s.FindMessages(ctx, "g1", "t1", "u1")
	require.NoError(t, err)

	require.Len(t, forward, 2)
	assert.Equal(t, "m1", forward[0].ID)
	assert.Equal(t, "m2", forward[1].ID)
	assert.Equal(t, forward, backward)
	assert.Equal(t, 4, s.Len())
}

func TestMessageStore_ResultsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMessageStore()
	_, err := s.CreateMessage(ctx, &domain.Message{ID: "m1", SenderID: "a", ReceiverID: "b", GymID: "g", Body: "hi"})
	require.NoError(t, err)

	got, err := s.FindMessages(ctx, "g", "a", "b")
	require.NoError(t, err)
	got[0].Body = "changed"

	again, err := s.FindMessages(ctx, "g", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "hi", again[0].Body)
}

func TestAnnouncementStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewAnnouncementStore()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := s.CreateAnnouncement(ctx, &domain.Announcement{ID: "a1", GymID: "g1", Body: "Closed Monday", CreatedAt: at})
	require.NoError(t, err)
	_, err = s.CreateAnnouncement(ctx, &domain.Announcement{ID: "a1", GymID: "g1"})
	require.Error(t, err, "duplicate ids are rejected")

	updated, err := s.UpdateAnnouncement(ctx, "a1", "Closed Tuesday", at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Closed Tuesday", updated.Body)
	assert.Equal(t, at, updated.CreatedAt)

	require.NoError(t, s.DeleteAnnouncement(ctx, "a1"))
	assert.ErrorIs(t, s.DeleteAnnouncement(ctx, "a1"), domain.ErrNotFound)
	_, err = s.GetAnnouncement(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.UpdateAnnouncement(ctx, "a1", "x", at)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnnouncementStore_ListNewestFirstPerGym(t *testing.T) {
	ctx := context.Background()
	s := NewAnnouncementStore()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for _, a := range []domain.Announcement{
		{ID: "old", GymID: "g1", CreatedAt: at},
		{ID: "new", GymID: "g1", CreatedAt: at.Add(time.Hour)},
		{ID: "tie", GymID: "g1", CreatedAt: at.Add(time.Hour)},
		{ID: "elsewhere", GymID: "g2", CreatedAt: at},
	} {
		_, err := s.CreateAnnouncement(ctx, &a)
		require.NoError(t, err)
	}

	list, err := s.ListAnnouncements(ctx, "g1")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"tie", "new", "old"}, ids)
}

func TestEventLogStore_ListEventsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := NewEventLogStore()
	for _, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, s.RecordEvent(ctx, &domain.EventLog{ID: id, GymID: "g1"}))
	}
	require.NoError(t, s.RecordEvent(ctx, &domain.EventLog{ID: "x", GymID: "g2"}))

	events, err := s.ListEvents(ctx, "g1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e3", events[0].ID)
	assert.Equal(t, "e2", events[1].ID)

	all, err := s.ListEvents(ctx, "g1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
