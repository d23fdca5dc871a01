package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/memstore"
)

func newBroadcaster(t *testing.T) (*Broadcaster, *Registry, *memstore.AnnouncementStore) {
	t.Helper()
	store := memstore.NewAnnouncementStore()
	registry := NewRegistry()
	b := NewBroadcaster(store, NewResolver(testDirectory()), NewLocalEmitter(registry),
		WithBroadcasterClock(fixedClock(epoch)))
	return b, registry, store
}

func TestBroadcaster_Lifecycle(t *testing.T) {
	b, registry, _ := newBroadcaster(t)
	ctx := context.Background()
	member := connect(t, registry, "m1", memberM1, "g1")
	trainer := connect(t, registry, "t1", trainerT1, "g1")
	outsider := connect(t, registry, "m2", memberM2, "g2")

	posted, err := b.Post(ctx, gymOne, "g1", "Closed Monday")
	require.NoError(t, err)
	assert.Equal(t, "Gym", posted.SenderModel)
	assert.Equal(t, "Iron Temple", posted.SenderName)

	updated, err := b.Update(ctx, gymOne, posted.ID, "g1", "Closed Monday and Tuesday")
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	require.NoError(t, b.Remove(ctx, gymOne, posted.ID, "g1"))

	for _, c := range []*Conn{member, trainer} {
		frames := drain(t, c)
		require.Len(t, frames, 3)
		assert.Equal(t, EventAnnouncement, frames[0].Event)
		assert.Equal(t, "Closed Monday", decodeData[domain.Announcement](t, frames[0]).Body)
		assert.Equal(t, EventAnnouncementUpdate, frames[1].Event)
		assert.Equal(t, "Closed Monday and Tuesday", decodeData[domain.Announcement](t, frames[1]).Body)
		assert.Equal(t, EventAnnouncementDelete, frames[2].Event)
		assert.Equal(t, posted.ID, decodeData[string](t, frames[2]))
	}
	assert.Empty(t, drain(t, outsider))

	err = b.Remove(ctx, gymOne, posted.ID, "g1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, drain(t, member), "failed removal broadcasts nothing")
}

func TestBroadcaster_OnlyOwningGymMayMutate(t *testing.T) {
	b, registry, store := newBroadcaster(t)
	ctx := context.Background()
	watcher := connect(t, registry, "w", memberM1, "g1")

	posted, err := b.Post(ctx, gymOne, "g1", "Closed Monday")
	require.NoError(t, err)
	drain(t, watcher)

	tests := []struct {
		name   string
		caller domain.Identity
		gymID  string
	}{
		{"trainer of the gym", trainerT1, "g1"},
		{"member of the gym", memberM1, "g1"},
		{"another gym", gymTwo, "g1"},
		{"another gym on its own id", gymTwo, "g2"},
		{"admin", adminA1, "g1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Update(ctx, tt.caller, posted.ID, tt.gymID, "Open Monday")
			assert.ErrorIs(t, err, domain.ErrForbidden)
			assert.ErrorIs(t, b.Remove(ctx, tt.caller, posted.ID, tt.gymID), domain.ErrForbidden)
			_, err = b.Post(ctx, tt.caller, "g1", "spam")
			assert.ErrorIs(t, err, domain.ErrForbidden)
		})
	}

	stored, err := store.GetAnnouncement(ctx, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, "Closed Monday", stored.Body)
	assert.Empty(t, drain(t, watcher))
}

func TestBroadcaster_Validation(t *testing.T) {
	b, _, _ := newBroadcaster(t)
	ctx := context.Background()

	_, err := b.Post(ctx, gymOne, "g1", "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	posted, err := b.Post(ctx, gymOne, "g1", "Closed Monday")
	require.NoError(t, err)
	_, err = b.Update(ctx, gymOne, posted.ID, "g1", "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = b.Update(ctx, gymOne, "missing", "g1", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, b.Remove(ctx, gymOne, "", "g1"), domain.ErrNotFound)

	// Forbidden wins over an empty body.
	_, err = b.Post(ctx, memberM1, "g1", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestBroadcaster_List(t *testing.T) {
	b, _, _ := newBroadcaster(t)
	ctx := context.Background()

	_, err := b.Post(ctx, gymOne, "g1", "first")
	require.NoError(t, err)
	_, err = b.Post(ctx, gymOne, "g1", "second")
	require.NoError(t, err)
	_, err = b.Post(ctx, gymTwo, "g2", "elsewhere")
	require.NoError(t, err)

	list, err := b.List(ctx, memberM1, "g1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Body)

	_, err = b.List(ctx, memberM1, "g2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = b.List(ctx, memberM3, "g1")
	assert.ErrorIs(t, err, domain.ErrNotInGym)
}

func TestBroadcaster_ConcurrentEditsMatchFinalBroadcast(t *testing.T) {
	store := memstore.NewAnnouncementStore()
	emitter := &recordingEmitter{}
	b := NewBroadcaster(store, NewResolver(testDirectory()), emitter)
	ctx := context.Background()

	posted, err := b.Post(ctx, gymOne, "g1", "v0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, body := range []string{"v1", "v2", "v3", "v4", "v5"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Update(ctx, gymOne, posted.ID, "g1", body)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	calls := emitter.snapshot()
	require.Len(t, calls, 6)
	last := calls[len(calls)-1].Payload.(*domain.Announcement)
	stored, err := store.GetAnnouncement(ctx, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Body, last.Body, "last broadcast update is the persisted state")
	assert.Zero(t, b.records.size())
}
