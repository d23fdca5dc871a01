package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/memstore"
)

var epoch = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

type relayFixture struct {
	store    *memstore.MessageStore
	registry *Registry
	relay    *Relay
}

func newRelayFixture(opts ...RelayOption) *relayFixture {
	store := memstore.NewMessageStore()
	registry := NewRegistry()
	opts = append([]RelayOption{WithRelayClock(fixedClock(epoch))}, opts...)
	return &relayFixture{
		store:    store,
		registry: registry,
		relay:    NewRelay(store, NewResolver(testDirectory()), NewLocalEmitter(registry), opts...),
	}
}

func TestRelay_SendMemberToTrainer(t *testing.T) {
	f := newRelayFixture()
	gymConn := connect(t, f.registry, "gym", gymOne, "g1")
	trainerConn := connect(t, f.registry, "trainer", trainerT1, "g1")
	elsewhere := connect(t, f.registry, "other", memberM2, "g2")

	msg, err := f.relay.Send(context.Background(), SendRequest{
		SenderID: "m1", SenderRole: domain.RoleMember,
		ReceiverID: "t1", ReceiverRole: domain.RoleTrainer,
		GymID: "g1", Body: "Can we move Tuesday's session?",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "Member", msg.SenderModel)
	assert.Equal(t, "Trainer", msg.ReceiverModel)
	assert.Equal(t, epoch.Add(time.Second), msg.Timestamp)

	// Everyone in the gym room sees the message, including the gym account.
	for _, c := range []*Conn{gymConn, trainerConn} {
		frames := drain(t, c)
		require.Len(t, frames, 1)
		assert.Equal(t, EventMessage, frames[0].Event)
		got := decodeData[domain.Message](t, frames[0])
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "Can we move Tuesday's session?", got.Body)
	}
	assert.Empty(t, drain(t, elsewhere))

	history, err := f.relay.History(context.Background(), trainerT1, "g1", "m1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}

func TestRelay_RejectsWithoutSideEffects(t *testing.T) {
	valid := SendRequest{
		SenderID: "t1", SenderRole: domain.RoleTrainer,
		ReceiverID: "m1", ReceiverRole: domain.RoleMember,
		GymID: "g1", Body: "hi",
	}
	tests := []struct {
		name   string
		mutate func(*SendRequest)
		want   error
	}{
		{"blank body", func(r *SendRequest) { r.Body = "  \n\t" }, domain.ErrEmptyMessage},
		{"member to member", func(r *SendRequest) {
			r.SenderID, r.SenderRole = "m1", domain.RoleMember
		}, domain.ErrInvalidParticipants},
		{"gym to member", func(r *SendRequest) {
			r.SenderID, r.SenderRole = "g1", domain.RoleGym
		}, domain.ErrInvalidParticipants},
		{"admin sender", func(r *SendRequest) {
			r.SenderID, r.SenderRole = "a1", domain.RoleAdmin
		}, domain.ErrInvalidParticipants},
		{"self message", func(r *SendRequest) { r.ReceiverID = "t1" }, domain.ErrInvalidParticipants},
		{"receiver in other gym", func(r *SendRequest) { r.ReceiverID = "m2" }, domain.ErrInvalidParticipants},
		{"receiver without gym", func(r *SendRequest) { r.ReceiverID = "m3" }, domain.ErrInvalidParticipants},
		{"sender not in target gym", func(r *SendRequest) { r.GymID = "g2" }, domain.ErrInvalidParticipants},
		{"missing gym", func(r *SendRequest) { r.GymID = "" }, domain.ErrInvalidParticipants},
		{"missing receiver", func(r *SendRequest) { r.ReceiverID = "" }, domain.ErrInvalidParticipants},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRelayFixture()
			watcher := connect(t, f.registry, "watcher", gymOne, "g1")

			req := valid
			tt.mutate(&req)
			_, err := f.relay.Send(context.Background(), req)

			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.store.Len(), "nothing persisted")
			assert.Empty(t, drain(t, watcher), "nothing broadcast")
		})
	}
}

func TestRelay_GymToTrainerAllowed(t *testing.T) {
	f := newRelayFixture()
	_, err := f.relay.Send(context.Background(), SendRequest{
		SenderID: "g1", SenderRole: domain.RoleGym,
		ReceiverID: "t1", ReceiverRole: domain.RoleTrainer,
		GymID: "g1", Body: "Staff meeting at 6",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len())
}

func TestRelay_EmitFailureStillPersists(t *testing.T) {
	store := memstore.NewMessageStore()
	emitter := &recordingEmitter{err: errors.New("bus closed")}
	relay := NewRelay(store, NewResolver(testDirectory()), emitter)

	msg, err := relay.Send(context.Background(), SendRequest{
		SenderID: "m1", SenderRole: domain.RoleMember,
		ReceiverID: "t1", ReceiverRole: domain.RoleTrainer,
		GymID: "g1", Body: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	require.Len(t, emitter.snapshot(), 1)
	assert.Equal(t, msg.GymID, emitter.snapshot()[0].Room)
}

func TestRelay_SameSenderOrderIsPreserved(t *testing.T) {
	emitter := &recordingEmitter{}
	store := memstore.NewMessageStore()
	relay := NewRelay(store, NewResolver(testDirectory()), emitter)

	const n = 20
	for i := range n {
		_, err := relay.Send(context.Background(), SendRequest{
			SenderID: "t1", SenderRole: domain.RoleTrainer,
			ReceiverID: "m1", ReceiverRole: domain.RoleMember,
			GymID: "g1", Body: fmt.Sprintf("msg-%d", i),
		})
		require.NoError(t, err)
	}

	calls := emitter.snapshot()
	require.Len(t, calls, n)
	history, err := relay.History(context.Background(), memberM1, "g1", "t1")
	require.NoError(t, err)
	require.Len(t, history, n)
	for i := range n {
		want := fmt.Sprintf("msg-%d", i)
		assert.Equal(t, want, calls[i].Payload.(*domain.Message).Body)
		assert.Equal(t, want, history[i].Body)
	}
}

func TestRelay_ConcurrentSendersAllDelivered(t *testing.T) {
	f := newRelayFixture()
	watcher := NewConn("watcher", gymOne, 256)
	require.NoError(t, f.registry.Add(watcher))
	require.NoError(t, f.registry.Join("watcher", "g1"))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.relay.Send(context.Background(), SendRequest{
				SenderID: "m1", SenderRole: domain.RoleMember,
				ReceiverID: "t1", ReceiverRole: domain.RoleTrainer,
				GymID: "g1", Body: fmt.Sprintf("m-%d", i),
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.relay.Send(context.Background(), SendRequest{
				SenderID: "t1", SenderRole: domain.RoleTrainer,
				ReceiverID: "m1", ReceiverRole: domain.RoleMember,
				GymID: "g1", Body: fmt.Sprintf("t-%d", i),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, f.store.Len())
	assert.Len(t, drain(t, watcher), 20)
	assert.Zero(t, f.relay.senders.size())
}

func TestRelay_History(t *testing.T) {
	f := newRelayFixture()
	ctx := context.Background()
	send := func(from, to domain.Identity, body string) {
		_, err := f.relay.Send(ctx, SendRequest{
			SenderID: from.UserID, SenderRole: from.Role,
			ReceiverID: to.UserID, ReceiverRole: to.Role,
			GymID: "g1", Body: body,
		})
		require.NoError(t, err)
	}
	send(memberM1, trainerT1, "one")
	send(trainerT1, memberM1, "two")
	send(gymOne, trainerT1, "staff only")

	history, err := f.relay.History(ctx, memberM1, "g1", "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "one", history[0].Body)
	assert.Equal(t, "two", history[1].Body)

	_, err = f.relay.History(ctx, memberM1, "g2", "t2")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.relay.History(ctx, memberM3, "g1", "t1")
	assert.ErrorIs(t, err, domain.ErrNotInGym)
	_, err = f.relay.History(ctx, memberM1, "g1", "")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
