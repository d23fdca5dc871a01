package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/memstore"
)

var (
	gymOne    = domain.Identity{UserID: "g1", Role: domain.RoleGym, Name: "Iron Temple"}
	gymTwo    = domain.Identity{UserID: "g2", Role: domain.RoleGym, Name: "Lift Lab"}
	trainerT1 = domain.Identity{UserID: "t1", Role: domain.RoleTrainer, Name: "Tess"}
	trainerT2 = domain.Identity{UserID: "t2", Role: domain.RoleTrainer}
	memberM1  = domain.Identity{UserID: "m1", Role: domain.RoleMember, Name: "Max"}
	memberM2  = domain.Identity{UserID: "m2", Role: domain.RoleMember}
	memberM3  = domain.Identity{UserID: "m3", Role: domain.RoleMember}
	adminA1   = domain.Identity{UserID: "a1", Role: domain.RoleAdmin}
)

// testDirectory affiliates t1 and m1 with g1, t2 and m2 with g2. m3 has no gym.
func testDirectory() *memstore.Directory {
	return memstore.NewDirectory(
		domain.Affiliation{UserID: "t1", Role: domain.RoleTrainer, GymID: "g1"},
		domain.Affiliation{UserID: "m1", Role: domain.RoleMember, GymID: "g1"},
		domain.Affiliation{UserID: "t2", Role: domain.RoleTrainer, GymID: "g2"},
		domain.Affiliation{UserID: "m2", Role: domain.RoleMember, GymID: "g2"},
	)
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

// connect registers a connection for id and joins it to room when room is set.
func connect(t *testing.T, r *Registry, connID string, id domain.Identity, room string) *Conn {
	t.Helper()
	c := NewConn(connID, id, 16)
	require.NoError(t, r.Add(c))
	if room != "" {
		require.NoError(t, r.Join(connID, room))
	}
	return c
}

// drain returns every frame currently queued on c.
func drain(t *testing.T, c *Conn) []Frame {
	t.Helper()
	var frames []Frame
	for {
		select {
		case raw, ok := <-c.Outbound():
			if !ok {
				return frames
			}
			f, err := DecodeFrame(raw)
			require.NoError(t, err)
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func decodeData[T any](t *testing.T, f Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

// recordingEmitter captures emits in order and can be told to fail.
type recordingEmitter struct {
	mu    sync.Mutex
	calls []emitCall
	err   error
}

type emitCall struct {
	Room    string
	Event   string
	Payload any
}

func (e *recordingEmitter) Emit(_ context.Context, room, event string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, emitCall{Room: room, Event: event, Payload: payload})
	return e.err
}

func (e *recordingEmitter) snapshot() []emitCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitCall(nil), e.calls...)
}

// recordingObserver captures membership changes.
type recordingObserver struct {
	mu      sync.Mutex
	changes []Membership
}

func (o *recordingObserver) MembershipChanged(m Membership) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, m)
}

func (o *recordingObserver) snapshot() []Membership {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Membership(nil), o.changes...)
}
