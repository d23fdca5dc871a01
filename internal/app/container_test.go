package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/gymhub/internal/app"
	"github.com/nfrund/gymhub/internal/config"
	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/presence"
	"github.com/nfrund/gymhub/internal/realtime"
)

const directoryJSON = `{"affiliations": [
  {"userId": "trainer-1", "role": "trainer", "gymId": "gym-1"},
  {"userId": "member-1", "role": "member", "gymId": "gym-1"}
]}`

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte(directoryJSON), 0o644))
	return &config.Config{
		StoreDriver:   config.StoreMemory,
		PubSubDriver:  config.PubSubMemory,
		SessionSecret: "test-secret",
		WSSendBuffer:  16,
		DirectoryFile: path,
		Version:       "test",
	}
}

func newContainer(t *testing.T) (*do.RootScope, context.Context) {
	t.Helper()
	i := app.NewContainer(memoryConfig(t), slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = i.ShutdownWithContext(context.Background())
	})
	require.NoError(t, app.StartBackground(ctx, i))
	return i, ctx
}

func TestContainer_RelaysThroughBus(t *testing.T) {
	i, ctx := newContainer(t)

	registry := do.MustInvoke[*realtime.Registry](i)
	relay := do.MustInvoke[*realtime.Relay](i)

	trainer := realtime.NewConn("c-trainer", domain.Identity{UserID: "trainer-1", Role: domain.RoleTrainer}, 16)
	require.NoError(t, registry.Add(trainer))
	require.NoError(t, registry.Join(trainer.ID, "gym-1"))

	msg, err := relay.Send(ctx, realtime.SendRequest{
		SenderID:     "member-1",
		SenderRole:   domain.RoleMember,
		ReceiverID:   "trainer-1",
		ReceiverRole: domain.RoleTrainer,
		GymID:        "gym-1",
		Body:         "hello",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for {
			select {
			case raw := <-trainer.Outbound():
				f, err := realtime.DecodeFrame(raw)
				if err == nil && f.Event == realtime.EventMessage {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond, "message %s never reached the room", msg.ID)
}

// collectFrames reads frames of the given events from conn until n arrived.
func collectFrames(t *testing.T, conn *realtime.Conn, n int, events ...string) []realtime.Frame {
	t.Helper()
	var frames []realtime.Frame
	deadline := time.After(2 * time.Second)
	for len(frames) < n {
		select {
		case raw := <-conn.Outbound():
			f, err := realtime.DecodeFrame(raw)
			require.NoError(t, err)
			if slices.Contains(events, f.Event) {
				frames = append(frames, f)
			}
		case <-deadline:
			t.Fatalf("got %d of %d frames", len(frames), n)
		}
	}
	return frames
}

func TestContainer_RoomReceivesChangesInOrder(t *testing.T) {
	i, ctx := newContainer(t)

	registry := do.MustInvoke[*realtime.Registry](i)
	broadcaster := do.MustInvoke[*realtime.Broadcaster](i)
	relay := do.MustInvoke[*realtime.Relay](i)

	trainer := realtime.NewConn("c-trainer", domain.Identity{UserID: "trainer-1", Role: domain.RoleTrainer}, 256)
	require.NoError(t, registry.Add(trainer))
	require.NoError(t, registry.Join(trainer.ID, "gym-1"))

	t.Run("announcement lifecycle", func(t *testing.T) {
		gym := domain.Identity{UserID: "gym-1", Role: domain.RoleGym}
		for range 10 {
			a, err := broadcaster.Post(ctx, gym, "gym-1", "Closed Monday")
			require.NoError(t, err)
			_, err = broadcaster.Update(ctx, gym, a.ID, "gym-1", "Closed Tuesday")
			require.NoError(t, err)
			require.NoError(t, broadcaster.Remove(ctx, gym, a.ID, "gym-1"))

			frames := collectFrames(t, trainer, 3,
				realtime.EventAnnouncement, realtime.EventAnnouncementUpdate, realtime.EventAnnouncementDelete)
			assert.Equal(t, []string{
				realtime.EventAnnouncement, realtime.EventAnnouncementUpdate, realtime.EventAnnouncementDelete,
			}, []string{frames[0].Event, frames[1].Event, frames[2].Event})
		}
	})

	t.Run("messages of one sender", func(t *testing.T) {
		const n = 30
		for k := range n {
			_, err := relay.Send(ctx, realtime.SendRequest{
				SenderID:     "member-1",
				SenderRole:   domain.RoleMember,
				ReceiverID:   "trainer-1",
				ReceiverRole: domain.RoleTrainer,
				GymID:        "gym-1",
				Body:         fmt.Sprintf("set %d", k),
			})
			require.NoError(t, err)
		}

		frames := collectFrames(t, trainer, n, realtime.EventMessage)
		for k, f := range frames {
			var msg domain.Message
			require.NoError(t, json.Unmarshal(f.Data, &msg))
			assert.Equal(t, fmt.Sprintf("set %d", k), msg.Body)
		}
	})
}

func TestContainer_PresenceSettlesAfterChurn(t *testing.T) {
	i, _ := newContainer(t)

	registry := do.MustInvoke[*realtime.Registry](i)
	svc := do.MustInvoke[*presence.Service](i)

	for k := range 50 {
		id := fmt.Sprintf("c%d", k)
		require.NoError(t, registry.Add(realtime.NewConn(id, domain.Identity{UserID: "member-1", Role: domain.RoleMember}, 4)))
		require.NoError(t, registry.Join(id, "gym-1"))
		registry.Remove(id)
	}

	assert.Empty(t, registry.Members("gym-1"))
	require.Eventually(t, func() bool { return len(svc.Online("gym-1")) == 0 },
		presence.OfflineDebounceDelay+2*time.Second, 50*time.Millisecond)
}

func TestContainer_PresenceFollowsMembership(t *testing.T) {
	i, _ := newContainer(t)

	registry := do.MustInvoke[*realtime.Registry](i)
	svc := do.MustInvoke[*presence.Service](i)

	conn := realtime.NewConn("c1", domain.Identity{UserID: "member-1", Role: domain.RoleMember}, 16)
	require.NoError(t, registry.Add(conn))
	require.NoError(t, registry.Join("c1", "gym-1"))

	require.Eventually(t, func() bool { return svc.IsOnline("gym-1", "member-1") }, 2*time.Second, 10*time.Millisecond)
}

func TestContainer_ResolvesModuleDependencies(t *testing.T) {
	i, _ := newContainer(t)

	_, err := do.Invoke[domain.AffiliationRepository](i)
	assert.NoError(t, err)
	_, err = do.Invoke[domain.EventLogRepository](i)
	assert.NoError(t, err)
	_, err = do.Invoke[*realtime.Broadcaster](i)
	assert.NoError(t, err)
	checks, err := do.Invoke[app.HealthChecks](i)
	require.NoError(t, err)
	assert.Empty(t, checks)

	assert.Len(t, app.NewModules(), 3)
}
