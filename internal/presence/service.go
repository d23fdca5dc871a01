// Package presence tracks which users are online in each gym room and tells
// the room when that changes.
package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/realtime"
	"github.com/nfrund/gymhub/internal/websocket"
)

// OfflineDebounceDelay is how long a user stays listed after their last
// connection left a room. It absorbs page reloads.
const OfflineDebounceDelay = 5 * time.Second

// departedTTL is how long a departed connection is remembered so that a join
// delivered after its leave is not applied.
const departedTTL = time.Minute

// Update is the payload of the presence event sent to a room.
type Update struct {
	GymID string   `json:"gymId"`
	Users []string `json:"users"`
}

// connState is the last applied change for a joined connection.
type connState struct {
	room   string
	userID string
	seq    uint64
}

type departure struct {
	seq uint64
	at  time.Time
}

// Service keeps a per-room view of online users built from membership events.
// Membership events from every instance reach every Service, so the view
// covers the whole cluster; updates are delivered to local connections only.
type Service struct {
	mu    sync.RWMutex
	rooms     map[string]map[string]map[string]struct{} // gym -> user -> conn ids
	conns     map[string]connState
	departed  map[string]departure
	lastSweep time.Time

	seenMu   sync.RWMutex
	lastSeen map[string]time.Time

	debounceMu           sync.Mutex
	offlineDebounce      map[string]*time.Timer // gym/user -> pending removal
	offlineDebounceDelay time.Duration

	emitter realtime.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithOfflineDebounce overrides OfflineDebounceDelay. Zero disables debouncing.
func WithOfflineDebounce(d time.Duration) Option {
	return func(s *Service) { s.offlineDebounceDelay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the time source for last-seen stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a presence service emitting updates through emitter.
func NewService(emitter realtime.Emitter, opts ...Option) *Service {
	s := &Service{
		rooms:                make(map[string]map[string]map[string]struct{}),
		conns:                make(map[string]connState),
		departed:             make(map[string]departure),
		lastSeen:             make(map[string]time.Time),
		offlineDebounce:      make(map[string]*time.Timer),
		offlineDebounceDelay: OfflineDebounceDelay,
		emitter:              emitter,
		logger:               slog.Default().With("service", "presence"),
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to room membership and client lifecycle events.
func (s *Service) Start(ctx context.Context, sub pubsub.Subscriber) error {
	if err := pubsub.Subscribe(ctx, sub, realtime.MembershipEvent, func(ctx context.Context, m realtime.Membership, _ pubsub.Message) error {
		s.MembershipChanged(ctx, m)
		return nil
	}); err != nil {
		return err
	}
	return pubsub.Subscribe(ctx, sub, websocket.ClientDisconnectedEvent, func(_ context.Context, ev websocket.ClientLifecycle, _ pubsub.Message) error {
		s.markSeen(ev.UserID, ev.At)
		return nil
	})
}

// MembershipChanged applies one join or leave.
func (s *Service) MembershipChanged(ctx context.Context, m realtime.Membership) {
	if m.Joined {
		s.join(ctx, m)
		return
	}
	s.leave(ctx, m)
}

func (s *Service) join(ctx context.Context, m realtime.Membership) {
	s.mu.Lock()
	if d, ok := s.departed[m.ConnID]; ok && stale(m.Seq, d.seq) {
		s.mu.Unlock()
		s.logger.Debug("Ignoring join delivered after its leave", "conn_id", m.ConnID, "gym_id", m.Room)
		return
	}
	delete(s.departed, m.ConnID)

	var (
		vacated     connState
		vacatedLast bool
	)
	if cur, ok := s.conns[m.ConnID]; ok {
		if stale(m.Seq, cur.seq) {
			s.mu.Unlock()
			return
		}
		if cur.room != m.Room {
			// The leave from the previous room has not arrived yet.
			vacated, vacatedLast = s.detach(m.ConnID)
		}
	}

	users, ok := s.rooms[m.Room]
	if !ok {
		users = make(map[string]map[string]struct{})
		s.rooms[m.Room] = users
	}
	conns, wasOnline := users[m.UserID]
	if !wasOnline {
		conns = make(map[string]struct{})
		users[m.UserID] = conns
	}
	conns[m.ConnID] = struct{}{}
	s.conns[m.ConnID] = connState{room: m.Room, userID: m.UserID, seq: m.Seq}
	s.cancelDebounce(m.Room, m.UserID)
	online := sortedKeys(users)
	s.mu.Unlock()

	if vacatedLast {
		s.scheduleOffline(ctx, vacated.room, vacated.userID)
	}
	if !wasOnline {
		s.logger.Debug("User came online", "gym_id", m.Room, "user_id", m.UserID)
		s.emit(ctx, m.Room, online)
	}
}

func (s *Service) leave(ctx context.Context, m realtime.Membership) {
	s.markSeen(m.UserID, s.now())

	s.mu.Lock()
	cur, ok := s.conns[m.ConnID]
	if ok && (stale(m.Seq, cur.seq) || (m.Seq == 0 && cur.room != m.Room)) {
		s.mu.Unlock()
		return
	}
	var last bool
	if ok {
		cur, last = s.detach(m.ConnID)
	}
	s.depart(m.ConnID, m.Seq)
	s.mu.Unlock()

	if last {
		s.scheduleOffline(ctx, cur.room, cur.userID)
	}
}

// detach removes a connection from its room and reports whether it was the
// user's last one there. Callers hold s.mu.
func (s *Service) detach(connID string) (connState, bool) {
	cur, ok := s.conns[connID]
	if !ok {
		return connState{}, false
	}
	delete(s.conns, connID)
	conns := s.rooms[cur.room][cur.userID]
	delete(conns, connID)
	return cur, len(conns) == 0
}

// depart remembers that connID left and forgets old departures. Callers hold s.mu.
func (s *Service) depart(connID string, seq uint64) {
	now := s.now()
	if d, ok := s.departed[connID]; !ok || seq >= d.seq {
		s.departed[connID] = departure{seq: seq, at: now}
	}
	if now.Sub(s.lastSweep) < departedTTL {
		return
	}
	s.lastSweep = now
	for id, d := range s.departed {
		if now.Sub(d.at) > departedTTL {
			delete(s.departed, id)
		}
	}
}

// stale reports whether a change numbered seq is older than one numbered
// applied. Unnumbered changes are applied in arrival order.
func stale(seq, applied uint64) bool {
	return seq != 0 && seq < applied
}

// scheduleOffline takes the user offline in room after the debounce delay.
func (s *Service) scheduleOffline(ctx context.Context, room, userID string) {
	if s.offlineDebounceDelay == 0 {
		s.goOffline(ctx, room, userID)
		return
	}

	key := room + "/" + userID
	s.debounceMu.Lock()
	if t, exists := s.offlineDebounce[key]; exists {
		t.Stop()
	}
	s.offlineDebounce[key] = time.AfterFunc(s.offlineDebounceDelay, func() {
		s.debounceMu.Lock()
		delete(s.offlineDebounce, key)
		s.debounceMu.Unlock()
		s.goOffline(context.WithoutCancel(ctx), room, userID)
	})
	s.debounceMu.Unlock()
}

// goOffline drops the user from the room unless they reconnected meanwhile.
func (s *Service) goOffline(ctx context.Context, room, userID string) {
	s.mu.Lock()
	users := s.rooms[room]
	if conns, ok := users[userID]; !ok || len(conns) > 0 {
		s.mu.Unlock()
		return
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(s.rooms, room)
	}
	online := sortedKeys(users)
	s.mu.Unlock()

	s.logger.Debug("User went offline", "gym_id", room, "user_id", userID)
	s.emit(ctx, room, online)
}

func (s *Service) cancelDebounce(room, userID string) {
	key := room + "/" + userID
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if t, ok := s.offlineDebounce[key]; ok {
		t.Stop()
		delete(s.offlineDebounce, key)
	}
}

func (s *Service) emit(ctx context.Context, room string, users []string) {
	if err := s.emitter.Emit(ctx, room, realtime.EventPresence, Update{GymID: room, Users: users}); err != nil {
		s.logger.Error("Failed to emit presence update", "gym_id", room, "error", err)
	}
}

func (s *Service) markSeen(userID string, at time.Time) {
	if userID == "" {
		return
	}
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	if at.After(s.lastSeen[userID]) {
		s.lastSeen[userID] = at.UTC()
	}
}

// Online returns the users currently online in gymID, sorted.
func (s *Service) Online(gymID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.rooms[gymID])
}

// IsOnline reports whether userID is online in gymID.
func (s *Service) IsOnline(gymID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[gymID][userID]
	return ok
}

// LastSeen returns when userID last left a room or disconnected.
func (s *Service) LastSeen(userID string) (time.Time, bool) {
	s.seenMu.RLock()
	defer s.seenMu.RUnlock()
	t, ok := s.lastSeen[userID]
	return t, ok
}

// Shutdown cancels pending offline updates.
func (s *Service) Shutdown() {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	for key, t := range s.offlineDebounce {
		t.Stop()
		delete(s.offlineDebounce, key)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
