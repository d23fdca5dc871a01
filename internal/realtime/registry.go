package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrUnknownConnection is returned for connection ids the registry has never seen.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrDuplicateConnection is returned when Add sees an id twice.
	ErrDuplicateConnection = errors.New("connection already registered")
	// ErrEmptyRoom is returned when joining a room with an empty id.
	ErrEmptyRoom = errors.New("room id is empty")
)

// Membership describes a room change reported to observers.
type Membership struct {
	ConnID string `json:"connId"`
	UserID string `json:"userId"`
	Room   string `json:"room"`
	Joined bool   `json:"joined"`
	// Seq increases with every change the registry makes. Notifications
	// run outside the registry lock and may interleave across goroutines;
	// observers that need the true order compare Seq.
	Seq uint64 `json:"seq"`
}

// MembershipObserver is notified after each join or leave, outside the
// registry lock.
type MembershipObserver interface {
	MembershipChanged(m Membership)
}

// Registry owns the mapping of live connections to gym rooms.
// It performs no authorization.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[string]*Conn

	seq       uint64
	observers []MembershipObserver
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics records connection gauges and broadcast counters.
func WithRegistryMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithObserver adds a membership observer.
func WithObserver(o MembershipObserver) RegistryOption {
	return func(r *Registry) { r.observers = append(r.observers, o) }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		conns:  make(map[string]*Conn),
		rooms:  make(map[string]map[string]*Conn),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a freshly connected transport. It is not in any room yet.
func (r *Registry) Add(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, c.ID)
	}
	r.conns[c.ID] = c
	r.metrics.connectionAdded()
	return nil
}

// Join puts the connection into roomID, leaving its previous room first.
// Joining the room it is already in changes nothing.
func (r *Registry) Join(connID, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}

	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConnection, connID)
	}
	if c.room == roomID {
		r.mu.Unlock()
		return nil
	}

	var changes []Membership
	if left, ok := r.detach(c); ok {
		changes = append(changes, left)
	}
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Conn)
		r.rooms[roomID] = members
	}
	members[c.ID] = c
	c.room = roomID
	c.joinedAt = r.now()
	r.metrics.joinedDelta(1)
	r.seq++
	changes = append(changes, Membership{ConnID: c.ID, UserID: c.Identity.UserID, Room: roomID, Joined: true, Seq: r.seq})
	r.mu.Unlock()

	r.logger.Debug("Connection joined room", "conn_id", connID, "room", roomID)
	r.notify(changes)
	return nil
}

// Leave removes the connection from its room. It is a no-op for unknown or
// room-less connections.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	left, changed := r.detach(c)
	r.mu.Unlock()

	if changed {
		r.notify([]Membership{left})
	}
}

// Remove forgets a disconnected transport and closes its outbound queue.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	left, changed := r.detach(c)
	delete(r.conns, connID)
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	r.metrics.connectionRemoved()
	r.mu.Unlock()

	if changed {
		r.notify([]Membership{left})
	}
}

// EvictUser makes every connection of userID leave its room and returns how
// many did. The connections stay open.
func (r *Registry) EvictUser(userID string) int {
	return r.EvictUserExcept(userID, "")
}

// EvictUserExcept is EvictUser sparing connections that are in keepRoom.
func (r *Registry) EvictUserExcept(userID, keepRoom string) int {
	r.mu.Lock()
	var changes []Membership
	for _, c := range r.conns {
		if c.Identity.UserID != userID || (keepRoom != "" && c.room == keepRoom) {
			continue
		}
		if left, ok := r.detach(c); ok {
			changes = append(changes, left)
		}
	}
	r.mu.Unlock()

	r.notify(changes)
	return len(changes)
}

// detach removes c from its room. Callers hold r.mu.
func (r *Registry) detach(c *Conn) (Membership, bool) {
	if c.room == "" {
		return Membership{}, false
	}
	room := c.room
	if members, ok := r.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	c.room = ""
	c.joinedAt = time.Time{}
	r.metrics.joinedDelta(-1)
	r.seq++
	return Membership{ConnID: c.ID, UserID: c.Identity.UserID, Room: room, Joined: false, Seq: r.seq}, true
}

func (r *Registry) notify(changes []Membership) {
	for _, ch := range changes {
		for _, o := range r.observers {
			o.MembershipChanged(ch)
		}
	}
}

// Broadcast encodes payload as an event frame and queues it on every
// connection currently in roomID. It returns the number of connections the
// frame was queued on.
func (r *Registry) Broadcast(roomID, event string, payload any) (int, error) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return 0, err
	}
	return r.BroadcastFrame(roomID, event, frame), nil
}

// BroadcastFrame queues an already encoded frame on every connection in
// roomID. A connection whose queue is full misses the frame.
func (r *Registry) BroadcastFrame(roomID, event string, frame []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, c := range r.rooms[roomID] {
		select {
		case c.send <- frame:
			delivered++
		default:
			dropped++
			r.logger.Warn("Connection send queue full, dropping frame",
				"conn_id", c.ID, "user_id", c.Identity.UserID, "room", roomID, "event", event)
		}
	}
	r.metrics.broadcast(event, delivered, dropped)
	return delivered
}

// SendTo queues a frame on a single connection. It reports false when the
// connection is unknown or its queue is full.
func (r *Registry) SendTo(connID string, frame []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok || c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// RoomOf returns the room a connection is in.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok || c.room == "" {
		return "", false
	}
	return c.room, true
}

// JoinedAt returns when the connection joined its current room.
func (r *Registry) JoinedAt(connID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok || c.room == "" {
		return time.Time{}, false
	}
	return c.joinedAt, true
}

// Members returns the connection ids in roomID, sorted.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	ids := lo.Keys(r.rooms[roomID])
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Connections int `json:"connections"`
	Joined      int `json:"joined"`
	Rooms       int `json:"rooms"`
}

// Stats returns current counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	joined := 0
	for _, members := range r.rooms {
		joined += len(members)
	}
	return Stats{Connections: len(r.conns), Joined: joined, Rooms: len(r.rooms)}
}
