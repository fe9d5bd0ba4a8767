package server

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/protocol"
)

var (
	// ErrUsernameTaken is returned when a handshake proposes a username
	// already reserved by a live session.
	ErrUsernameTaken = errors.New("server: username already taken")

	// ErrNoSuchUser is returned when a private send or kick names a
	// username with no live session.
	ErrNoSuchUser = errors.New("server: no such user")
)

// defaultWriteTimeout bounds a single line write to one client so a stalled
// connection cannot pin the registry lock indefinitely. A timed-out write is
// treated like any other write failure: the session is dropped.
const defaultWriteTimeout = 5 * time.Second

// member pairs a session record with its live connection. The connection
// reference never leaves the registry; handlers own the read side, the
// registry owns all writes.
type member struct {
	sess model.Session
	conn net.Conn
}

// Registry is the authoritative, lock-protected set of live sessions plus
// reserved usernames. All operations are atomic with respect to each other;
// the raw collection is never exposed to callers.
//
// Invariants held under the single mutex:
//   - usernames are unique across live sessions;
//   - when non-empty, exactly one session is coordinator, and it is the
//     oldest still-live session (join order);
//   - removal is idempotent: removing an absent ID is a no-op.
type Registry struct {
	mu           sync.Mutex
	members      []*member // join order
	names        map[string]int64
	nextID       int64
	writeTimeout time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:        make(map[string]int64),
		writeTimeout: defaultWriteTimeout,
	}
}

// Register atomically reserves username and appends a new session for conn.
// The first session in an empty registry becomes coordinator. Returns the
// session snapshot, or ErrUsernameTaken.
//
// When greet is non-nil its lines are written to conn before the member
// becomes visible to Broadcast, still under the registry lock, so an
// accepted client always reads its admission lines before any chat line. A
// greet write failure aborts the registration entirely.
func (r *Registry) Register(username string, conn net.Conn, greet func(model.Session) []string) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[username]; taken {
		return model.Session{}, ErrUsernameTaken
	}

	r.nextID++
	m := &member{
		sess: model.Session{
			ID:          r.nextID,
			Username:    username,
			Coordinator: len(r.members) == 0,
			RemoteAddr:  remoteHost(conn),
			JoinedAt:    time.Now(),
		},
		conn: conn,
	}
	if greet != nil {
		for _, line := range greet(m.sess) {
			if err := r.writeLocked(m, line); err != nil {
				return model.Session{}, fmt.Errorf("register %q: %w", username, err)
			}
		}
	}
	r.members = append(r.members, m)
	r.names[username] = m.sess.ID
	return m.sess, nil
}

// Unregister removes the session by ID, releasing its username reservation.
// If the removed session was coordinator and sessions remain, the oldest
// remaining session is promoted and returned for notification. Removing an
// unknown ID is a no-op with ok=false.
func (r *Registry) Unregister(id int64) (removed model.Session, promoted *model.Session, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

// Get returns a snapshot of the session with the given ID.
func (r *Registry) Get(id int64) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.sess.ID == id {
			return m.sess, true
		}
	}
	return model.Session{}, false
}

// Find returns a snapshot of the session with the given username.
func (r *Registry) Find(username string) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.names[username]; ok {
		for _, m := range r.members {
			if m.sess.ID == id {
				return m.sess, true
			}
		}
	}
	return model.Session{}, false
}

// Snapshot returns the live sessions in join order.
func (r *Registry) Snapshot() []model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Session, len(r.members))
	for i, m := range r.members {
		out[i] = m.sess
	}
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Broadcast writes line to every live session. Sessions whose write fails
// are removed (treated as disconnected) without aborting the broadcast; the
// whole operation, including removals and any coordinator promotion, runs
// under the registry lock so it observes one consistent membership.
func (r *Registry) Broadcast(line string) (dropped []model.Session, promoted *model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var failed []int64
	for _, m := range r.members {
		if err := r.writeLocked(m, line); err != nil {
			failed = append(failed, m.sess.ID)
		}
	}
	return r.dropLocked(failed)
}

// SendTo writes line to the session with the given username. A write failure
// drops the target as disconnected; the line counts as handled either way.
// Returns ErrNoSuchUser when no live session has that username.
func (r *Registry) SendTo(username, line string) (dropped []model.Session, promoted *model.Session, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.findLocked(username)
	if m == nil {
		return nil, nil, ErrNoSuchUser
	}
	if werr := r.writeLocked(m, line); werr != nil {
		dropped, promoted = r.dropLocked([]int64{m.sess.ID})
	}
	return dropped, promoted, nil
}

// Evict forcibly disconnects the named session: it receives notice (on a
// best-effort basis), its connection is closed, and it is removed with the
// usual coordinator succession. Returns ErrNoSuchUser when absent.
func (r *Registry) Evict(username, notice string) (removed model.Session, promoted *model.Session, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.findLocked(username)
	if m == nil {
		return model.Session{}, nil, ErrNoSuchUser
	}
	_ = r.writeLocked(m, notice)
	_ = m.conn.Close()
	removed, promoted, _ = r.removeLocked(m.sess.ID)
	return removed, promoted, nil
}

// CloseAll notifies every live session and closes its connection. Used on
// server shutdown; the registry is empty afterwards.
func (r *Registry) CloseAll(notice string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if notice != "" {
			_ = r.writeLocked(m, notice)
		}
		_ = m.conn.Close()
	}
	r.members = nil
	r.names = make(map[string]int64)
}

// findLocked returns the live member with the given username, or nil.
func (r *Registry) findLocked(username string) *member {
	id, ok := r.names[username]
	if !ok {
		return nil
	}
	for _, m := range r.members {
		if m.sess.ID == id {
			return m
		}
	}
	return nil
}

// removeLocked removes the member with the given ID and promotes the oldest
// remaining session if the coordinator left.
func (r *Registry) removeLocked(id int64) (removed model.Session, promoted *model.Session, ok bool) {
	for i, m := range r.members {
		if m.sess.ID != id {
			continue
		}
		removed = m.sess
		r.members = append(r.members[:i], r.members[i+1:]...)
		delete(r.names, removed.Username)

		if removed.Coordinator && len(r.members) > 0 {
			r.members[0].sess.Coordinator = true
			p := r.members[0].sess
			promoted = &p
		}
		return removed, promoted, true
	}
	return model.Session{}, nil, false
}

// dropLocked removes every listed session, closing its connection. At most
// one promotion results; with several removals the succession still lands on
// the oldest survivor because removals run in join order.
func (r *Registry) dropLocked(ids []int64) (dropped []model.Session, promoted *model.Session) {
	for _, id := range ids {
		removed, p, ok := r.removeLocked(id)
		if !ok {
			continue
		}
		dropped = append(dropped, removed)
		if p != nil {
			promoted = p
		}
	}
	// A promotion is only reported if the promoted session survived the
	// whole sweep; a later removal of it produces the next promotion above.
	if promoted != nil {
		if _, live := r.names[promoted.Username]; !live {
			promoted = nil
		}
	}
	return dropped, promoted
}

// writeLocked writes one text line to a member with a bounded deadline so a
// stalled client cannot hold the lock forever.
func (r *Registry) writeLocked(m *member, line string) error {
	if r.writeTimeout > 0 {
		_ = m.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
		defer func() { _ = m.conn.SetWriteDeadline(time.Time{}) }()
	}
	return protocol.WriteLine(m.conn, line)
}

// remoteHost extracts the host portion of the connection's remote address.
func remoteHost(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
