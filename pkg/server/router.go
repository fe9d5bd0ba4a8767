package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/filter"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/store"
)

var (
	// ErrEmptyMessage is returned for broadcasts whose trimmed body is
	// empty. Silently dropped; clients validate locally.
	ErrEmptyMessage = errors.New("server: empty message")

	// ErrMessageFiltered is returned when the bad-word filter rejects a
	// broadcast. The sender has already been warned.
	ErrMessageFiltered = errors.New("server: message contains a banned word")

	// ErrNotAuthorized is returned when a non-coordinator requests a kick.
	ErrNotAuthorized = errors.New("server: not authorized")
)

// Notice texts pushed to clients. Kept as constants so tests and the client
// handshake can match on them.
const (
	NoticeUsernameTaken = "*** Username already taken. Please choose a different username. ***"
	NoticeNoSuchUser    = "*** Sorry. No such user exists. ***"
	NoticeNotAuthorized = "*** You are not authorized to kick users. ***"
	NoticeKicked        = "*** You have been kicked by the coordinator. ***"
	NoticeCoordinator   = "*** You are the coordinator ***"
	NoticeBadWord       = "Warning: Your message contains a banned word."
	NoticeShutdown      = "*** Server is shutting down. ***"

	welcomePrefix = "*** Welcome to the chat room, "
)

const timeLayout = "15:04:05"

// WelcomeNotice is the acceptance line written right after a successful
// handshake, before any broadcast reaches the new session.
func WelcomeNotice(username string) string {
	return welcomePrefix + username + ". ***"
}

// IsRejectionNotice reports whether a handshake reply line is a rejection.
// The client retries the handshake when it sees one.
func IsRejectionNotice(line string) bool {
	return !strings.HasPrefix(line, welcomePrefix)
}

// Router implements the chat operations over the session registry:
// broadcast, private delivery, kick, and user listing. Every operation
// contains its failures to the session that caused them; the router never
// takes the server down on a per-session error.
type Router struct {
	reg     *Registry
	filter  *filter.Filter
	history store.HistoryStore
	metrics *Metrics
	now     func() time.Time
}

// NewRouter wires a router over the given registry and collaborators.
// filter and history may be nil (filtering and persistence disabled).
func NewRouter(reg *Registry, f *filter.Filter, history store.HistoryStore, metrics *Metrics) *Router {
	return &Router{
		reg:     reg,
		filter:  f,
		history: history,
		metrics: metrics,
		now:     time.Now,
	}
}

// Register reserves the username and plays the admission sequence for the
// new session: welcome line, coordinator notice when it is the first one,
// and the join broadcast to everyone. The welcome lines are written inside
// the registration critical section so concurrent broadcasts cannot reach
// the new session first.
func (r *Router) Register(username string, conn net.Conn) (model.Session, error) {
	sess, err := r.reg.Register(username, conn, func(s model.Session) []string {
		lines := []string{WelcomeNotice(s.Username)}
		if s.Coordinator {
			lines = append(lines, NoticeCoordinator)
		}
		return lines
	})
	if err != nil {
		return model.Session{}, err
	}

	if sess.Coordinator {
		slog.Info("coordinator assigned", "user", sess.Username)
	}
	r.Notice(fmt.Sprintf("*** %s has joined the chat room. ***", sess.Username))
	return sess, nil
}

// Disconnect unregisters a session, announcing the departure and any
// coordinator promotion. Safe to call more than once per session.
func (r *Router) Disconnect(id int64) {
	removed, promoted, ok := r.reg.Unregister(id)
	if !ok {
		return // already removed (kicked or dropped mid-broadcast)
	}

	r.metrics.Disconnects.Add(1)
	slog.Info("client disconnected", "user", removed.Username, "session", removed.ID)
	r.Notice(fmt.Sprintf("*** %s has left the chat room. ***", removed.Username))
	r.announcePromotion(promoted)
}

// Broadcast delivers text from sender to every live session. A leading
// @name token routes the message to private delivery instead. Filtered or
// empty messages are dropped with only the sender notified (or nobody, for
// empty ones).
func (r *Router) Broadcast(sender model.Session, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	if target, rest, ok := splitAddressed(text); ok {
		return r.PrivateSend(sender, target, rest)
	}

	// Content filtering applies to the message body only, never to the
	// sender name or display decoration.
	if r.filter.Contains(text) {
		r.metrics.FilteredMessages.Add(1)
		slog.Debug("message filtered", "user", sender.Username)
		r.sendTo(sender.Username, NoticeBadWord)
		return ErrMessageFiltered
	}

	ts := r.now()
	line := fmt.Sprintf("%s %s(%s): %s", ts.Format(timeLayout), sender.Username, sender.RemoteAddr, text)

	r.appendHistory(sender.Username, text, ts)
	r.deliverAll(line)
	r.metrics.BroadcastsSent.Add(1)
	return nil
}

// Notice broadcasts a system line (join/leave/kick/promotion) to every live
// session. Notices go through the same delivery path as chat but are exempt
// from addressing, filtering, and the sender address suffix.
func (r *Router) Notice(text string) {
	ts := r.now()
	r.appendHistory("", text, ts)
	r.deliverAll(ts.Format(timeLayout) + " " + text)
}

// PrivateSend delivers text to exactly the session named target. On an
// unknown target the sender receives a notice and ErrNoSuchUser is returned;
// nobody else is affected. Private messages never touch the history log.
func (r *Router) PrivateSend(sender model.Session, target, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	line := fmt.Sprintf("%s *** private *** %s(%s): %s",
		r.now().Format(timeLayout), sender.Username, sender.RemoteAddr, text)

	dropped, promoted, err := r.reg.SendTo(target, line)
	r.afterDrops(dropped, promoted)
	if err != nil {
		r.sendTo(sender.Username, NoticeNoSuchUser)
		return fmt.Errorf("private send to %q: %w", target, err)
	}
	r.metrics.PrivateMessages.Add(1)
	return nil
}

// Kick forcibly disconnects target on behalf of requester. Only the
// coordinator may kick; everyone else gets an authorization notice and no
// state changes.
func (r *Router) Kick(requester model.Session, target string) error {
	if !requester.Coordinator {
		r.sendTo(requester.Username, NoticeNotAuthorized)
		return ErrNotAuthorized
	}

	removed, promoted, err := r.reg.Evict(target, NoticeKicked)
	if err != nil {
		r.sendTo(requester.Username, NoticeNoSuchUser)
		return fmt.Errorf("kick %q: %w", target, err)
	}

	r.metrics.KickCount.Add(1)
	slog.Info("user kicked", "target", removed.Username, "by", requester.Username)
	r.Notice(fmt.Sprintf("*** %s has been kicked by the coordinator. ***", removed.Username))
	r.announcePromotion(promoted)
	return nil
}

// ListUsers sends the requester a numbered snapshot of the live sessions
// with their join timestamps. Does not mutate state.
func (r *Router) ListUsers(requester model.Session) {
	sessions := r.reg.Snapshot()
	r.sendTo(requester.Username, "List of the users connected at "+r.now().Format(timeLayout))
	for i, s := range sessions {
		r.sendTo(requester.Username, fmt.Sprintf("%d) %s since %s", i+1, s.DisplayName(), s.JoinedAt.Format(time.ANSIC)))
	}
}

// deliverAll pushes a line to everyone and handles write-failure drops.
func (r *Router) deliverAll(line string) {
	dropped, promoted := r.reg.Broadcast(line)
	r.afterDrops(dropped, promoted)
}

// afterDrops logs sessions removed because their connection write failed
// and announces any resulting coordinator promotion. Dropped sessions get no
// departure broadcast here; their handler observes the closed connection and
// finishes its own teardown, where Disconnect is already a no-op.
func (r *Router) afterDrops(dropped []model.Session, promoted *model.Session) {
	for _, s := range dropped {
		r.metrics.Disconnects.Add(1)
		slog.Info("disconnected client removed", "user", s.Username, "session", s.ID)
	}
	r.announcePromotion(promoted)
}

// announcePromotion notifies the promoted session and broadcasts the
// succession.
func (r *Router) announcePromotion(promoted *model.Session) {
	if promoted == nil {
		return
	}
	slog.Info("coordinator reassigned", "user", promoted.Username)
	r.sendTo(promoted.Username, NoticeCoordinator)
	r.Notice(fmt.Sprintf("*** New coordinator is %s ***", promoted.Username))
}

// appendHistory records a broadcast line, containing persistence failures to
// a server-side log entry.
func (r *Router) appendHistory(sender, body string, ts time.Time) {
	if r.history == nil {
		return
	}
	m := model.Message{Sender: sender, Body: body, CreatedAt: ts}
	if err := r.history.AppendMessage(&m); err != nil {
		slog.Error("history append failed", "err", err)
	}
}

// sendTo writes one line to a named session, ignoring unknown targets
// (the session may have raced away).
func (r *Router) sendTo(username, line string) {
	dropped, promoted, err := r.reg.SendTo(username, line)
	if err != nil {
		return
	}
	r.afterDrops(dropped, promoted)
}

// splitAddressed reports whether text is addressed to a single user via a
// leading @name token, returning the target and the remainder. Only the
// first whitespace-delimited token is inspected; later content is opaque.
func splitAddressed(text string) (target, rest string, ok bool) {
	if !strings.HasPrefix(text, "@") {
		return "", "", false
	}
	first, remainder, _ := strings.Cut(text, " ")
	target = strings.TrimPrefix(first, "@")
	if target == "" {
		return "", "", false
	}
	return target, strings.TrimSpace(remainder), true
}
