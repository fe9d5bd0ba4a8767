package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/protocol"
)

// handshakeTimeout bounds a single handshake read; a client that connects
// and never proposes a username is dropped. Once a session is active the
// server blocks indefinitely for the next envelope.
const handshakeTimeout = 30 * time.Second

// handleConn drives one client connection through its lifecycle:
// handshake, then the active envelope loop, then teardown. The handler owns
// the read side of the connection exclusively; all writes go through the
// registry.
func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)

	remote := conn.RemoteAddr().String()
	slog.Debug("new connection", "remote", remote)

	sess, ok := s.handshake(conn)
	if !ok {
		return
	}
	// Teardown: announces the departure and reassigns the coordinator if
	// needed. A no-op when the session was already removed (kick, failed
	// write during a broadcast).
	defer s.router.Disconnect(sess.ID)

	slog.Info("client joined", "user", sess.Username, "session", sess.ID, "remote", remote)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		env, err := protocol.ReadEnvelope(conn)
		if err != nil {
			// EOF and closed-connection errors are ordinary leaves;
			// anything else (bad frame, unknown kind) still ends the
			// session but is worth a log line.
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !isClosedErr(err) {
				slog.Warn("read error", "user", sess.Username, "err", err)
			}
			return
		}

		if done := s.dispatch(sess, env); done {
			return
		}
	}
}

// dispatch routes one decoded envelope. Returns true when the session is
// finished (logout).
func (s *Server) dispatch(sess model.Session, env protocol.Envelope) (done bool) {
	// The coordinator flag may have changed since the handshake; use the
	// registry's current view of this session.
	cur, ok := s.registry.Get(sess.ID)
	if !ok {
		return true // removed concurrently (kicked)
	}

	switch env.Kind {
	case protocol.KindBroadcast:
		_ = s.router.Broadcast(cur, env.Body)
	case protocol.KindLogout:
		return true
	case protocol.KindKick:
		_ = s.router.Kick(cur, strings.TrimSpace(env.Body))
	case protocol.KindListUsers:
		s.router.ListUsers(cur)
	default:
		// ReadEnvelope rejects unknown kinds; a new kind reaching here is
		// a server bug, not client input.
		slog.Error("unhandled envelope kind", "kind", env.Kind.String())
		return true
	}
	return false
}

// handshake reads proposed usernames until one is accepted, staying on the
// same connection across rejections. Returns ok=false when the connection
// dies or the client stalls.
func (s *Server) handshake(conn net.Conn) (model.Session, bool) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
		name, err := protocol.ReadHandshake(conn)
		if err != nil {
			slog.Debug("handshake failed", "remote", conn.RemoteAddr(), "err", err)
			return model.Session{}, false
		}
		_ = conn.SetReadDeadline(time.Time{})

		name = strings.TrimSpace(name)
		if verr := model.ValidateUsername(name); verr != nil {
			s.metrics.HandshakeRejects.Add(1)
			if werr := protocol.WriteLine(conn, "*** Invalid username: "+verr.Error()+". ***"); werr != nil {
				return model.Session{}, false
			}
			continue
		}

		sess, err := s.router.Register(name, conn)
		if errors.Is(err, ErrUsernameTaken) {
			s.metrics.HandshakeRejects.Add(1)
			if werr := protocol.WriteLine(conn, NoticeUsernameTaken); werr != nil {
				return model.Session{}, false
			}
			continue
		}
		if err != nil {
			return model.Session{}, false
		}
		return sess, true
	}
}

// isClosedErr matches the textual closed-connection errors that the net
// package does not wrap.
func isClosedErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection reset by peer")
}
