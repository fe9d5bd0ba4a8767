package server

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/filter"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/protocol"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/store"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0 // OS-assigned

	srv := New(cfg, Dependencies{History: store.NewMemory(), Filter: filter.New(nil)})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

// testClient is one live TCP connection with a buffered line reader.
type testClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dialTestServer(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) readLine(t *testing.T) string {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	return strings.TrimSuffix(line, "\n")
}

// connect performs the handshake and consumes the admission lines up to and
// including the join broadcast, leaving the stream at the first chat line.
func connect(t *testing.T, srv *Server, username string) *testClient {
	t.Helper()
	c := dialTestServer(t, srv)
	if err := protocol.WriteHandshake(c.conn, username); err != nil {
		t.Fatalf("handshake write: %v", err)
	}
	if got := c.readLine(t); got != WelcomeNotice(username) {
		t.Fatalf("handshake reply: want %q, got %q", WelcomeNotice(username), got)
	}
	for {
		line := c.readLine(t)
		if strings.HasSuffix(line, "*** "+username+" has joined the chat room. ***") {
			return c
		}
	}
}

func TestHandshakeRetrySameConnection(t *testing.T) {
	srv := startTestServer(t)

	connect(t, srv, "alice")

	// Second client proposes a taken name, then recovers on the same
	// connection.
	c := dialTestServer(t, srv)
	if err := protocol.WriteHandshake(c.conn, "alice"); err != nil {
		t.Fatalf("handshake write: %v", err)
	}
	if got := c.readLine(t); got != NoticeUsernameTaken {
		t.Fatalf("rejection: want %q, got %q", NoticeUsernameTaken, got)
	}
	if !IsRejectionNotice(NoticeUsernameTaken) {
		t.Fatal("NoticeUsernameTaken should read as a rejection")
	}

	if err := protocol.WriteHandshake(c.conn, "bob"); err != nil {
		t.Fatalf("handshake retry: %v", err)
	}
	if got := c.readLine(t); got != WelcomeNotice("bob") {
		t.Fatalf("retry reply: want %q, got %q", WelcomeNotice("bob"), got)
	}
}

func TestHandshakeRejectsInvalidUsername(t *testing.T) {
	srv := startTestServer(t)

	c := dialTestServer(t, srv)
	if err := protocol.WriteHandshake(c.conn, "no spaces!"); err != nil {
		t.Fatalf("handshake write: %v", err)
	}
	if got := c.readLine(t); !IsRejectionNotice(got) {
		t.Fatalf("invalid username accepted: %q", got)
	}
	if got := srv.Registry().Len(); got != 0 {
		t.Fatalf("registry should be empty, has %d", got)
	}
}

func TestBroadcastOverTCP(t *testing.T) {
	srv := startTestServer(t)

	alice := connect(t, srv, "alice")
	bob := connect(t, srv, "bob")

	// alice saw bob join; drain that line first.
	for {
		line := alice.readLine(t)
		if strings.HasSuffix(line, "*** bob has joined the chat room. ***") {
			break
		}
	}

	env := protocol.Envelope{Kind: protocol.KindBroadcast, Body: "hello from alice"}
	if err := protocol.WriteEnvelope(alice.conn, env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	got := bob.readLine(t)
	if !strings.HasSuffix(got, "alice(127.0.0.1): hello from alice") {
		t.Fatalf("broadcast line: got %q", got)
	}
}

func TestLogoutRemovesSession(t *testing.T) {
	srv := startTestServer(t)

	alice := connect(t, srv, "alice")
	bob := connect(t, srv, "bob")

	env := protocol.Envelope{Kind: protocol.KindLogout}
	if err := protocol.WriteEnvelope(alice.conn, env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	// bob observes the departure and the coordinator succession.
	var sawLeave, sawSuccession bool
	for i := 0; i < 4 && !(sawLeave && sawSuccession); i++ {
		line := bob.readLine(t)
		if strings.HasSuffix(line, "*** alice has left the chat room. ***") {
			sawLeave = true
		}
		if strings.HasSuffix(line, "*** New coordinator is bob ***") || line == NoticeCoordinator {
			sawSuccession = true
		}
	}
	if !sawLeave || !sawSuccession {
		t.Fatalf("missing departure or succession (leave=%t succession=%t)", sawLeave, sawSuccession)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.Registry().Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("registry: want 1 session after logout, have %d", srv.Registry().Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestListUsersOverTCP(t *testing.T) {
	srv := startTestServer(t)

	alice := connect(t, srv, "alice")

	env := protocol.Envelope{Kind: protocol.KindListUsers}
	if err := protocol.WriteEnvelope(alice.conn, env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	header := alice.readLine(t)
	if !strings.HasPrefix(header, "List of the users connected at ") {
		t.Fatalf("header: got %q", header)
	}
	entry := alice.readLine(t)
	if !strings.HasPrefix(entry, "1) alice (coordinator) since ") {
		t.Fatalf("entry: got %q", entry)
	}
}
