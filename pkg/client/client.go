// Package client implements the console chat client networking.
package client

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/protocol"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/server"
)

// LineHandler is a callback for incoming server lines.
type LineHandler func(line string)

// Client manages the TCP connection to the chat server.
type Client struct {
	conn     net.Conn
	reader   *bufio.Reader
	mu       sync.Mutex
	handler  LineHandler
	done     chan struct{}
	username string
}

// Dial connects to the chat server. No handshake happens yet; call Join.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("client: connect: %w", err)
	}
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		done:   make(chan struct{}),
	}, nil
}

// Join proposes username to the server and reads the reply line. On a
// rejection it returns the server's notice as an error and the connection
// stays usable for another attempt.
func (c *Client) Join(username string) error {
	if err := protocol.WriteHandshake(c.conn, username); err != nil {
		return fmt.Errorf("client: send username: %w", err)
	}

	reply, err := c.readLine()
	if err != nil {
		return fmt.Errorf("client: read handshake reply: %w", err)
	}
	if server.IsRejectionNotice(reply) {
		return fmt.Errorf("%s", reply)
	}

	c.username = username
	return nil
}

// Username returns the accepted username. Empty before a successful Join.
func (c *Client) Username() string {
	return c.username
}

// SetLineHandler sets the callback for incoming server lines.
func (c *Client) SetLineHandler(handler LineHandler) {
	c.handler = handler
}

// Send sends one envelope to the server.
func (c *Client) Send(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.WriteEnvelope(c.conn, env)
}

// StartReceiving starts a goroutine that reads incoming lines and dispatches
// them to the line handler until the connection is lost.
func (c *Client) StartReceiving() {
	go func() {
		defer close(c.done)
		for {
			line, err := c.readLine()
			if err != nil {
				if err == io.EOF || isClosedErr(err) {
					slog.Debug("connection closed")
					return
				}
				slog.Error("read error", "err", err)
				return
			}
			if c.handler != nil {
				c.handler(line)
			}
		}
	}()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Done returns a channel that's closed when the connection is lost.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func isClosedErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection reset by peer")
}
