// Package protocol defines the wire format between chat client and server.
//
// The connection is deliberately asymmetric: the client sends framed, typed
// envelopes (plus one framed handshake string before anything else), while
// the server replies with plain newline-terminated text lines that are
// printed verbatim by the client.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxFrameSize is the maximum client-to-server frame size (64KB).
	MaxFrameSize = 65536

	// MaxHandshakeSize bounds the framed handshake string.
	MaxHandshakeSize = 256
)

// Kind identifies the type of a client-to-server envelope. It is a closed
// set; decoding any other value is an error.
type Kind int

// The zero value is deliberately not a defined kind: a frame whose JSON
// omits the kind field must fail decoding, not fall through to a default
// operation.
const (
	KindListUsers Kind = iota + 1 // request the list of connected users
	KindBroadcast                 // chat text (may carry @name addressing in the body)
	KindLogout                    // orderly disconnect
	KindKick                      // body holds the target username (coordinator only)
)

var kindNames = map[Kind]string{
	KindListUsers: "users",
	KindBroadcast: "message",
	KindLogout:    "logout",
	KindKick:      "kick",
}

var kindValues = map[string]Kind{
	"users":   KindListUsers,
	"message": KindBroadcast,
	"logout":  KindLogout,
	"kick":    KindKick,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the defined envelope kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("protocol: unknown kind %d", int(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a wire name, rejecting anything outside the closed set.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("protocol: kind: %w", err)
	}
	v, ok := kindValues[name]
	if !ok {
		return fmt.Errorf("protocol: unknown kind %q", name)
	}
	*k = v
	return nil
}

// Envelope is one typed client-to-server request. Immutable once constructed.
type Envelope struct {
	Kind Kind   `json:"kind"`
	Body string `json:"body"`
}

// WriteEnvelope writes a length-prefixed JSON envelope to a writer.
// Format: [4-byte big-endian length][JSON payload]
func WriteEnvelope(w io.Writer, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("protocol: marshal: %w", err)
	}
	return writeFrame(w, data, MaxFrameSize)
}

// ReadEnvelope reads a length-prefixed JSON envelope from a reader.
// Unknown kinds, oversized frames, and malformed JSON are all errors; the
// caller treats any of them as a fatal decode failure for the session.
func ReadEnvelope(r io.Reader) (Envelope, error) {
	data, err := readFrame(r, MaxFrameSize)
	if err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("protocol: unmarshal: %w", err)
	}
	// Kind.UnmarshalJSON never runs when the field is absent, leaving the
	// zero value behind.
	if !env.Kind.Valid() {
		return Envelope{}, errors.New("protocol: missing envelope kind")
	}
	return env, nil
}

// WriteHandshake writes the framed proposed-username string. The handshake is
// the first thing a client sends, and is repeated verbatim after a rejection.
func WriteHandshake(w io.Writer, username string) error {
	if username == "" {
		return errors.New("protocol: empty handshake")
	}
	return writeFrame(w, []byte(username), MaxHandshakeSize)
}

// ReadHandshake reads one framed proposed-username string.
func ReadHandshake(r io.Reader) (string, error) {
	data, err := readFrame(r, MaxHandshakeSize)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteLine writes one server-to-client text line. Lines never embed newlines.
func WriteLine(w io.Writer, line string) error {
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("protocol: write line: %w", err)
	}
	return nil
}

func writeFrame(w io.Writer, data []byte, limit int) error {
	if len(data) > limit {
		return fmt.Errorf("protocol: frame too large: %d bytes", len(data))
	}

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data))) //nolint:gosec // length bounds-checked above
	if _, err := w.Write(lenBuf); err != nil {
		return fmt.Errorf("protocol: write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("protocol: write payload: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, limit int) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, fmt.Errorf("protocol: read length: %w", err)
	}
	length := binary.BigEndian.Uint32(lenBuf)
	if length > uint32(limit) { //nolint:gosec // limit is a small positive constant
		return nil, fmt.Errorf("protocol: frame too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("protocol: read payload: %w", err)
	}
	return data, nil
}
