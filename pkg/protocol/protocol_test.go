package protocol

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"broadcast", Envelope{Kind: KindBroadcast, Body: "hello everyone"}},
		{"private addressed", Envelope{Kind: KindBroadcast, Body: "@bob hi there"}},
		{"kick", Envelope{Kind: KindKick, Body: "carol"}},
		{"logout", Envelope{Kind: KindLogout}},
		{"users", Envelope{Kind: KindListUsers}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteEnvelope(&buf, tt.env); err != nil {
				t.Fatalf("WriteEnvelope: %v", err)
			}
			got, err := ReadEnvelope(&buf)
			if err != nil {
				t.Fatalf("ReadEnvelope: %v", err)
			}
			if got != tt.env {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tt.env)
			}
		})
	}
}

func TestReadEnvelopeRejectsUnknownKind(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"kind":"shout","body":"hi"}`)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	buf.Write(lenBuf)
	buf.Write(payload)

	if _, err := ReadEnvelope(&buf); err == nil {
		t.Fatal("ReadEnvelope: expected error for unknown kind")
	}
}

func TestReadEnvelopeRejectsMissingKind(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"body":"whoops"}`)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	buf.Write(lenBuf)
	buf.Write(payload)

	if _, err := ReadEnvelope(&buf); err == nil {
		t.Fatal("ReadEnvelope: expected error when the kind field is absent")
	}
}

func TestReadEnvelopeRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, MaxFrameSize+1)
	buf.Write(lenBuf)

	if _, err := ReadEnvelope(&buf); err == nil {
		t.Fatal("ReadEnvelope: expected error for oversized frame")
	}
}

func TestReadEnvelopeTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, 64)
	buf.Write(lenBuf)
	buf.WriteString("short")

	if _, err := ReadEnvelope(&buf); err == nil {
		t.Fatal("ReadEnvelope: expected error for truncated payload")
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHandshake(&buf, "alice"); err != nil {
		t.Fatalf("WriteHandshake: %v", err)
	}
	got, err := ReadHandshake(&buf)
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if got != "alice" {
		t.Errorf("ReadHandshake = %q, want %q", got, "alice")
	}
}

func TestWriteHandshakeRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHandshake(&buf, ""); err == nil {
		t.Fatal("WriteHandshake: expected error for empty username")
	}
}

func TestWriteHandshakeRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHandshake(&buf, strings.Repeat("a", MaxHandshakeSize+1)); err == nil {
		t.Fatal("WriteHandshake: expected error for oversized handshake")
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindListUsers, "users"},
		{KindBroadcast, "message"},
		{KindLogout, "logout"},
		{KindKick, "kick"},
		{Kind(42), "kind(42)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindListUsers, KindBroadcast, KindLogout, KindKick} {
		if !k.Valid() {
			t.Errorf("Kind %v should be valid", k)
		}
	}
	if Kind(-1).Valid() || Kind(0).Valid() || Kind(5).Valid() {
		t.Error("out-of-range kinds should be invalid")
	}
}

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLine(&buf, "*** alice has joined the chat room. ***"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if got := buf.String(); got != "*** alice has joined the chat room. ***\n" {
		t.Errorf("WriteLine wrote %q", got)
	}
}
