package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/protocol"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    protocol.Envelope
		wantErr error
	}{
		{
			name: "plain message broadcasts",
			in:   "hello everyone",
			want: protocol.Envelope{Kind: protocol.KindBroadcast, Body: "hello everyone"},
		},
		{
			name: "private addressing passes through as broadcast",
			in:   "@bob secret",
			want: protocol.Envelope{Kind: protocol.KindBroadcast, Body: "@bob secret"},
		},
		{
			name: "USERS lists the room",
			in:   "USERS",
			want: protocol.Envelope{Kind: protocol.KindListUsers},
		},
		{
			name:    "LOGOUT leaves",
			in:      "LOGOUT",
			want:    protocol.Envelope{Kind: protocol.KindLogout},
			wantErr: ErrLogout,
		},
		{
			name: "KICK with target",
			in:   "KICK bob",
			want: protocol.Envelope{Kind: protocol.KindKick, Body: "bob"},
		},
		{
			name:    "KICK without target",
			in:      "KICK",
			wantErr: ErrKickMissingTarget,
		},
		{
			name:    "KICK with only spaces",
			in:      "KICK   ",
			wantErr: ErrKickMissingTarget,
		},
		{
			name:    "empty input",
			in:      "",
			wantErr: ErrEmptyInput,
		},
		{
			name:    "whitespace only",
			in:      "   ",
			wantErr: ErrEmptyInput,
		},
		{
			name: "lowercase command words are ordinary text",
			in:   "logout",
			want: protocol.Envelope{Kind: protocol.KindBroadcast, Body: "logout"},
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "  hi there  ",
			want: protocol.Envelope{Kind: protocol.KindBroadcast, Body: "hi there"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err: want %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr != nil && tt.wantErr != ErrLogout {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("envelope mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrintInstructions(t *testing.T) {
	var sb strings.Builder
	PrintInstructions(&sb, "alice")

	out := sb.String()
	for _, want := range []string{"alice", "USERS", "LOGOUT", "KICK username"} {
		if !strings.Contains(out, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}
