package client

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/protocol"
)

var (
	// ErrEmptyInput is returned for blank console lines.
	ErrEmptyInput = errors.New("client: message cannot be empty")

	// ErrKickMissingTarget is returned for a KICK command with no username.
	ErrKickMissingTarget = errors.New("client: KICK command must include a username")

	// ErrLogout signals that the user asked to leave; the caller sends the
	// logout envelope and stops reading input.
	ErrLogout = errors.New("client: logout requested")
)

// ParseInput turns one console line into the envelope to send. Command words
// are uppercase by convention: USERS lists the room, LOGOUT leaves, and
// "KICK username" asks for a forced disconnect. Anything else, including
// "@username ..." private addressing, goes to the server as a broadcast.
func ParseInput(line string) (protocol.Envelope, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return protocol.Envelope{}, ErrEmptyInput
	}

	switch {
	case line == "LOGOUT":
		return protocol.Envelope{Kind: protocol.KindLogout}, ErrLogout
	case line == "USERS":
		return protocol.Envelope{Kind: protocol.KindListUsers}, nil
	case strings.HasPrefix(line, "KICK"):
		target := strings.TrimSpace(strings.TrimPrefix(line, "KICK"))
		if target == "" {
			return protocol.Envelope{}, ErrKickMissingTarget
		}
		return protocol.Envelope{Kind: protocol.KindKick, Body: target}, nil
	default:
		return protocol.Envelope{Kind: protocol.KindBroadcast, Body: line}, nil
	}
}

// ANSI color codes for the instruction banner.
const (
	colorPurple = "\033[35m"
	colorGreen  = "\033[32m"
	colorReset  = "\033[0m"
)

// PrintInstructions writes the welcome banner and command reference.
func PrintInstructions(w io.Writer, username string) {
	fmt.Fprintf(w, "%sHey %s%s%s, welcome to the Chatroom!%s\n\n", colorPurple, colorGreen, username, colorPurple, colorReset)
	fmt.Fprintf(w, "%sInstructions:%s\n", colorPurple, colorReset)
	fmt.Fprintf(w, "%s1. To send a message to all active clients, simply type your message.%s\n", colorPurple, colorReset)
	fmt.Fprintf(w, "%s2. To send a message to a specific client, type \"@username message\".%s\n", colorPurple, colorReset)
	fmt.Fprintf(w, "%s3. To see a list of active clients, type \"USERS\".%s\n", colorPurple, colorReset)
	fmt.Fprintf(w, "%s4. To log off from the server, type \"LOGOUT\".%s\n", colorPurple, colorReset)
	fmt.Fprintf(w, "%s5. To kick a client from the server, type \"KICK username\" (coordinator only).%s\n", colorPurple, colorReset)
}
