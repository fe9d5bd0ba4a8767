package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/client"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/logging"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/model"
	"github.com/Gadzhovski/CLI-Network-Distributed-Systems/pkg/server"
)

func main() {
	host := flag.String("addr", "localhost", "Server host")
	port := flag.Int("port", server.DefaultPort, "Server port")
	username := flag.String("user", "", "Username to join with (prompted when empty)")
	logLevel := flag.String("log-level", "warn", "Log level: "+logging.LevelNames())
	flag.Parse()

	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: "text",
		Output: os.Stderr,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	if *port < server.MinPort || *port > server.MaxPort {
		fmt.Fprintf(os.Stderr, "invalid port %d: must be between %d and %d\n", *port, server.MinPort, server.MaxPort)
		os.Exit(1)
	}

	c, err := client.Dial(net.JoinHostPort(*host, strconv.Itoa(*port)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	stdin := bufio.NewScanner(os.Stdin)

	// Handshake loop: keep proposing usernames on the same connection until
	// the server accepts one.
	name := strings.TrimSpace(*username)
	for {
		if name == "" {
			fmt.Print("Enter your username: ")
			if !stdin.Scan() {
				return
			}
			name = strings.TrimSpace(stdin.Text())
		}
		if verr := model.ValidateUsername(name); verr != nil {
			fmt.Printf("*** Invalid username: %v. ***\n", verr)
			name = ""
			continue
		}
		if jerr := c.Join(name); jerr != nil {
			fmt.Println(jerr)
			name = ""
			continue
		}
		break
	}

	client.PrintInstructions(os.Stdout, c.Username())

	c.SetLineHandler(func(line string) {
		fmt.Println(line)
	})
	c.StartReceiving()

	go func() {
		for {
			fmt.Print("> ")
			if !stdin.Scan() {
				return
			}
			env, perr := client.ParseInput(stdin.Text())
			switch {
			case errors.Is(perr, client.ErrLogout):
				_ = c.Send(env)
				_ = c.Close()
				return
			case perr != nil:
				fmt.Printf("*** %s ***\n", strings.TrimPrefix(perr.Error(), "client: "))
				continue
			}
			if serr := c.Send(env); serr != nil {
				fmt.Fprintf(os.Stderr, "send failed: %v\n", serr)
				return
			}
		}
	}()

	// Exit when the server closes the connection (logout, kick, shutdown).
	<-c.Done()
}
