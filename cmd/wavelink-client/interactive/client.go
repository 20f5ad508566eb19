// Package interactive provides the interactive command prompt for
// wavelink-client.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/wavelink-protocol/wavelink-go/pkg/connection"
	"github.com/wavelink-protocol/wavelink-go/pkg/router"
	"github.com/wavelink-protocol/wavelink-go/pkg/session"
)

// chatMessageType is the envelope type used by the demo prompt.
const chatMessageType = "chat.message"

// ChatMessage is the demo payload exchanged with an echo endpoint.
type ChatMessage struct {
	Body   string    `cbor:"1,keyasint"`
	SentAt time.Time `cbor:"2,keyasint,omitempty"`
}

// Client handles interactive mode for wavelink-client.
type Client struct {
	sess *session.Session
	rl   *readline.Instance
}

// New creates the interactive handler and registers its message handler
// on the session's router.
func New(sess *session.Session) (*Client, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "wavelink> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &Client{
		sess: sess,
		rl:   rl,
	}

	router.Register(sess.Router(), chatMessageType, func(msg ChatMessage) {
		fmt.Fprintf(rl.Stdout(), "<- %s\n", msg.Body)
	})

	return c, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (c *Client) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Client) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect":
			c.cmdConnect(ctx)

		case "disconnect":
			c.cmdDisconnect()

		case "send", "s":
			c.cmdSend(strings.TrimSpace(strings.TrimPrefix(input, parts[0])))

		case "state", "status":
			c.cmdState()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (try 'help')\n", cmd)
			_ = args
		}
	}
}

func (c *Client) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `Commands:
  connect          Bring the session up
  disconnect       Tear the session down
  send <text>      Send a chat message (echoed back by wavelink-echo)
  state            Show the connection state
  help             Show this help
  quit             Exit`)
}

func (c *Client) cmdConnect(ctx context.Context) {
	if err := c.sess.Connect(ctx); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v (reconnecting in background)\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Connected")
}

func (c *Client) cmdDisconnect() {
	c.sess.Disconnect()
	fmt.Fprintln(c.rl.Stdout(), "Disconnected")
}

func (c *Client) cmdSend(text string) {
	if text == "" {
		fmt.Fprintln(c.rl.Stdout(), "Usage: send <text>")
		return
	}

	err := c.sess.Send(chatMessageType, ChatMessage{
		Body:   text,
		SentAt: time.Now(),
	})
	switch {
	case errors.Is(err, connection.ErrNotConnected):
		fmt.Fprintln(c.rl.Stdout(), "Not connected (try 'connect')")
	case err != nil:
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
	}
}

func (c *Client) cmdState() {
	fmt.Fprintf(c.rl.Stdout(), "State: %s\n", c.sess.State().String())
}
