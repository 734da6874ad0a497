package channels

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/config"
	"github.com/dotsetgreg/agenthost/pkg/logger"
	"github.com/dotsetgreg/agenthost/pkg/schema"
)

const consoleConversationID = "console"

// ConsoleChannel is an interactive terminal adapter. Each line typed
// becomes an inbound message activity; outbound activities print to
// stdout.
type ConsoleChannel struct {
	*BaseChannel
	config config.ConsoleConfig
	rl     *readline.Instance
	cancel context.CancelFunc
}

func NewConsoleChannel(cfg config.ConsoleConfig, activityBus *bus.ActivityBus) *ConsoleChannel {
	return &ConsoleChannel{
		BaseChannel: NewBaseChannel("console", activityBus, nil),
		config:      cfg,
	}
}

func (c *ConsoleChannel) Start(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".agenthost_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	c.rl = rl

	readCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.setRunning(true)

	go c.readLoop(readCtx)
	return nil
}

func (c *ConsoleChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.cancel != nil {
		c.cancel()
	}
	if c.rl != nil {
		return c.rl.Close()
	}
	return nil
}

func (c *ConsoleChannel) readLoop(ctx context.Context) {
	userID := c.config.UserID
	if userID == "" {
		userID = "console-user"
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				logger.InfoC("console", "Console input closed")
				return
			}
			logger.WarnCF("console", "Error reading input", map[string]any{
				"error": err.Error(),
			})
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		c.HandleMessage(userID, userID, consoleConversationID, input, nil)
	}
}

func (c *ConsoleChannel) Send(ctx context.Context, a *schema.Activity) error {
	if a.Text == "" {
		return nil
	}
	fmt.Printf("\n%s\n\n", a.Text)
	return nil
}
