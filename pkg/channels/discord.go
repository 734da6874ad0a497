package channels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/config"
	"github.com/dotsetgreg/agenthost/pkg/logger"
	"github.com/dotsetgreg/agenthost/pkg/schema"
)

const (
	sendTimeout = 10 * time.Second
	// Discord caps messages at 2000 characters; leave headroom so chunks
	// can extend over code block boundaries.
	discordChunkLimit = 1500
)

// DiscordChannel bridges a Discord bot session onto the activity bus.
// Conversation ids map to Discord channel ids.
type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
	config  config.DiscordConfig
}

func NewDiscordChannel(cfg config.DiscordConfig, activityBus *bus.ActivityBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", activityBus, cfg.AllowFrom),
		session:     session,
		config:      cfg,
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC("discord", "Starting Discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	c.setRunning(true)

	botUser, err := c.session.User("@me")
	if err != nil {
		return fmt.Errorf("failed to get bot user: %w", err)
	}
	logger.InfoCF("discord", "Discord bot connected", map[string]any{
		"username": botUser.Username,
		"user_id":  botUser.ID,
	})

	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC("discord", "Stopping Discord bot")
	c.setRunning(false)

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

func (c *DiscordChannel) Send(ctx context.Context, a *schema.Activity) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}

	channelID := a.Conversation.ID
	if channelID == "" {
		return fmt.Errorf("conversation id is empty")
	}
	if a.Text == "" {
		return nil
	}

	for _, chunk := range splitMessage(a.Text, discordChunkLimit) {
		if err := c.sendChunk(ctx, channelID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSend(channelID, content)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send message timeout: %w", sendCtx.Err())
	}
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil {
		return
	}
	if m.Author.ID == s.State.User.ID {
		return
	}
	if !c.IsAllowed(m.Author.ID) {
		logger.DebugCF("discord", "Message rejected by allowlist", map[string]any{
			"user_id": m.Author.ID,
		})
		return
	}

	content := m.Content
	for _, attachment := range m.Attachments {
		content = appendContent(content, fmt.Sprintf("[attachment: %s]", attachment.URL))
	}
	if content == "" {
		return
	}

	metadata := map[string]string{
		"message_id": m.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
		"channel_id": m.ChannelID,
		"is_dm":      fmt.Sprintf("%t", m.GuildID == ""),
	}

	c.HandleMessage(m.Author.ID, m.Author.Username, m.ChannelID, content, metadata)
}

// appendContent safely appends suffix text to existing content.
func appendContent(content, suffix string) string {
	if content == "" {
		return suffix
	}
	return content + "\n" + suffix
}

// splitMessage splits long messages into chunks, preferring natural
// boundaries (newlines, then spaces) and extending a chunk rather than
// cutting a fenced code block in half.
func splitMessage(content string, limit int) []string {
	var messages []string

	for len(content) > 0 {
		if len(content) <= limit {
			messages = append(messages, content)
			break
		}

		msgEnd := findLastNewline(content[:limit], 200)
		if msgEnd <= 0 {
			msgEnd = findLastSpace(content[:limit], 100)
		}
		if msgEnd <= 0 {
			msgEnd = limit
		}

		if openIdx := findUnclosedCodeBlock(content[:msgEnd]); openIdx >= 0 {
			// Extend up to the closing fence if it is near, otherwise
			// split before the block starts.
			if closeIdx := findClosingCodeBlock(content, msgEnd); closeIdx > 0 && closeIdx <= limit+500 {
				msgEnd = closeIdx
			} else {
				before := findLastNewline(content[:openIdx], 200)
				if before <= 0 {
					before = openIdx
				}
				msgEnd = before
			}
		}

		if msgEnd <= 0 {
			msgEnd = limit
		}

		messages = append(messages, content[:msgEnd])
		content = strings.TrimSpace(content[msgEnd:])
	}

	return messages
}

// findUnclosedCodeBlock returns the offset of the last unmatched ``` or
// -1 when all fences are balanced.
func findUnclosedCodeBlock(text string) int {
	count := 0
	lastOpenIdx := -1
	for i := 0; i+2 < len(text); i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			if count%2 == 0 {
				lastOpenIdx = i
			}
			count++
			i += 2
		}
	}
	if count%2 == 1 {
		return lastOpenIdx
	}
	return -1
}

// findClosingCodeBlock returns the offset just past the next ``` at or
// after startIdx, or -1.
func findClosingCodeBlock(text string, startIdx int) int {
	for i := startIdx; i+2 < len(text); i++ {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			return i + 3
		}
	}
	return -1
}

func findLastNewline(s string, searchWindow int) int {
	searchStart := len(s) - searchWindow
	if searchStart < 0 {
		searchStart = 0
	}
	for i := len(s) - 1; i >= searchStart; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
}

func findLastSpace(s string, searchWindow int) int {
	searchStart := len(s) - searchWindow
	if searchStart < 0 {
		searchStart = 0
	}
	for i := len(s) - 1; i >= searchStart; i-- {
		if s[i] == ' ' || s[i] == '\t' {
			return i
		}
	}
	return -1
}
