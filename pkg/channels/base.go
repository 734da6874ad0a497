package channels

import (
	"context"
	"strings"

	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/schema"
)

// Channel is a transport adapter: it turns user messages into inbound
// activities and delivers outbound activities back to the user.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, a *schema.Activity) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// BaseChannel carries the plumbing every adapter shares: the activity
// bus, an allowlist, and the running flag.
type BaseChannel struct {
	bus       *bus.ActivityBus
	name      string
	allowList []string
	running   bool
}

func NewBaseChannel(name string, activityBus *bus.ActivityBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       activityBus,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running
}

// IsAllowed checks senderID against the allowlist. An empty allowlist
// admits everyone. Compound ids like "123456|username" match on either
// part.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		candidate := strings.TrimSpace(strings.TrimPrefix(allowed, "@"))
		if candidate == "" {
			continue
		}
		if candidate == senderID || candidate == idPart || (userPart != "" && candidate == userPart) {
			return true
		}
	}

	return false
}

// HandleMessage publishes an inbound message activity after the
// allowlist check.
func (c *BaseChannel) HandleMessage(senderID, senderName, conversationID, text string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		return
	}

	a := schema.NewMessageActivity(c.name, conversationID, senderID, text)
	a.From.Name = senderName
	a.Metadata = metadata
	c.bus.PublishInbound(a)
}

func (c *BaseChannel) setRunning(running bool) {
	c.running = running
}
