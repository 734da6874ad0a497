// Package agent runs the turn pipeline: it consumes inbound activities,
// executes one handler turn per activity with user and conversation state
// loaded around it, and publishes the replies.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dotsetgreg/agenthost/pkg/bus"
	"github.com/dotsetgreg/agenthost/pkg/logger"
	"github.com/dotsetgreg/agenthost/pkg/schema"
	"github.com/dotsetgreg/agenthost/pkg/state"
)

// ActivityHandler is the application logic invoked once per turn.
type ActivityHandler interface {
	OnTurn(ctx context.Context, tc *state.TurnContext) error
}

// ActivityHandlerFunc adapts a function to ActivityHandler.
type ActivityHandlerFunc func(ctx context.Context, tc *state.TurnContext) error

func (f ActivityHandlerFunc) OnTurn(ctx context.Context, tc *state.TurnContext) error {
	return f(ctx, tc)
}

// AgentLoop drives the pipeline. Activities are processed sequentially,
// which is what guarantees per-conversation turn ordering.
type AgentLoop struct {
	bus       *bus.ActivityBus
	userState *state.AgentState
	convState *state.AgentState
	handler   ActivityHandler
	running   atomic.Bool
}

func NewAgentLoop(storage state.Storage, activityBus *bus.ActivityBus, handler ActivityHandler) *AgentLoop {
	return &AgentLoop{
		bus:       activityBus,
		userState: state.NewUserState(storage),
		convState: state.NewConversationState(storage),
		handler:   handler,
	}
}

// SetHandler installs the turn handler. Handlers that need the loop's
// state accessors are built after the loop and injected here.
func (al *AgentLoop) SetHandler(handler ActivityHandler) {
	al.handler = handler
}

// UserState exposes the loop's user state, shared with memory scopes.
func (al *AgentLoop) UserState() *state.AgentState { return al.userState }

// ConversationState exposes the loop's conversation state.
func (al *AgentLoop) ConversationState() *state.AgentState { return al.convState }

// Run consumes inbound activities until the context is cancelled or Stop
// is called. Replies queued during each turn go out on the bus.
func (al *AgentLoop) Run(ctx context.Context) error {
	al.running.Store(true)
	logger.InfoC("agent", "Agent loop started")

	for al.running.Load() {
		select {
		case <-ctx.Done():
			logger.InfoC("agent", "Agent loop stopped")
			return nil
		default:
			a, ok := al.bus.ConsumeInbound(ctx)
			if !ok {
				continue
			}

			responses, err := al.ProcessActivity(ctx, a)
			if err != nil {
				logger.ErrorCF("agent", "Turn failed", map[string]any{
					"channel": a.ChannelID,
					"error":   err.Error(),
				})
				responses = []*schema.Activity{a.CreateReply(fmt.Sprintf("Error processing message: %v", err))}
			}

			for _, response := range responses {
				al.bus.PublishOutbound(response)
			}
		}
	}

	return nil
}

func (al *AgentLoop) Stop() {
	al.running.Store(false)
}

// ProcessActivity executes one full turn: load state, run the handler,
// save state, and return the replies queued during the turn.
func (al *AgentLoop) ProcessActivity(ctx context.Context, a *schema.Activity) ([]*schema.Activity, error) {
	tc := state.NewTurnContext(a)

	if err := al.userState.Load(ctx, tc, false); err != nil {
		return nil, err
	}
	if err := al.convState.Load(ctx, tc, false); err != nil {
		return nil, err
	}

	logger.DebugCF("agent", "Processing activity", map[string]any{
		"type":         a.Type,
		"channel":      a.ChannelID,
		"conversation": a.Conversation.ID,
	})

	if err := al.handler.OnTurn(ctx, tc); err != nil {
		return nil, err
	}

	if err := al.userState.SaveChanges(ctx, tc); err != nil {
		return nil, err
	}
	if err := al.convState.SaveChanges(ctx, tc); err != nil {
		return nil, err
	}

	return tc.Responses(), nil
}

// ProcessDirect runs one turn for locally-entered text, bypassing the
// bus, and returns the reply text.
func (al *AgentLoop) ProcessDirect(ctx context.Context, text, conversationID string) (string, error) {
	a := schema.NewMessageActivity("cli", conversationID, "local-user", text)

	responses, err := al.ProcessActivity(ctx, a)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(responses))
	for _, response := range responses {
		if response.Text != "" {
			parts = append(parts, response.Text)
		}
	}
	return strings.Join(parts, "\n"), nil
}
