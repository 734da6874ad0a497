// Package schema declares the activity wire types exchanged between channel
// adapters and the turn pipeline. The shapes are a fixed external contract;
// this package only declares them and provides small constructors.
package schema

import (
	"time"

	"github.com/google/uuid"
)

// Activity types understood by the pipeline.
const (
	ActivityTypeMessage            = "message"
	ActivityTypeEvent              = "event"
	ActivityTypeConversationUpdate = "conversationUpdate"
	ActivityTypeTyping             = "typing"
	ActivityTypeEndOfConversation  = "endOfConversation"
)

// ChannelAccount identifies a user or agent on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
type ConversationAccount struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// Entity is an open-shaped metadata record attached to an activity.
type Entity map[string]any

// Activity is a single structured message or event unit.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	Timestamp    time.Time           `json:"timestamp,omitempty"`
	ChannelID    string              `json:"channelId"`
	From         ChannelAccount      `json:"from"`
	Recipient    ChannelAccount      `json:"recipient,omitempty"`
	Conversation ConversationAccount `json:"conversation"`
	Text         string              `json:"text,omitempty"`
	Locale       string              `json:"locale,omitempty"`
	Value        any                 `json:"value,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty"`
	Entities     []Entity            `json:"entities,omitempty"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}

// NewMessageActivity creates a message activity with a fresh id and timestamp.
func NewMessageActivity(channelID, conversationID, fromID, text string) *Activity {
	return &Activity{
		Type:         ActivityTypeMessage,
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		ChannelID:    channelID,
		Conversation: ConversationAccount{ID: conversationID},
		From:         ChannelAccount{ID: fromID, Role: "user"},
		Text:         text,
	}
}

// CreateReply builds a reply addressed back to the sender of a.
func (a *Activity) CreateReply(text string) *Activity {
	return &Activity{
		Type:         ActivityTypeMessage,
		ID:           uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		ChannelID:    a.ChannelID,
		Conversation: a.Conversation,
		From:         a.Recipient,
		Recipient:    a.From,
		ReplyToID:    a.ID,
		Locale:       a.Locale,
		Text:         text,
	}
}

// IsMessage reports whether the activity carries user-visible text.
func (a *Activity) IsMessage() bool {
	return a.Type == ActivityTypeMessage
}
