package schema

import (
	"time"

	"github.com/google/uuid"
)

// ConversationReference is the minimal addressing information needed to
// resume or proactively message a conversation later.
type ConversationReference struct {
	ActivityID   string              `json:"activityId,omitempty"`
	User         ChannelAccount      `json:"user"`
	Agent        ChannelAccount      `json:"agent,omitempty"`
	Conversation ConversationAccount `json:"conversation"`
	ChannelID    string              `json:"channelId"`
	Locale       string              `json:"locale,omitempty"`
}

// GetConversationReference extracts the reference from an incoming activity.
func GetConversationReference(a *Activity) ConversationReference {
	return ConversationReference{
		ActivityID:   a.ID,
		User:         a.From,
		Agent:        a.Recipient,
		Conversation: a.Conversation,
		ChannelID:    a.ChannelID,
		Locale:       a.Locale,
	}
}

// ApplyConversationReference addresses a so it flows through the referenced
// conversation. With incoming true the activity is shaped like one arriving
// from the user; otherwise like one the agent is sending.
func ApplyConversationReference(a *Activity, ref ConversationReference, incoming bool) *Activity {
	a.ChannelID = ref.ChannelID
	a.Conversation = ref.Conversation
	a.Locale = ref.Locale
	if incoming {
		a.From = ref.User
		a.Recipient = ref.Agent
		if ref.ActivityID != "" {
			a.ID = ref.ActivityID
		}
	} else {
		a.From = ref.Agent
		a.Recipient = ref.User
		a.ReplyToID = ref.ActivityID
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return a
}
