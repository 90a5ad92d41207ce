package http

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
)

const (
	activityTypeMessage            = "message"
	activityTypeConversationUpdate = "conversationUpdate"

	contentTypeHeroCard = "application/vnd.microsoft.card.hero"
	actionTypeIMBack    = "imBack"
)

// Activity is the subset of the Bot Framework activity schema the bot reads and writes.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	Timestamp    string              `json:"timestamp,omitempty"`
	ServiceURL   string              `json:"serviceUrl,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	From         ChannelAccount      `json:"from"`
	Recipient    ChannelAccount      `json:"recipient"`
	Conversation ConversationAccount `json:"conversation"`
	Locale       string              `json:"locale,omitempty"`
	Text         string              `json:"text,omitempty"`
	MembersAdded []ChannelAccount    `json:"membersAdded,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
	ReplyToID    string              `json:"replyToId,omitempty"`
}

// ChannelAccount identifies a user or bot on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies the conversation.
type ConversationAccount struct {
	ID string `json:"id"`
}

// Attachment carries a rich card.
type Attachment struct {
	ContentType string   `json:"contentType"`
	Content     HeroCard `json:"content"`
}

// HeroCard is a text block with buttons.
type HeroCard struct {
	Text    string       `json:"text,omitempty"`
	Buttons []CardAction `json:"buttons,omitempty"`
}

// CardAction is a button. imBack actions post Value back as a user message.
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value"`
}

func (a ChannelAccount) identity() qnabot.Identity {
	return qnabot.Identity{ID: a.ID, Name: a.Name}
}

func toIdentities(accounts []ChannelAccount) []qnabot.Identity {
	out := make([]qnabot.Identity, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, account.identity())
	}
	return out
}

// replyCollector turns replies into activities addressed back to the sender of
// the inbound activity; they are returned in the HTTP response.
type replyCollector struct {
	inbound Activity
	replies []Activity
	newID   func() string
	now     func() time.Time
}

func newReplyCollector(inbound Activity) *replyCollector {
	return &replyCollector{
		inbound: inbound,
		replies: []Activity{},
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Send implements qnabot.Sender.
func (r *replyCollector) Send(ctx context.Context, msg qnabot.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reply := Activity{
		Type:         activityTypeMessage,
		ID:           r.newID(),
		Timestamp:    r.now().UTC().Format(time.RFC3339Nano),
		ServiceURL:   r.inbound.ServiceURL,
		ChannelID:    r.inbound.ChannelID,
		From:         r.inbound.Recipient,
		Recipient:    r.inbound.From,
		Conversation: r.inbound.Conversation,
		Locale:       r.inbound.Locale,
		ReplyToID:    r.inbound.ID,
	}
	if msg.Card != nil {
		reply.Attachments = []Attachment{heroCardAttachment(msg.Card)}
	} else {
		reply.Text = msg.Text
	}
	r.replies = append(r.replies, reply)
	return nil
}

func heroCardAttachment(card *qnabot.Card) Attachment {
	buttons := make([]CardAction, 0, len(card.Buttons))
	for _, b := range card.Buttons {
		buttons = append(buttons, CardAction{Type: actionTypeIMBack, Title: b.Title, Value: b.Value})
	}
	return Attachment{
		ContentType: contentTypeHeroCard,
		Content: HeroCard{
			Text:    card.Text,
			Buttons: buttons,
		},
	}
}

var _ qnabot.Sender = (*replyCollector)(nil)
