package domain

import (
	"strings"

	"github.com/goccy/go-json"
)

// MessageBody: the subset of WhatsApp message variants the bot reads text from
type MessageBody struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
	ImageMessage        *CaptionedMessage    `json:"imageMessage,omitempty"`
	VideoMessage        *CaptionedMessage    `json:"videoMessage,omitempty"`
}

// ExtendedTextMessage: text with link preview or quote context
type ExtendedTextMessage struct {
	Text string `json:"text"`
}

// CaptionedMessage: media message carrying an optional caption
type CaptionedMessage struct {
	Caption string `json:"caption,omitempty"`
}

// MessageKey identifies a message inside a chat.
type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant string `json:"participant,omitempty"`
}

// InboundMessage: one message delivered by the gateway (messages.upsert)
type InboundMessage struct {
	Key       MessageKey      `json:"key"`
	Message   *MessageBody    `json:"message,omitempty"`
	PushName  string          `json:"pushName,omitempty"`
	Timestamp int64           `json:"messageTimestamp,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// ChatID is the chat the message belongs to (group or private).
func (m *InboundMessage) ChatID() string {
	if m == nil {
		return ""
	}
	return m.Key.RemoteJID
}

// SenderID is the author: the participant in groups, the chat itself in private chats.
func (m *InboundMessage) SenderID() string {
	if m == nil {
		return ""
	}
	if m.Key.Participant != "" {
		return m.Key.Participant
	}
	return m.Key.RemoteJID
}

// Text extracts the text body: conversation text first, then extended text.
// Captions are not commands.
func (m *InboundMessage) Text() string {
	if m == nil || m.Message == nil {
		return ""
	}
	if m.Message.Conversation != "" {
		return m.Message.Conversation
	}
	if m.Message.ExtendedTextMessage != nil {
		return m.Message.ExtendedTextMessage.Text
	}
	return ""
}

// IsGroup reports whether the message was posted in a group.
func (m *InboundMessage) IsGroup() bool {
	return strings.HasSuffix(m.ChatID(), "@g.us")
}

// MessagesUpsert: payload of the messages.upsert event
type MessagesUpsert struct {
	Messages []InboundMessage `json:"messages"`
	Type     string           `json:"type"` // notify | append
}
