package domain

// PayloadKind discriminates outbound payloads on the wire.
type PayloadKind string

// Outbound payload kinds.
const (
	PayloadText  PayloadKind = "text"
	PayloadImage PayloadKind = "image"
	PayloadPoll  PayloadKind = "poll"
)

// Payload is anything the socket can send to a chat.
type Payload interface {
	Kind() PayloadKind
}

// TextPayload: plain text, optionally mentioning JIDs
type TextPayload struct {
	Text     string   `json:"text"`
	Mentions []string `json:"mentions,omitempty"`
}

// Kind implements Payload.
func (TextPayload) Kind() PayloadKind { return PayloadText }

// ImagePayload: image by URL with optional caption
type ImagePayload struct {
	ImageURL string   `json:"imageUrl"`
	Caption  string   `json:"caption,omitempty"`
	Mentions []string `json:"mentions,omitempty"`
}

// Kind implements Payload.
func (ImagePayload) Kind() PayloadKind { return PayloadImage }

// PollPayload: poll message
type PollPayload struct {
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	SelectableCount  int      `json:"selectableCount"`
	AnnouncementOnly bool     `json:"announcementOnly"`
}

// Kind implements Payload.
func (PollPayload) Kind() PayloadKind { return PayloadPoll }

// MessageRef points at a sent message so it can be pinned, unpinned or quoted later.
type MessageRef struct {
	ChatID string `json:"chatId"`
	ID     string `json:"id"`
	FromMe bool   `json:"fromMe"`
}

// Presence states.
const (
	PresenceComposing = "composing"
	PresencePaused    = "paused"
)
