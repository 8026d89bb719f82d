package domain

import "github.com/goccy/go-json"

// Gateway event names.
const (
	EventMessagesUpsert     = "messages.upsert"
	EventConnectionUpdate   = "connection.update"
	EventGroupsUpdate       = "groups.update"
	EventGroupsUpsert       = "groups.upsert"
	EventParticipantsUpdate = "group-participants.update"
	EventPollVote           = "poll.vote"
	EventCall               = "call"
	EventMessagesReaction   = "messages.reaction"
	EventBlocklistSet       = "blocklist.set"
	EventBlocklistUpdate    = "blocklist.update"
	EventChatsUpdate        = "chats.update"
)

// GatewayEvent: one entry of the gateway event stream
type GatewayEvent struct {
	StreamID string
	Name     string
	Payload  json.RawMessage
}

// Connection states.
const (
	ConnectionOpen       = "open"
	ConnectionClose      = "close"
	ConnectionConnecting = "connecting"
)

// DisconnectLoggedOut is the close status code meaning the session was revoked.
const DisconnectLoggedOut = 401

// ConnectionUpdate: payload of connection.update
type ConnectionUpdate struct {
	Connection  string `json:"connection,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
	Reason      string `json:"reason,omitempty"`
	QR          string `json:"qr,omitempty"`
	Registered  bool   `json:"registered"`
	SelfJID     string `json:"selfJid,omitempty"`
	PairingCode string `json:"pairingCode,omitempty"`
}

// LoggedOut reports whether the close is terminal.
func (u ConnectionUpdate) LoggedOut() bool {
	return u.Connection == ConnectionClose && u.StatusCode == DisconnectLoggedOut
}

// Participant of a group.
type Participant struct {
	ID    string `json:"id"`
	Admin string `json:"admin,omitempty"` // admin | superadmin | ""
}

// IsAdmin reports whether the participant administers the group.
func (p Participant) IsAdmin() bool {
	return p.Admin == "admin" || p.Admin == "superadmin"
}

// GroupMetadata: group description as announced by the gateway
type GroupMetadata struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject"`
	Owner        string        `json:"owner,omitempty"`
	Participants []Participant `json:"participants"`
}

// ParticipantsUpdate: payload of group-participants.update
type ParticipantsUpdate struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
	Action       string   `json:"action"` // add | remove | promote | demote
}

// PollVote: aggregated vote notification for a poll sent by the bot
type PollVote struct {
	ChatID          string   `json:"chatId"`
	PollMessageID   string   `json:"pollMessageId"`
	Voter           string   `json:"voter"`
	SelectedOptions []string `json:"selectedOptions"`
}
