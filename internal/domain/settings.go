package domain

import "slices"

// PermissionKey selects which list of a settings entry is consulted.
type PermissionKey string

// Permission keys.
const (
	AllowedCommand PermissionKey = "allowedcommand"
	AllowedEvent   PermissionKey = "allowedevent"
)

// Scheduled event kinds referenced in allowedevent lists.
const (
	EventMeme     = "meme"
	EventQuiz     = "quiz"
	EventTechNews = "tech-news"
	EventQuote    = "quote"
)

// SettingsEntry: permissions of one chat
type SettingsEntry struct {
	ID             string   `json:"id" yaml:"id"`
	AllowedCommand []string `json:"allowedcommand" yaml:"allowedcommand"`
	AllowedEvent   []string `json:"allowedevent" yaml:"allowedevent"`
	AllowInbox     []string `json:"allow_inbox" yaml:"allow_inbox"`
	MakeInactive   bool     `json:"make_inactive" yaml:"make_inactive"`
}

// Allows reports whether value is listed under key.
func (e SettingsEntry) Allows(key PermissionKey, value string) bool {
	switch key {
	case AllowedCommand:
		return slices.Contains(e.AllowedCommand, value)
	case AllowedEvent:
		return slices.Contains(e.AllowedEvent, value)
	default:
		return false
	}
}

// BotSettings: authorization document stored under the bot-settings key
type BotSettings struct {
	Host  SettingsEntry   `json:"host" yaml:"host"`
	Other []SettingsEntry `json:"other" yaml:"other"`
}

// Entries returns host first, then other in declaration order.
func (s *BotSettings) Entries() []SettingsEntry {
	if s == nil {
		return nil
	}
	entries := make([]SettingsEntry, 0, len(s.Other)+1)
	if s.Host.ID != "" {
		entries = append(entries, s.Host)
	}
	return append(entries, s.Other...)
}

// Find returns the entry whose id equals chatID.
func (s *BotSettings) Find(chatID string) (SettingsEntry, bool) {
	for _, entry := range s.Entries() {
		if entry.ID == chatID {
			return entry, true
		}
	}
	return SettingsEntry{}, false
}

// Target: one chat authorized for a command or event
type Target struct {
	ID         string   `json:"id"`
	AllowInbox []string `json:"allow_inbox"`
}
