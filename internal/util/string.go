package util

import "strings"

// TruncateString cuts s to maxRunes runes and appends "..." when it was longer.
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// TrimSpace wraps strings.TrimSpace.
func TrimSpace(s string) string {
	return strings.TrimSpace(s)
}

// Normalize lower-cases and trims s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Contains reports whether item is in slice.
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// ContainsFold is Contains with case-insensitive comparison.
func ContainsFold(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(strings.TrimSpace(s), item) {
			return true
		}
	}
	return false
}

// JIDUser returns the user part of a WhatsApp JID ("2376...@s.whatsapp.net" -> "2376...").
func JIDUser(jid string) string {
	user := jid
	if i := strings.IndexByte(user, '@'); i >= 0 {
		user = user[:i]
	}
	if i := strings.IndexByte(user, ':'); i >= 0 {
		user = user[:i]
	}
	return user
}

// IsGroupJID reports whether jid addresses a group chat.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, "@g.us")
}

// Mention formats a JID as an inline WhatsApp mention.
func Mention(jid string) string {
	return "@" + JIDUser(jid)
}
