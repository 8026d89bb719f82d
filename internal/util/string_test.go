package util

import (
	"testing"
	"time"
)

func TestJIDUser(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"237690000000@s.whatsapp.net", "237690000000"},
		{"237690000000:12@s.whatsapp.net", "237690000000"},
		{"120363000000@g.us", "120363000000"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := JIDUser(tt.in); got != tt.want {
			t.Fatalf("JIDUser(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsGroupJID(t *testing.T) {
	if !IsGroupJID("120363000000@g.us") {
		t.Fatalf("expected group jid")
	}
	if IsGroupJID("237690000000@s.whatsapp.net") {
		t.Fatalf("expected private jid")
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold([]string{"News", " quiz "}, "quiz") {
		t.Fatalf("expected match")
	}
	if ContainsFold(nil, "quiz") {
		t.Fatalf("expected no match on nil slice")
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("héllo world", 5); got != "héllo..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := TruncateString("short", 10); got != "short" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestCampaignLocationOffset(t *testing.T) {
	ts := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC).In(CampaignLocation())
	if _, offset := ts.Zone(); offset != 3600 {
		t.Fatalf("expected WAT offset 3600, got %d", offset)
	}
	if ts.Hour() != 13 {
		t.Fatalf("expected 13h local, got %d", ts.Hour())
	}
}
