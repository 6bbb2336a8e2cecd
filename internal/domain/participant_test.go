package domain

import (
	"strings"
	"testing"
)

func TestSanitizeDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice", "Alice"},
		{"trims whitespace", "  Alice  ", "Alice"},
		{"empty allowed", "", ""},
		{"whitespace only", "   \t ", ""},
		{"clipped at limit", strings.Repeat("a", 100), strings.Repeat("a", 64)},
		{"exactly at limit", strings.Repeat("b", 64), strings.Repeat("b", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDisplayName(tt.in); got != tt.want {
				t.Fatalf("SanitizeDisplayName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeDisplayNameNeverSplitsRunes(t *testing.T) {
	long := strings.Repeat("日", 40) // 120 bytes

	got := SanitizeDisplayName(long)
	if len(got) > 64 {
		t.Fatalf("clipped name still %d bytes", len(got))
	}
	for _, r := range got {
		if r != '日' {
			t.Fatalf("clipping corrupted the name: %q", got)
		}
	}
}

func TestNewParticipantSanitizesName(t *testing.T) {
	p := NewParticipant("c1", PresenceInput{UserID: "u-1", UserName: "  Bob "}, true)

	if p.ConnectionID != "c1" || p.DisplayName != "Bob" || !p.IsHost {
		t.Fatalf("unexpected participant: %+v", p)
	}
	if p.JoinedAt.IsZero() {
		t.Fatal("join time not set")
	}
}

func TestNewParticipantAcceptsEmptyPresence(t *testing.T) {
	p := NewParticipant("c1", PresenceInput{}, false)

	if p.DisplayName != "" || p.IsHost {
		t.Fatalf("empty presence should yield an anonymous non-host: %+v", p)
	}
}
