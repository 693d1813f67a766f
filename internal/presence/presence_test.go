package presence

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPrefixConstants(t *testing.T) {
	prefixes := map[string]string{
		"session":   PrefixSession,
		"ratelimit": PrefixRateLimit,
		"cache":     PrefixCache,
		"dedupe":    PrefixDedupe,
	}

	seen := make(map[string]bool)
	for name, prefix := range prefixes {
		if prefix == "" {
			t.Errorf("%s prefix is empty", name)
		}
		if prefix[len(prefix)-1] != ':' {
			t.Errorf("%s prefix %q does not end with ':'", name, prefix)
		}
		if seen[prefix] {
			t.Errorf("duplicate prefix value %q", prefix)
		}
		seen[prefix] = true
	}
}

func TestSessionData_JSON(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	sd := SessionData{UserID: "user_001", ExpiresAt: now}

	data, err := json.Marshal(sd)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded SessionData
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded.UserID != sd.UserID {
		t.Errorf("user_id = %q, want %q", decoded.UserID, sd.UserID)
	}
	if !decoded.ExpiresAt.Equal(sd.ExpiresAt) {
		t.Errorf("expires_at = %v, want %v", decoded.ExpiresAt, sd.ExpiresAt)
	}
}

func TestSessionData_EmptyUserID(t *testing.T) {
	sd := SessionData{UserID: "", ExpiresAt: time.Now()}

	data, err := json.Marshal(sd)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded SessionData
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded.UserID != "" {
		t.Errorf("user_id = %q, want empty string", decoded.UserID)
	}
}

func TestPrefixKeyGeneration(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{PrefixSession, "abc123", "session:abc123"},
		{PrefixRateLimit, "global:127.0.0.1", "ratelimit:global:127.0.0.1"},
		{PrefixCache, "channel:settings:c1", "cache:channel:settings:c1"},
		{PrefixDedupe, "msg1:es", "dedupe:msg1:es"},
	}

	for _, tt := range tests {
		got := tt.prefix + tt.key
		if got != tt.want {
			t.Errorf("prefix+key = %q, want %q", got, tt.want)
		}
	}
}
