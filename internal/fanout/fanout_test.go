package fanout

import (
	"sort"
	"testing"

	"github.com/amityvox/amityvox/internal/models"
)

func TestResolveSimpleFanout(t *testing.T) {
	members := []MemberSnapshot{
		{UserID: "u1", PrimaryLanguage: "en"},
		{UserID: "u2", PrimaryLanguage: "es"},
		{UserID: "u3", PrimaryLanguage: "fr"},
	}
	got := Resolve(members, "en")
	sort.Strings(got)
	want := []string{"es", "fr"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestResolveDedupesLanguages(t *testing.T) {
	members := []MemberSnapshot{
		{UserID: "u1", PrimaryLanguage: "es"},
		{UserID: "u2", PrimaryLanguage: "es"},
		{UserID: "u3", PrimaryLanguage: "fr"},
	}
	got := Resolve(members, "en")
	sort.Strings(got)
	if len(got) != 2 || got[0] != "es" || got[1] != "fr" {
		t.Fatalf("expected deduped [es fr], got %v", got)
	}
}

func TestResolveExcludesSourceLanguage(t *testing.T) {
	members := []MemberSnapshot{
		{UserID: "u1", PrimaryLanguage: "en"},
		{UserID: "u2", PrimaryLanguage: "en"},
	}
	got := Resolve(members, "en")
	if len(got) != 0 {
		t.Fatalf("expected no targets when all members share source language, got %v", got)
	}
}

func TestResolveForThreadExcludesSenderLanguageUnconditionally(t *testing.T) {
	thread := &models.Thread{Participants: [2]string{"sender", "recipient"}}
	languages := map[string]string{"sender": "en", "recipient": "en"}
	got := ResolveForThread(thread, languages, "en")
	if len(got) != 0 {
		t.Fatalf("expected sender's own language excluded from DM fan-out, got %v", got)
	}
}

func TestResolveForThreadTargetsOtherParticipant(t *testing.T) {
	thread := &models.Thread{Participants: [2]string{"sender", "recipient"}}
	languages := map[string]string{"sender": "en", "recipient": "ja"}
	got := ResolveForThread(thread, languages, "en")
	if len(got) != 1 || got[0] != "ja" {
		t.Fatalf("expected [ja], got %v", got)
	}
}

func TestResolveForCommunityChannel(t *testing.T) {
	community := &models.Community{Members: []string{"u1", "u2", "u3"}}
	languages := map[string]string{"u1": "en", "u2": "es", "u3": "es"}
	got := ResolveForCommunityChannel(community, languages, "en")
	if len(got) != 1 || got[0] != "es" {
		t.Fatalf("expected [es], got %v", got)
	}
}

func TestResolveSkipsMembersWithNoLanguageSnapshot(t *testing.T) {
	members := []MemberSnapshot{
		{UserID: "u1", PrimaryLanguage: ""},
		{UserID: "u2", PrimaryLanguage: "es"},
	}
	got := Resolve(members, "en")
	if len(got) != 1 || got[0] != "es" {
		t.Fatalf("expected [es] skipping empty-language member, got %v", got)
	}
}
