package models

import "testing"

func TestToPublicProfile(t *testing.T) {
	email := "a@example.com"
	u := User{
		ID:              "u1",
		Username:        "alice",
		Email:           &email,
		PrimaryLanguage: "en",
	}
	p := u.ToPublicProfile()
	if p.ID != u.ID || p.Username != u.Username || p.PrimaryLanguage != u.PrimaryLanguage {
		t.Fatalf("ToPublicProfile() dropped public fields: %+v", p)
	}
}

func TestCommunityHasMember(t *testing.T) {
	c := Community{Members: []string{"u1", "u2"}}
	if !c.HasMember("u1") {
		t.Fatal("expected u1 to be a member")
	}
	if c.HasMember("u3") {
		t.Fatal("expected u3 to not be a member")
	}
}

func TestMessageTranslationFor(t *testing.T) {
	m := Message{Translations: []Translation{
		{TargetLanguage: "es", TranslatedContent: "hola"},
		{TargetLanguage: "fr", TranslatedContent: "bonjour"},
	}}
	tr, ok := m.TranslationFor("fr")
	if !ok || tr.TranslatedContent != "bonjour" {
		t.Fatalf("expected fr translation, got %+v (ok=%v)", tr, ok)
	}
	if _, ok := m.TranslationFor("de"); ok {
		t.Fatal("expected no translation for de")
	}
}

func TestValidStatusTransition(t *testing.T) {
	tests := []struct {
		from, to MessageStatus
		want     bool
	}{
		{StatusSent, StatusTranslating, true},
		{StatusSent, StatusTranslated, false},
		{StatusTranslating, StatusTranslated, true},
		{StatusTranslating, StatusFailed, true},
		{StatusTranslating, StatusSent, false},
		{StatusTranslated, StatusFailed, false},
		{StatusFailed, StatusTranslating, false},
	}
	for _, tc := range tests {
		if got := ValidStatusTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidStatusTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
