// Package models defines the shared data types for the translation relay:
// users, communities, channels, DM threads, messages, their translations and
// reactions, and the glossary entries the pipeline consults. Types carry
// JSON tags for API serialization and match the PostgreSQL schema in
// internal/database/migrations.
package models

import (
	"time"
)

// User is an account on the instance. PrimaryLanguage drives fan-out target
// selection (see internal/fanout) and the language a viewer's own messages
// are displayed in.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           *string   `json:"-"`
	PasswordHash    *string   `json:"-"`
	PrimaryLanguage string    `json:"primaryLanguage"`
	Avatar          *string   `json:"avatar,omitempty"`
	Status          *string   `json:"status,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PublicProfile is the subset of User exposed by GET /users/{id}.
type PublicProfile struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	PrimaryLanguage string  `json:"primaryLanguage"`
	Avatar          *string `json:"avatar,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// ToPublicProfile strips private fields from a User for public responses.
func (u User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:              u.ID,
		Username:        u.Username,
		PrimaryLanguage: u.PrimaryLanguage,
		Avatar:          u.Avatar,
		Status:          u.Status,
	}
}

// DMCommunityID is the reserved communityId sentinel under which every DM
// thread's channel lives (§3 "Channel").
const DMCommunityID = "dm"

// Community is a (id, name) container whose Members define channel
// membership, and therefore fan-out targets, for every channel beneath it.
type Community struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasMember reports whether userID belongs to the community.
func (c Community) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Channel is a named room within a Community, or — when CommunityID ==
// DMCommunityID — the channel backing a two-party DM Thread.
type Channel struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"communityId"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Thread is a direct-message thread between exactly two participants.
// Participants is always stored sorted so lookup-by-pair is order
// independent; at most one Thread exists per unordered pair (enforced by a
// unique index on the sorted pair, see migrations).
type Thread struct {
	ID            string    `json:"id"`
	ChannelID     string    `json:"channelId"`
	Participants  [2]string `json:"participants"`
	CreatedAt     time.Time `json:"createdAt"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

// MessageStatus is the status a Message progresses through. Transitions are
// monotonic; see internal/messagestore for the enforced state machine.
type MessageStatus string

const (
	StatusSent        MessageStatus = "sent"
	StatusTranslating MessageStatus = "translating"
	StatusTranslated  MessageStatus = "translated"
	StatusFailed      MessageStatus = "failed"
)

// Attachment is opaque metadata the pipeline never inspects; internal/media
// resolves it to a short-lived URL on read.
type Attachment struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"contentType"`
	SizeBytes   int64   `json:"sizeBytes"`
	StorageKey  string  `json:"-"`
	URL         *string `json:"url,omitempty"`
}

// Translation is a lazily-populated derivative of a Message's content in one
// target language. Once written for a given (messageID, TargetLanguage) it
// is never mutated.
type Translation struct {
	TargetLanguage    string    `json:"targetLanguage"`
	TranslatedContent string    `json:"translatedContent"`
	CreatedAt         time.Time `json:"createdAt"`
	FromCache         bool      `json:"-"`
}

// Reaction is a single (messageID, userID) -> emoji pairing. The Message
// Store enforces at most one Reaction per (messageID, userID).
type Reaction struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReactionAction is the outcome of a setReaction call.
type ReactionAction string

const (
	ReactionAdded    ReactionAction = "added"
	ReactionReplaced ReactionAction = "replaced"
	ReactionRemoved  ReactionAction = "removed"
)

// Message is an immutable-after-creation text unit. Content and
// SourceLanguage are set once at creation and never rewritten; Translations
// is append-only.
type Message struct {
	ID             string        `json:"id"`
	ChannelID      string        `json:"channelId"`
	SenderID       string        `json:"senderId"`
	Content        string        `json:"content"`
	SourceLanguage string        `json:"sourceLanguage"`
	Status         MessageStatus `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
	Translations   []Translation `json:"translations"`
	Attachment     *Attachment   `json:"attachment,omitempty"`
	Reactions      []Reaction    `json:"reactions,omitempty"`
}

// TranslationFor returns the Translation for lang if present.
func (m Message) TranslationFor(lang string) (Translation, bool) {
	for _, t := range m.Translations {
		if t.TargetLanguage == lang {
			return t, true
		}
	}
	return Translation{}, false
}

// GlossaryCategory classifies a GlossaryEntry for default-set organization.
type GlossaryCategory string

const (
	GlossaryTechnical  GlossaryCategory = "technical"
	GlossaryBrand      GlossaryCategory = "brand"
	GlossaryProperNoun GlossaryCategory = "proper_noun"
	GlossaryCustom     GlossaryCategory = "custom"
)

// GlossaryScopeDefault is the scope shared by every community.
const GlossaryScopeDefault = "default"

// GlossaryEntry is a term kept verbatim through translation. Scope is either
// GlossaryScopeDefault or a communityId; the pipeline unions both.
type GlossaryEntry struct {
	Scope        string           `json:"scope"`
	Term         string           `json:"term"`
	Category     GlossaryCategory `json:"category"`
	PreserveCase bool             `json:"preserveCase"`
}

// ValidStatusTransition reports whether a Message may move from `from` to
// `to` per the state machine in spec §4.G.
func ValidStatusTransition(from, to MessageStatus) bool {
	switch from {
	case StatusSent:
		return to == StatusTranslating
	case StatusTranslating:
		return to == StatusTranslated || to == StatusFailed
	default:
		return false
	}
}
