package amityvox

import "time"

// User is the public profile of an account on the instance, as returned by
// GET /users/{id} and the "user" field of auth responses.
type User struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	PrimaryLanguage string  `json:"primaryLanguage"`
	Avatar          *string `json:"avatar,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// Self is the authenticated caller's own profile, as returned by GET/PATCH
// /auth/me. It carries fields (email, creation time) the public User type
// omits.
type Self struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           *string   `json:"email,omitempty"`
	PrimaryLanguage string    `json:"primaryLanguage"`
	Avatar          *string   `json:"avatar,omitempty"`
	Status          *string   `json:"status,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Community is a (id, name) container with the channels the caller can see
// beneath it.
type Community struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Channels []Channel `json:"channels,omitempty"`
}

// DiscoverableCommunity is a community as listed by GET
// /communities/discover, annotated with whether the caller already belongs
// to it.
type DiscoverableCommunity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsMember bool   `json:"isMember"`
}

// Channel is a named room within a Community, or the channel backing a
// two-party Conversation.
type Channel struct {
	ID          string  `json:"id"`
	CommunityID string  `json:"communityId"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Conversation is a direct-message thread between the caller and one other
// participant.
type Conversation struct {
	ChannelID     string    `json:"channelId"`
	Participants  [2]string `json:"participants"`
	LastMessageAt string    `json:"lastMessageAt"`
}

// Translation is one target-language rendering of a Message's content.
type Translation struct {
	TargetLanguage    string    `json:"targetLanguage"`
	TranslatedContent string    `json:"translatedContent"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Reaction is a single (message, user) -> emoji pairing on a Message.
type Reaction struct {
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attachment is a file attached to a Message. URL is populated once the
// server resolves StorageKey to a short-lived presigned link.
type Attachment struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	ContentType string  `json:"contentType"`
	SizeBytes   int64   `json:"sizeBytes"`
	URL         *string `json:"url,omitempty"`
}

// MessageStatus mirrors the server-side translation state machine.
type MessageStatus string

const (
	StatusSent        MessageStatus = "sent"
	StatusTranslating MessageStatus = "translating"
	StatusTranslated  MessageStatus = "translated"
	StatusFailed      MessageStatus = "failed"
)

// Message is a chat message and whatever translations of it the caller's
// language is entitled to see.
type Message struct {
	ID             string        `json:"id"`
	ChannelID      string        `json:"channelId"`
	SenderID       string        `json:"senderId"`
	Content        string        `json:"content"`
	SourceLanguage string        `json:"sourceLanguage"`
	Status         MessageStatus `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
	Translations   []Translation `json:"translations,omitempty"`
	Attachment     *Attachment   `json:"attachment,omitempty"`
	Reactions      []Reaction    `json:"reactions,omitempty"`
}

// TranslationFor returns the message's translation into lang, if the server
// has already produced one.
func (m Message) TranslationFor(lang string) (Translation, bool) {
	for _, t := range m.Translations {
		if t.TargetLanguage == lang {
			return t, true
		}
	}
	return Translation{}, false
}

// ReactionAction is the outcome of SetReaction.
type ReactionAction string

const (
	ReactionAdded    ReactionAction = "added"
	ReactionReplaced ReactionAction = "replaced"
	ReactionRemoved  ReactionAction = "removed"
)

// SearchResult is the response of SearchMessages.
type SearchResult struct {
	IDs              []string `json:"ids"`
	EstimatedTotal   int64    `json:"estimated_total"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}
