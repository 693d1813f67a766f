// Package messagestore implements the Message Store: the system of record
// for messages, their per-target translations, reactions, and status.
// Grounded on internal/database (pgxpool) and the query style of
// internal/api/channels/translation.go, generalized from one-off inline
// queries into a typed store enforcing spec §4.G's status state machine and
// translation-uniqueness invariants at the SQL layer.
package messagestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amityvox/amityvox/internal/models"
)

// ErrNotFound is returned when a message, or a reaction on one, does not exist.
var ErrNotFound = errors.New("message not found")

// ErrInvalidTransition is returned when UpdateStatus is asked to move a
// message between statuses that spec §4.G's state machine forbids.
var ErrInvalidTransition = errors.New("invalid message status transition")

// Store is a Postgres-backed Message Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateMessage inserts a new message in StatusSent and returns it with its
// ID and Timestamp populated.
func (s *Store) CreateMessage(ctx context.Context, channelID, senderID, content, sourceLanguage string) (*models.Message, error) {
	id := models.NewULID().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, channel_id, sender_id, content, source_language, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, channelID, senderID, content, sourceLanguage, models.StatusSent, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	return &models.Message{
		ID:             id,
		ChannelID:      channelID,
		SenderID:       senderID,
		Content:        content,
		SourceLanguage: sourceLanguage,
		Status:         models.StatusSent,
		Timestamp:      now,
	}, nil
}

// GetMessage loads a message along with its translations and reactions.
func (s *Store) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	msg := &models.Message{ID: messageID}
	err := s.pool.QueryRow(ctx,
		`SELECT channel_id, sender_id, content, source_language, status, created_at
		 FROM messages WHERE id = $1`,
		messageID,
	).Scan(&msg.ChannelID, &msg.SenderID, &msg.Content, &msg.SourceLanguage, &msg.Status, &msg.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching message: %w", err)
	}

	translations, err := s.getTranslations(ctx, messageID)
	if err != nil {
		return nil, err
	}
	msg.Translations = translations

	reactions, err := s.getReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}
	msg.Reactions = reactions

	attachment, err := s.getAttachment(ctx, messageID)
	if err != nil {
		return nil, err
	}
	msg.Attachment = attachment

	return msg, nil
}

func (s *Store) getTranslations(ctx context.Context, messageID string) ([]models.Translation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT target_language, translated_content, from_cache, created_at
		 FROM translations WHERE message_id = $1 ORDER BY target_language`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching translations: %w", err)
	}
	defer rows.Close()

	var out []models.Translation
	for rows.Next() {
		var t models.Translation
		if err := rows.Scan(&t.TargetLanguage, &t.TranslatedContent, &t.FromCache, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning translation: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) getReactions(ctx context.Context, messageID string) ([]models.Reaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT message_id, user_id, emoji, created_at FROM reactions WHERE message_id = $1 ORDER BY created_at`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching reactions: %w", err)
	}
	defer rows.Close()

	var out []models.Reaction
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reaction: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) getAttachment(ctx context.Context, messageID string) (*models.Attachment, error) {
	var a models.Attachment
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, content_type, size_bytes, storage_key FROM attachments WHERE message_id = $1`,
		messageID,
	).Scan(&a.ID, &a.Filename, &a.ContentType, &a.SizeBytes, &a.StorageKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching attachment: %w", err)
	}
	return &a, nil
}

// UpdateStatus performs a compare-and-swap status transition, rejecting any
// transition spec §4.G's state machine does not allow. It is safe to call
// concurrently for the same message — only one caller's transition will
// succeed if two race for the same `from`.
func (s *Store) UpdateStatus(ctx context.Context, messageID string, from, to models.MessageStatus) error {
	if !models.ValidStatusTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET status = $1 WHERE id = $2 AND status = $3`,
		to, messageID, from,
	)
	if err != nil {
		return fmt.Errorf("updating message status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the message doesn't exist, or another caller already moved
		// it out of `from` — both are reported as an invalid transition so
		// callers don't need to special-case "race lost" vs "bad request".
		return fmt.Errorf("%w: %s -> %s (no row matched)", ErrInvalidTransition, from, to)
	}
	return nil
}

// AppendTranslation records a translation for one target language.
// Idempotent: re-running it for the same (message, target) keeps the first
// stored value unchanged rather than erroring, per spec §4.G's
// translation-uniqueness invariant (one row per message/target pair).
func (s *Store) AppendTranslation(ctx context.Context, messageID, targetLanguage, translatedContent string, fromCache bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO translations (message_id, target_language, translated_content, from_cache, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (message_id, target_language) DO NOTHING`,
		messageID, targetLanguage, translatedContent, fromCache, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending translation: %w", err)
	}
	return nil
}

// GetChannelMessages returns up to limit messages for a channel, most recent
// first, with their translations/reactions/attachment populated.
func (s *Store) GetChannelMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM messages WHERE channel_id = $1 ORDER BY created_at DESC LIMIT $2`,
		channelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing channel messages: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning message id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		msg, err := s.GetMessage(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *msg)
	}
	return out, nil
}

// DeleteChannelMessages removes every message (and cascading
// translations/reactions/attachments) belonging to a channel, returning how
// many messages were removed.
func (s *Store) DeleteChannelMessages(ctx context.Context, channelID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE channel_id = $1`, channelID)
	if err != nil {
		return 0, fmt.Errorf("deleting channel messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetReaction implements spec §4.G/§3's reaction rules: a user may have at
// most one reaction per message. Setting a new emoji first removes any
// existing reaction by this user; if that reaction carried the same emoji,
// it stops there — a toggle-off — otherwise it inserts the new one. It
// reports which of ReactionAdded/ReactionReplaced/ReactionRemoved occurred.
func (s *Store) SetReaction(ctx context.Context, messageID, userID, emoji string) (models.ReactionAction, error) {
	var existing string
	err := s.pool.QueryRow(ctx,
		`SELECT emoji FROM reactions WHERE message_id = $1 AND user_id = $2`,
		messageID, userID,
	).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("checking existing reaction: %w", err)
	}
	hadExisting := err == nil

	if hadExisting && existing == emoji {
		if err := s.RemoveReaction(ctx, messageID, userID); err != nil {
			return "", err
		}
		return models.ReactionRemoved, nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reactions (message_id, user_id, emoji, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (message_id, user_id) DO UPDATE SET emoji = EXCLUDED.emoji, created_at = EXCLUDED.created_at`,
		messageID, userID, emoji, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("setting reaction: %w", err)
	}

	if hadExisting {
		return models.ReactionReplaced, nil
	}
	return models.ReactionAdded, nil
}

// RemoveReaction deletes a user's reaction from a message, if present.
func (s *Store) RemoveReaction(ctx context.Context, messageID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM reactions WHERE message_id = $1 AND user_id = $2`,
		messageID, userID,
	)
	if err != nil {
		return fmt.Errorf("removing reaction: %w", err)
	}
	return nil
}
