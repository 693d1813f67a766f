// Package messages implements the message endpoints: posting a message
// (which triggers the Pipeline Orchestrator's fan-out translation), listing
// a channel's history filtered to the viewer's language, deleting a
// channel's history, and reacting. It is the HTTP surface in front of
// internal/messagestore and internal/orchestrator — expanded from the
// teacher's "Phase 2" stub package of the same name.
package messages

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amityvox/amityvox/internal/api/apiutil"
	"github.com/amityvox/amityvox/internal/auth"
	"github.com/amityvox/amityvox/internal/detector"
	"github.com/amityvox/amityvox/internal/fanout"
	"github.com/amityvox/amityvox/internal/messagestore"
	"github.com/amityvox/amityvox/internal/models"
	"github.com/amityvox/amityvox/internal/orchestrator"
	"github.com/amityvox/amityvox/internal/parser"
	"github.com/amityvox/amityvox/internal/search"
)

// Handler implements the message-related REST API endpoints.
type Handler struct {
	Pool         *pgxpool.Pool
	Store        *messagestore.Store
	Orchestrator *orchestrator.Orchestrator
	Parser       *parser.Parser
	Detector     *detector.Detector
	Search       *search.Client // optional; nil disables indexing
	Logger       *slog.Logger
}

// supportedLanguages mirrors detector.DefaultSupported as plain strings,
// the shape internal/orchestrator and internal/fanout expect.
func supportedLanguages() []string {
	out := make([]string, 0, len(detector.DefaultSupported))
	for _, l := range detector.DefaultSupported {
		out = append(out, string(l))
	}
	return out
}

// createMessageRequest is the body of POST /messages.
type createMessageRequest struct {
	ChannelID  string             `json:"channelId"`
	Content    string             `json:"content"`
	Attachment *attachmentRequest `json:"attachment,omitempty"`
}

type attachmentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	StorageKey  string `json:"storageKey"`
}

// HandleCreateMessage handles POST /messages.
func (h *Handler) HandleCreateMessage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req createMessageRequest
	if !apiutil.DecodeJSON(w, r, &req) {
		return
	}
	if req.ChannelID == "" || req.Content == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_fields", "channelId and content are required")
		return
	}

	member, err := h.isChannelMember(r.Context(), req.ChannelID, userID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "checking channel membership", err)
		return
	}
	if !member {
		apiutil.WriteError(w, http.StatusForbidden, "not_a_member", "You are not a member of this channel")
		return
	}

	result := h.Detector.Detect(req.Content)
	sourceLanguage := string(result.Language)

	msg, err := h.Store.CreateMessage(r.Context(), req.ChannelID, userID, req.Content, sourceLanguage)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "creating message", err)
		return
	}

	targets, err := h.fanoutTargets(r.Context(), req.ChannelID, sourceLanguage)
	if err != nil {
		h.Logger.Warn("computing fan-out targets failed, message stays untranslated", slog.String("error", err.Error()))
		targets = nil
	}

	if len(targets) > 0 {
		if err := h.Orchestrator.TranslateMessageAsync(r.Context(), msg.ID, targets, supportedLanguages()); err != nil {
			h.Logger.Error("dispatching translation work failed", slog.String("error", err.Error()))
		}
	}

	if h.Search != nil {
		doc := search.MessageDoc{
			ID:        msg.ID + ":" + sourceLanguage,
			MessageID: msg.ID,
			ChannelID: msg.ChannelID,
			SenderID:  msg.SenderID,
			Language:  sourceLanguage,
			Content:   msg.Content,
			CreatedAt: msg.Timestamp.Unix(),
		}
		if err := h.Search.IndexMessage(r.Context(), []search.MessageDoc{doc}); err != nil {
			h.Logger.Warn("indexing message failed", slog.String("error", err.Error()))
		}
	}

	apiutil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"message": msg})
}

// HandleListMessages handles GET /messages?channelId=&limit=.
func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	channelID := r.URL.Query().Get("channelId")
	if channelID == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_channel_id", "channelId query parameter is required")
		return
	}

	member, err := h.isChannelMember(r.Context(), channelID, userID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "checking channel membership", err)
		return
	}
	if !member {
		apiutil.WriteError(w, http.StatusForbidden, "not_a_member", "You are not a member of this channel")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	msgs, err := h.Store.GetChannelMessages(r.Context(), channelID, limit)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "loading channel messages", err)
		return
	}

	viewerLanguage, err := h.userLanguage(r.Context(), userID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "loading viewer language", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": filterToViewerLanguage(msgs, viewerLanguage),
	})
}

// filterToViewerLanguage narrows each message's Translations to at most the
// viewer's own language. The original content and its source language are
// always kept.
func filterToViewerLanguage(msgs []models.Message, viewerLanguage string) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if m.SourceLanguage == viewerLanguage {
			out[i].Translations = nil
			continue
		}
		if t, ok := m.TranslationFor(viewerLanguage); ok {
			out[i].Translations = []models.Translation{t}
		} else {
			out[i].Translations = nil
		}
	}
	return out
}

// HandleDeleteChannelMessages handles DELETE /messages?channelId=.
func (h *Handler) HandleDeleteChannelMessages(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	channelID := r.URL.Query().Get("channelId")
	if channelID == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_channel_id", "channelId query parameter is required")
		return
	}

	member, err := h.isChannelMember(r.Context(), channelID, userID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "checking channel membership", err)
		return
	}
	if !member {
		apiutil.WriteError(w, http.StatusForbidden, "not_a_member", "You are not a member of this channel")
		return
	}

	count, err := h.Store.DeleteChannelMessages(r.Context(), channelID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "deleting channel messages", err)
		return
	}
	if h.Search != nil {
		if err := h.Search.DeleteChannel(r.Context(), channelID); err != nil {
			h.Logger.Warn("deleting indexed channel messages failed", slog.String("error", err.Error()))
		}
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"deletedCount": count})
}

type reactionRequest struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// HandleSetReaction handles POST /messages/reactions.
func (h *Handler) HandleSetReaction(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req reactionRequest
	if !apiutil.DecodeJSON(w, r, &req) {
		return
	}
	if req.MessageID == "" || req.Emoji == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_fields", "messageId and emoji are required")
		return
	}

	action, err := h.Store.SetReaction(r.Context(), req.MessageID, userID, req.Emoji)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "setting reaction", err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"action": action})
}

// HandleRemoveReaction handles DELETE /messages/reactions?messageId=&emoji=.
func (h *Handler) HandleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	messageID := r.URL.Query().Get("messageId")
	emoji := r.URL.Query().Get("emoji")
	if messageID == "" || emoji == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_fields", "messageId and emoji query parameters are required")
		return
	}

	if err := h.Store.RemoveReaction(r.Context(), messageID, userID); err != nil {
		apiutil.InternalError(w, h.Logger, "removing reaction", err)
		return
	}
	apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"action": models.ReactionRemoved})
}

func (h *Handler) isChannelMember(ctx context.Context, channelID, userID string) (bool, error) {
	var communityID string
	err := h.Pool.QueryRow(ctx, `SELECT community_id FROM channels WHERE id = $1`, channelID).Scan(&communityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if communityID == models.DMCommunityID {
		var count int
		err := h.Pool.QueryRow(ctx,
			`SELECT count(*) FROM threads WHERE channel_id = $1 AND (participant_a = $2 OR participant_b = $2)`,
			channelID, userID).Scan(&count)
		return count > 0, err
	}

	var count int
	err = h.Pool.QueryRow(ctx,
		`SELECT count(*) FROM community_members WHERE community_id = $1 AND user_id = $2`,
		communityID, userID).Scan(&count)
	return count > 0, err
}

func (h *Handler) userLanguage(ctx context.Context, userID string) (string, error) {
	var lang string
	err := h.Pool.QueryRow(ctx, `SELECT primary_language FROM users WHERE id = $1`, userID).Scan(&lang)
	return lang, err
}

// fanoutTargets loads the channel's member-language snapshot and computes
// the Fan-out Resolver's target set.
func (h *Handler) fanoutTargets(ctx context.Context, channelID, sourceLanguage string) ([]string, error) {
	var communityID string
	if err := h.Pool.QueryRow(ctx, `SELECT community_id FROM channels WHERE id = $1`, channelID).Scan(&communityID); err != nil {
		return nil, err
	}

	if communityID == models.DMCommunityID {
		var participantA, participantB string
		err := h.Pool.QueryRow(ctx,
			`SELECT participant_a, participant_b FROM threads WHERE channel_id = $1`, channelID,
		).Scan(&participantA, &participantB)
		if err != nil {
			return nil, err
		}
		thread := &models.Thread{ChannelID: channelID, Participants: [2]string{participantA, participantB}}
		languages, err := h.languagesFor(ctx, []string{participantA, participantB})
		if err != nil {
			return nil, err
		}
		return fanout.ResolveForThread(thread, languages, sourceLanguage), nil
	}

	rows, err := h.Pool.Query(ctx, `SELECT user_id FROM community_members WHERE community_id = $1`, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	languages, err := h.languagesFor(ctx, members)
	if err != nil {
		return nil, err
	}
	community := &models.Community{ID: communityID, Members: members}
	return fanout.ResolveForCommunityChannel(community, languages, sourceLanguage), nil
}

func (h *Handler) languagesFor(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := h.Pool.Query(ctx, `SELECT id, primary_language FROM users WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string, len(userIDs))
	for rows.Next() {
		var id, lang string
		if err := rows.Scan(&id, &lang); err != nil {
			return nil, err
		}
		out[id] = lang
	}
	return out, rows.Err()
}
