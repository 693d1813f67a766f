// Package channels implements REST API handlers for communities, the
// channels within them, and direct-message conversations. Mounted under
// /api/v1/communities, /api/v1/channels, and /api/v1/conversations.
package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amityvox/amityvox/internal/api/apiutil"
	"github.com/amityvox/amityvox/internal/auth"
	"github.com/amityvox/amityvox/internal/models"
)

// Handler implements community/channel/conversation REST API endpoints.
type Handler struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

func newID() string {
	return models.NewULID().String()
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}

// --- Communities ---

type communityResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Channels []models.Channel `json:"channels"`
}

// HandleListCommunities handles GET /communities, returning every community
// the caller belongs to along with each community's channels.
func (h *Handler) HandleListCommunities(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	rows, err := h.Pool.Query(r.Context(), `
		SELECT c.id, c.name
		FROM communities c
		JOIN community_members cm ON cm.community_id = c.id
		WHERE cm.user_id = $1
		ORDER BY c.created_at`, userID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "loading communities", err)
		return
	}
	defer rows.Close()

	var out []communityResponse
	for rows.Next() {
		var c communityResponse
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			apiutil.InternalError(w, h.Logger, "scanning community", err)
			return
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		apiutil.InternalError(w, h.Logger, "loading communities", err)
		return
	}

	for i := range out {
		channels, err := h.channelsFor(r.Context(), out[i].ID)
		if err != nil {
			apiutil.InternalError(w, h.Logger, "loading channels", err)
			return
		}
		out[i].Channels = channels
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"communities": out})
}

func (h *Handler) channelsFor(ctx context.Context, communityID string) ([]models.Channel, error) {
	rows, err := h.Pool.Query(ctx,
		`SELECT id, community_id, name, description, created_at FROM channels WHERE community_id = $1 ORDER BY created_at`,
		communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Channel
	for rows.Next() {
		var c models.Channel
		var description string
		if err := rows.Scan(&c.ID, &c.CommunityID, &c.Name, &description, &c.CreatedAt); err != nil {
			return nil, err
		}
		if description != "" {
			c.Description = &description
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type createCommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreateCommunity handles POST /communities. It creates the community,
// adds the caller as its first member, and creates a default "general"
// channel so there's somewhere to post immediately.
func (h *Handler) HandleCreateCommunity(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req createCommunityRequest
	if !apiutil.DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}

	communityID := newID()
	var generalChannel models.Channel
	err := apiutil.WithTx(r.Context(), h.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(r.Context(),
			`INSERT INTO communities (id, name) VALUES ($1, $2)`, communityID, req.Name); err != nil {
			return fmt.Errorf("inserting community: %w", err)
		}
		if _, err := tx.Exec(r.Context(),
			`INSERT INTO community_members (community_id, user_id) VALUES ($1, $2)`, communityID, userID); err != nil {
			return fmt.Errorf("adding member: %w", err)
		}
		generalChannel = models.Channel{ID: newID(), CommunityID: communityID, Name: "general"}
		if _, err := tx.Exec(r.Context(),
			`INSERT INTO channels (id, community_id, name) VALUES ($1, $2, $3)`,
			generalChannel.ID, communityID, generalChannel.Name); err != nil {
			return fmt.Errorf("creating default channel: %w", err)
		}
		return nil
	})
	if err != nil {
		apiutil.InternalError(w, h.Logger, "creating community", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, communityResponse{
		ID:       communityID,
		Name:     req.Name,
		Channels: []models.Channel{generalChannel},
	})
}

type discoverCommunity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsMember bool   `json:"isMember"`
}

// HandleDiscoverCommunities handles GET /communities/discover, listing every
// community on the instance so a user can find ones to join.
func (h *Handler) HandleDiscoverCommunities(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	rows, err := h.Pool.Query(r.Context(), `
		SELECT c.id, c.name, EXISTS(
			SELECT 1 FROM community_members cm WHERE cm.community_id = c.id AND cm.user_id = $1
		)
		FROM communities c
		ORDER BY c.created_at`, userID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "loading communities", err)
		return
	}
	defer rows.Close()

	var out []discoverCommunity
	for rows.Next() {
		var c discoverCommunity
		if err := rows.Scan(&c.ID, &c.Name, &c.IsMember); err != nil {
			apiutil.InternalError(w, h.Logger, "scanning community", err)
			return
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		apiutil.InternalError(w, h.Logger, "loading communities", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"communities": out})
}

// HandleJoinCommunity handles POST /communities/{id}/join.
func (h *Handler) HandleJoinCommunity(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	communityID := chi.URLParam(r, "id")
	var exists bool
	if err := h.Pool.QueryRow(r.Context(), `SELECT EXISTS(SELECT 1 FROM communities WHERE id = $1)`, communityID).Scan(&exists); err != nil {
		apiutil.InternalError(w, h.Logger, "checking community", err)
		return
	}
	if !exists {
		apiutil.WriteError(w, http.StatusNotFound, "community_not_found", "No such community")
		return
	}

	if _, err := h.Pool.Exec(r.Context(),
		`INSERT INTO community_members (community_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		communityID, userID); err != nil {
		apiutil.InternalError(w, h.Logger, "joining community", err)
		return
	}

	apiutil.WriteNoContent(w)
}

// --- Channels ---

type createChannelRequest struct {
	CommunityID string `json:"communityId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreateChannel handles POST /channels.
func (h *Handler) HandleCreateChannel(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req createChannelRequest
	if !apiutil.DecodeJSON(w, r, &req) {
		return
	}
	if req.CommunityID == "" || strings.TrimSpace(req.Name) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_fields", "communityId and name are required")
		return
	}

	var isMember bool
	if err := h.Pool.QueryRow(r.Context(),
		`SELECT EXISTS(SELECT 1 FROM community_members WHERE community_id = $1 AND user_id = $2)`,
		req.CommunityID, userID).Scan(&isMember); err != nil {
		apiutil.InternalError(w, h.Logger, "checking membership", err)
		return
	}
	if !isMember {
		apiutil.WriteError(w, http.StatusForbidden, "not_a_member", "You are not a member of this community")
		return
	}

	channel := models.Channel{
		ID:          newID(),
		CommunityID: req.CommunityID,
		Name:        slugify(req.Name),
	}
	if req.Description != "" {
		channel.Description = &req.Description
	}

	if _, err := h.Pool.Exec(r.Context(),
		`INSERT INTO channels (id, community_id, name, description) VALUES ($1, $2, $3, $4)`,
		channel.ID, channel.CommunityID, channel.Name, req.Description); err != nil {
		apiutil.InternalError(w, h.Logger, "creating channel", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, channel)
}

// --- Conversations (DM threads) ---

type conversationResponse struct {
	ChannelID     string    `json:"channelId"`
	Participants  [2]string `json:"participants"`
	LastMessageAt string    `json:"lastMessageAt"`
}

// HandleListConversations handles GET /conversations, listing every DM
// thread the caller participates in.
func (h *Handler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	rows, err := h.Pool.Query(r.Context(), `
		SELECT channel_id, participant_a, participant_b, last_message_at
		FROM threads
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY last_message_at DESC`, userID)
	if err != nil {
		apiutil.InternalError(w, h.Logger, "loading conversations", err)
		return
	}
	defer rows.Close()

	var out []conversationResponse
	for rows.Next() {
		var c conversationResponse
		var a, b string
		var last time.Time
		if err := rows.Scan(&c.ChannelID, &a, &b, &last); err != nil {
			apiutil.InternalError(w, h.Logger, "scanning conversation", err)
			return
		}
		c.Participants = [2]string{a, b}
		c.LastMessageAt = last.Format(time.RFC3339)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		apiutil.InternalError(w, h.Logger, "loading conversations", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"conversations": out})
}

type createConversationRequest struct {
	TargetUsername string `json:"targetUsername"`
}

// HandleCreateConversation handles POST /conversations, finding or creating
// the single DM thread between the caller and the named target user.
func (h *Handler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		apiutil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req createConversationRequest
	if !apiutil.DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TargetUsername) == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "missing_target", "targetUsername is required")
		return
	}

	var targetID string
	err := h.Pool.QueryRow(r.Context(), `SELECT id FROM users WHERE username = $1`, req.TargetUsername).Scan(&targetID)
	if errors.Is(err, pgx.ErrNoRows) {
		apiutil.WriteError(w, http.StatusNotFound, "user_not_found", "No such user")
		return
	}
	if err != nil {
		apiutil.InternalError(w, h.Logger, "looking up target user", err)
		return
	}
	if targetID == userID {
		apiutil.WriteError(w, http.StatusBadRequest, "self_conversation", "Cannot start a conversation with yourself")
		return
	}

	a, b := userID, targetID
	if b < a {
		a, b = b, a
	}

	var channelID string
	err = h.Pool.QueryRow(r.Context(),
		`SELECT channel_id FROM threads WHERE participant_a = $1 AND participant_b = $2`, a, b,
	).Scan(&channelID)
	if err == nil {
		apiutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"channelId": channelID})
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		apiutil.InternalError(w, h.Logger, "looking up thread", err)
		return
	}

	channelID = newID()
	err = apiutil.WithTx(r.Context(), h.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(r.Context(),
			`INSERT INTO channels (id, community_id, name) VALUES ($1, $2, $3)`,
			channelID, models.DMCommunityID, channelID); err != nil {
			return fmt.Errorf("creating DM channel: %w", err)
		}
		threadID := newID()
		if _, err := tx.Exec(r.Context(),
			`INSERT INTO threads (id, channel_id, participant_a, participant_b) VALUES ($1, $2, $3, $4)`,
			threadID, channelID, a, b); err != nil {
			return fmt.Errorf("creating thread: %w", err)
		}
		return nil
	})
	if err != nil {
		apiutil.InternalError(w, h.Logger, "creating conversation", err)
		return
	}

	apiutil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"channelId": channelID})
}
