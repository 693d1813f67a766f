// Package search indexes stored messages — both their original content and
// each lazily-populated translation — into Meilisearch, so a channel's
// history can be searched in any viewer's language rather than only the
// sender's. Grounded on the teacher's internal/search stub, enriched here
// into a working indexer for the Message Store's (internal/messagestore)
// createMessage/appendTranslation outputs.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"
)

// Index names used by this service.
const (
	IndexMessages = "messages"
)

// MessageDoc is the document shape indexed per (messageID, language) pair:
// one row for the original content and one per translation, so a query in
// language L only ever matches content already available in L.
type MessageDoc struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id"`
	ChannelID   string `json:"channel_id"`
	CommunityID string `json:"community_id,omitempty"`
	SenderID    string `json:"sender_id"`
	Language    string `json:"language"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at"`
}

// SearchRequest parameterizes a Search call.
type SearchRequest struct {
	Query     string
	ChannelID string
	Language  string
	Limit     int
	Offset    int
}

// SearchResult is the trimmed response returned to callers.
type SearchResult struct {
	IDs              []string `json:"ids"`
	EstimatedTotal   int64    `json:"estimated_total"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}

// Client wraps a Meilisearch index for message documents.
type Client struct {
	ms meilisearch.ServiceManager
}

// New connects to the Meilisearch instance at host, authenticating with
// apiKey, and ensures the messages index has the filterable attributes
// Search relies on.
func New(ctx context.Context, host, apiKey string) (*Client, error) {
	ms := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))

	if _, err := ms.Index(IndexMessages).UpdateFilterableAttributes(
		&[]string{"channel_id", "community_id", "language"},
	); err != nil {
		return nil, fmt.Errorf("configuring %s index: %w", IndexMessages, err)
	}

	return &Client{ms: ms}, nil
}

func docOpts() *meilisearch.IndexConfig {
	pk := "id"
	return &meilisearch.IndexConfig{Uid: IndexMessages, PrimaryKey: pk}
}

// IndexMessage upserts one document per available language for a message:
// the source language plus every translation already appended. Called after
// createMessage and after each appendTranslation so search coverage grows as
// translations complete.
func (c *Client) IndexMessage(ctx context.Context, docs []MessageDoc) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := c.ms.Index(IndexMessages).AddDocuments(docs, "id"); err != nil {
		return fmt.Errorf("indexing %d message docs: %w", len(docs), err)
	}
	return nil
}

// DeleteChannel removes every indexed document for a channel, mirroring
// deleteChannelMessages in the Message Store.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	filter := fmt.Sprintf("channel_id = %q", channelID)
	if _, err := c.ms.Index(IndexMessages).DeleteDocumentsByFilter(filter); err != nil {
		return fmt.Errorf("deleting indexed docs for channel %s: %w", channelID, err)
	}
	return nil
}

// Search runs a filtered full-text query scoped to one channel and one
// viewer language, so results are always in content the viewer can read.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var filters []string
	if req.ChannelID != "" {
		filters = append(filters, fmt.Sprintf("channel_id = %q", req.ChannelID))
	}
	if req.Language != "" {
		filters = append(filters, fmt.Sprintf("language = %q", req.Language))
	}

	resp, err := c.ms.Index(IndexMessages).Search(req.Query, &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Offset: int64(req.Offset),
		Filter: filters,
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("searching messages: %w", err)
	}

	result := SearchResult{
		EstimatedTotal:   resp.EstimatedTotalHits,
		ProcessingTimeMs: resp.ProcessingTimeMs,
		IDs:              []string{},
	}
	for _, hit := range resp.Hits {
		m, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := m["id"].(string); ok {
			result.IDs = append(result.IDs, id)
		}
	}
	return result, nil
}
