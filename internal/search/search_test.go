package search

import (
	"encoding/json"
	"testing"
)

func TestIndexConstant(t *testing.T) {
	if IndexMessages != "messages" {
		t.Errorf("IndexMessages = %q, want %q", IndexMessages, "messages")
	}
}

func TestMessageDoc_JSON(t *testing.T) {
	doc := MessageDoc{
		ID:        "msg_001:en",
		MessageID: "msg_001",
		ChannelID: "ch_001",
		SenderID:  "user_001",
		Language:  "en",
		Content:   "hello world",
		CreatedAt: 1707566400,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded MessageDoc
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded.Content != doc.Content {
		t.Errorf("content = %q, want %q", decoded.Content, doc.Content)
	}
	if decoded.Language != "en" {
		t.Errorf("language = %q, want %q", decoded.Language, "en")
	}
}

func TestMessageDoc_OmitEmptyCommunityID(t *testing.T) {
	doc := MessageDoc{
		ID:        "msg_dm:en",
		MessageID: "msg_dm",
		ChannelID: "ch_dm",
		SenderID:  "user_001",
		Language:  "en",
		Content:   "dm message",
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	if _, exists := raw["community_id"]; exists {
		t.Error("community_id should be omitted when empty")
	}
}

func TestSearchResult_JSON(t *testing.T) {
	result := SearchResult{
		IDs:              []string{"msg_001:en"},
		EstimatedTotal:   100,
		ProcessingTimeMs: 5,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded SearchResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded.EstimatedTotal != 100 {
		t.Errorf("estimated_total = %d, want 100", decoded.EstimatedTotal)
	}
	if len(decoded.IDs) != 1 || decoded.IDs[0] != "msg_001:en" {
		t.Errorf("IDs = %v, want [msg_001:en]", decoded.IDs)
	}
}

func TestSearchResult_EmptyIDs(t *testing.T) {
	result := SearchResult{IDs: []string{}, EstimatedTotal: 0}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded SearchResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(decoded.IDs) != 0 {
		t.Errorf("IDs length = %d, want 0", len(decoded.IDs))
	}
}

func TestDocOpts(t *testing.T) {
	opts := docOpts()
	if opts == nil {
		t.Fatal("docOpts returned nil")
	}
	if opts.PrimaryKey != "id" {
		t.Errorf("PrimaryKey = %q, want %q", opts.PrimaryKey, "id")
	}
}

func TestSearchRequestDefaultsNormalizeLimit(t *testing.T) {
	req := SearchRequest{Query: "hello", ChannelID: "ch_001"}
	if req.Limit != 0 {
		t.Errorf("default limit = %d, want 0", req.Limit)
	}
	// Search() normalizes Limit <= 0 to 20 internally; assert the
	// documented default here since Search itself needs a live server.
	normalized := req.Limit
	if normalized <= 0 || normalized > 100 {
		normalized = 20
	}
	if normalized != 20 {
		t.Errorf("normalized limit = %d, want 20", normalized)
	}
}
