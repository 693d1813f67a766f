// Package amityvox provides a Go SDK for the AmityVox multilingual chat
// relay REST API. It handles session authentication, posting and reading
// messages, managing communities, channels and conversations, and
// attachment/search endpoints.
//
// Basic usage:
//
//	client := amityvox.NewClient("https://amityvox.example.com")
//	self, token, err := client.Login(ctx, "alice", "hunter2")
//	client.SetToken(token)
//	msg, err := client.CreateMessage(ctx, channelID, "hello", nil)
package amityvox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the REST API client for the AmityVox API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for the API client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithToken sets the bearer session token up front, equivalent to calling
// SetToken after NewClient.
func WithToken(token string) ClientOption {
	return func(cl *Client) {
		cl.token = token
	}
}

// NewClient creates a new REST API client for AmityVox. baseURL is the root
// URL of the instance (e.g. "https://amityvox.example.com"); callers
// authenticate with Register or Login and then SetToken the returned
// session token, or supply one up front via WithToken.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "AmityVox-Go-SDK/1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetToken updates the bearer session token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current authentication token.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiResponse is the standard success envelope from the API.
type apiResponse struct {
	Data json.RawMessage `json:"data"`
}

// apiError is the standard error envelope from the API.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError represents an error response from the AmityVox API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// request performs an HTTP request against /api/v1 and decodes the
// envelope-wrapped response into result. A nil result skips decoding,
// appropriate for 204 No Content endpoints.
func (c *Client) request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	u := c.baseURL + "/api/v1" + path

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Code != "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       apiErr.Error.Code,
				Message:    apiErr.Error.Message,
			}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "unknown_error",
			Message:    string(respBody),
		}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		var envelope apiResponse
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("decoding response envelope: %w", err)
		}
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}

	return nil
}

// --- Auth ---

// Register creates a new account and returns the profile plus a session
// token good for subsequent requests. It does not call SetToken itself —
// callers decide whether the returned token replaces the client's current
// one.
func (c *Client) Register(ctx context.Context, username, password, email, primaryLanguage string) (*Self, string, error) {
	body := map[string]string{
		"username":        username,
		"password":        password,
		"email":           email,
		"primaryLanguage": primaryLanguage,
	}
	var out struct {
		User  Self   `json:"user"`
		Token string `json:"token"`
	}
	if err := c.request(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, "", err
	}
	return &out.User, out.Token, nil
}

// Login exchanges a username/password for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*Self, string, error) {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		User  Self   `json:"user"`
		Token string `json:"token"`
	}
	if err := c.request(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, "", err
	}
	return &out.User, out.Token, nil
}

// Logout invalidates the current session token.
func (c *Client) Logout(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the authenticated caller's own profile.
func (c *Client) Me(ctx context.Context) (*Self, error) {
	var self Self
	if err := c.request(ctx, http.MethodGet, "/auth/me", nil, &self); err != nil {
		return nil, err
	}
	return &self, nil
}

// UpdateProfileRequest carries the optional fields UpdateProfile may change.
// A nil field is left untouched.
type UpdateProfileRequest struct {
	PrimaryLanguage *string `json:"primaryLanguage,omitempty"`
	Avatar          *string `json:"avatar,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// UpdateProfile patches the authenticated caller's profile.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) error {
	return c.request(ctx, http.MethodPatch, "/auth/me", req, nil)
}

// --- Users ---

// GetUser returns the public profile of any user on the instance.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.request(ctx, http.MethodGet, "/users/"+userID, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Communities ---

// ListCommunities returns every community the caller belongs to.
func (c *Client) ListCommunities(ctx context.Context) ([]Community, error) {
	var out struct {
		Communities []Community `json:"communities"`
	}
	if err := c.request(ctx, http.MethodGet, "/communities", nil, &out); err != nil {
		return nil, err
	}
	return out.Communities, nil
}

// CreateCommunity creates a community, adding the caller as its first
// member, and returns it with its auto-created "general" channel.
func (c *Client) CreateCommunity(ctx context.Context, name, description string) (*Community, error) {
	body := map[string]string{"name": name, "description": description}
	var community Community
	if err := c.request(ctx, http.MethodPost, "/communities", body, &community); err != nil {
		return nil, err
	}
	return &community, nil
}

// DiscoverCommunities lists every community on the instance, flagging which
// ones the caller already belongs to.
func (c *Client) DiscoverCommunities(ctx context.Context) ([]DiscoverableCommunity, error) {
	var out struct {
		Communities []DiscoverableCommunity `json:"communities"`
	}
	if err := c.request(ctx, http.MethodGet, "/communities/discover", nil, &out); err != nil {
		return nil, err
	}
	return out.Communities, nil
}

// JoinCommunity adds the caller to a community.
func (c *Client) JoinCommunity(ctx context.Context, communityID string) error {
	return c.request(ctx, http.MethodPost, "/communities/"+communityID+"/join", nil, nil)
}

// --- Channels ---

// CreateChannel creates a named channel within a community the caller
// belongs to.
func (c *Client) CreateChannel(ctx context.Context, communityID, name, description string) (*Channel, error) {
	body := map[string]string{"communityId": communityID, "name": name, "description": description}
	var ch Channel
	if err := c.request(ctx, http.MethodPost, "/channels", body, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// --- Conversations ---

// ListConversations returns every DM thread the caller participates in.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.request(ctx, http.MethodGet, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// CreateConversation finds or creates the DM thread between the caller and
// targetUsername, returning its channel ID.
func (c *Client) CreateConversation(ctx context.Context, targetUsername string) (string, error) {
	body := map[string]string{"targetUsername": targetUsername}
	var out struct {
		ChannelID string `json:"channelId"`
	}
	if err := c.request(ctx, http.MethodPost, "/conversations", body, &out); err != nil {
		return "", err
	}
	return out.ChannelID, nil
}

// --- Messages ---

// MessageAttachment describes an already-uploaded attachment to include
// when creating a message.
type MessageAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
	StorageKey  string `json:"storageKey"`
}

// CreateMessage posts content to a channel, triggering the server's
// translation pipeline for every other member's language. attachment may be
// nil.
func (c *Client) CreateMessage(ctx context.Context, channelID, content string, attachment *MessageAttachment) (*Message, error) {
	body := map[string]interface{}{
		"channelId": channelID,
		"content":   content,
	}
	if attachment != nil {
		body["attachment"] = attachment
	}
	var out struct {
		Message Message `json:"message"`
	}
	if err := c.request(ctx, http.MethodPost, "/messages", body, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// ListMessages returns a channel's message history, narrowed to at most the
// caller's own language's translation of each message. limit <= 0 uses the
// server default of 50.
func (c *Client) ListMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	path := "/messages?channelId=" + url.QueryEscape(channelID)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// DeleteChannelMessages deletes every message in a channel and returns the
// count removed.
func (c *Client) DeleteChannelMessages(ctx context.Context, channelID string) (int64, error) {
	path := "/messages?channelId=" + url.QueryEscape(channelID)
	var out struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := c.request(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// SetReaction sets the caller's reaction on a message, replacing any
// existing one.
func (c *Client) SetReaction(ctx context.Context, messageID, emoji string) (ReactionAction, error) {
	body := map[string]string{"messageId": messageID, "emoji": emoji}
	var out struct {
		Action ReactionAction `json:"action"`
	}
	if err := c.request(ctx, http.MethodPost, "/messages/reactions", body, &out); err != nil {
		return "", err
	}
	return out.Action, nil
}

// RemoveReaction removes the caller's reaction from a message.
func (c *Client) RemoveReaction(ctx context.Context, messageID, emoji string) error {
	path := "/messages/reactions?messageId=" + url.QueryEscape(messageID) + "&emoji=" + url.QueryEscape(emoji)
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

// --- Attachments ---

// UploadURLResponse is the response of RequestUploadURL.
type UploadURLResponse struct {
	UploadURL   string `json:"uploadUrl"`
	MaxBodySize int64  `json:"maxBodySize"`
}

// RequestUploadURL asks the server for a presigned PUT URL to upload an
// attachment's bytes to directly, bypassing the API server itself.
func (c *Client) RequestUploadURL(ctx context.Context, storageKey string) (*UploadURLResponse, error) {
	body := map[string]string{"storageKey": storageKey}
	var out UploadURLResponse
	if err := c.request(ctx, http.MethodPost, "/attachments/upload-url", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadURL resolves storageKey to a short-lived presigned GET URL by
// following the server's redirect.
func (c *Client) DownloadURL(ctx context.Context, storageKey string) (string, error) {
	u := c.baseURL + "/api/v1/attachments/" + url.PathEscape(storageKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	noRedirect := &http.Client{
		Timeout: c.httpClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := noRedirect.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		return "", &APIError{StatusCode: resp.StatusCode, Code: "unexpected_status", Message: "expected a redirect to a presigned URL"}
	}
	return resp.Header.Get("Location"), nil
}

// --- Search ---

// SearchMessages performs a full-text search over the caller's channels.
// channelID narrows the search to one channel; empty searches everything
// the caller can see. limit <= 0 and offset < 0 use the server defaults.
func (c *Client) SearchMessages(ctx context.Context, query, channelID string, limit, offset int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	if channelID != "" {
		params.Set("channelId", channelID)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset >= 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	var result SearchResult
	if err := c.request(ctx, http.MethodGet, "/search/messages?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
