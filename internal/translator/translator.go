// Package translator implements the Translator Adapter: it calls an
// external translation service over HTTPS with retry/backoff, and falls
// back to a deterministic phrase table when run in offline/degraded mode.
// Generalized from internal/api/channels/translation.go's inline
// LibreTranslate handler into a standalone, retrying adapter.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrTranslationFailed is wrapped by Translate when every attempt against
// the external service fails. Callers must never fabricate a translation in
// its place.
var ErrTranslationFailed = errors.New("translation failed")

// Adapter is the single operation spec §4.E requires.
type Adapter interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// providerRequest is the request body sent to the external translator. Its
// shape is treated as opaque JSON agreed with the provider (LibreTranslate
// compatible, per the teacher's integration).
type providerRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type providerResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage struct {
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
	} `json:"detectedLanguage"`
}

// HTTPAdapter calls an external HTTPS translation service, with timeout,
// retry, and exponential backoff, and an offline phrase-table fallback.
type HTTPAdapter struct {
	APIURL      string
	APIKey      string
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration

	// Offline, when true, skips the external call entirely and serves the
	// phrase-table fallback — used for self-hosted/degraded deployments per
	// spec §4.E.
	Offline bool
}

// New builds an HTTPAdapter with the defaults from spec §4.E: a 10s hard
// timeout, 3 attempts, and 1s initial backoff doubling each retry.
func New(apiURL, apiKey string, logger *slog.Logger) *HTTPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPAdapter{
		APIURL:      apiURL,
		APIKey:      apiKey,
		HTTPClient:  &http.Client{},
		Logger:      logger,
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		BaseBackoff: time.Second,
	}
}

func (a *HTTPAdapter) maxAttempts() int {
	if a.MaxAttempts <= 0 {
		return 3
	}
	return a.MaxAttempts
}

func (a *HTTPAdapter) baseBackoff() time.Duration {
	if a.BaseBackoff <= 0 {
		return time.Second
	}
	return a.BaseBackoff
}

func (a *HTTPAdapter) timeout() time.Duration {
	if a.Timeout <= 0 {
		return 10 * time.Second
	}
	return a.Timeout
}

// Translate implements the Adapter contract: identity short-circuit when
// source == target or text is whitespace-only, retried calls to the
// external service otherwise, or the phrase-table fallback in Offline mode.
func (a *HTTPAdapter) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang || strings.TrimSpace(text) == "" {
		return text, nil
	}
	if a.Offline {
		return phraseTableFallback(text, targetLang), nil
	}

	backoff := a.baseBackoff()
	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts(); attempt++ {
		out, err := a.callOnce(ctx, text, sourceLang, targetLang)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == a.maxAttempts() {
			break
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrTranslationFailed, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	a.Logger.Error("translation failed after retries",
		slog.String("target_lang", targetLang),
		slog.Int("attempts", a.maxAttempts()),
		slog.String("error", lastErr.Error()),
	)
	return "", fmt.Errorf("%w: %v", ErrTranslationFailed, lastErr)
}

func (a *HTTPAdapter) callOnce(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	body, err := json.Marshal(providerRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("marshaling translation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.APIURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building translation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("translation service returned status %d: %s", resp.StatusCode, respBody)
	}

	var out providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding translation response: %w", err)
	}

	if isRepeatedWordGarbage(out.TranslatedText) {
		return "", fmt.Errorf("translation service returned repeated-word garbage output")
	}

	return out.TranslatedText, nil
}

// isRepeatedWordGarbage detects output that indicates the translation
// model failed to load — either every space-separated word identical, or a
// short substring repeating across most of the output. Carried over from
// the teacher's LibreTranslate integration verbatim.
func isRepeatedWordGarbage(text string) bool {
	words := strings.Fields(text)
	if len(words) >= 3 {
		first := strings.ToLower(words[0])
		allSame := true
		for _, w := range words[1:] {
			if strings.ToLower(w) != first {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}

	lower := strings.ToLower(text)
	if len(lower) < 30 {
		return false
	}
	for subLen := 3; subLen <= 20 && subLen <= len(lower)/5; subLen++ {
		sub := lower[:subLen]
		count := strings.Count(lower, sub)
		if count >= 5 && len(sub)*count >= len(lower)/2 {
			return true
		}
	}
	return false
}
