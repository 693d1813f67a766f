package middleware

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// --- Password Breach Checking (HaveIBeenPwned k-Anonymity) ---

// BreachCheckConfig controls password breach detection.
type BreachCheckConfig struct {
	// Enabled controls whether breach checks are performed on registration/password change.
	Enabled bool `toml:"enabled"`

	// APIURL is the HaveIBeenPwned API endpoint. Defaults to the public API.
	APIURL string `toml:"api_url"`

	// Timeout is the maximum time to wait for the HIBP API response.
	Timeout time.Duration `toml:"timeout"`

	// MinBreachCount is the minimum number of breaches before blocking a password.
	// Setting this to 1 blocks any previously breached password.
	MinBreachCount int `toml:"min_breach_count"`
}

// DefaultBreachCheckConfig returns sensible defaults for password breach checking.
func DefaultBreachCheckConfig() BreachCheckConfig {
	return BreachCheckConfig{
		Enabled:        true,
		APIURL:         "https://api.pwnedpasswords.com/range/",
		Timeout:        5 * time.Second,
		MinBreachCount: 1,
	}
}

// BreachChecker checks passwords against the HaveIBeenPwned API using the
// k-anonymity model. Only the first 5 characters of the SHA-1 hash are sent
// to the API, preserving password privacy.
type BreachChecker struct {
	config     BreachCheckConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewBreachChecker creates a new password breach checker with the given configuration.
func NewBreachChecker(cfg BreachCheckConfig, logger *slog.Logger) *BreachChecker {
	return &BreachChecker{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// IsBreached checks whether the given password appears in known data breaches.
// It uses the k-anonymity model: only the first 5 hex characters of the SHA-1
// hash are sent to the API. The full hash is compared locally against the
// returned suffix list. Returns the breach count and any error.
func (bc *BreachChecker) IsBreached(ctx context.Context, password string) (int, error) {
	if !bc.config.Enabled {
		return 0, nil
	}

	// SHA-1 is required by the HaveIBeenPwned k-anonymity API protocol.
	// This is NOT used for password storage (Argon2id handles that).
	// Only the first 5 hex chars of the SHA-1 hash are sent to the API;
	// the full hash is compared locally against the returned suffix list.
	hash := sha1.New()                 //nolint:gosec // HIBP protocol requires SHA-1
	hash.Write([]byte(password))       // codeql[go/weak-sensitive-data-hashing]: Required by HIBP k-anonymity protocol
	hashHex := strings.ToUpper(hex.EncodeToString(hash.Sum(nil)))

	prefix := hashHex[:5]
	suffix := hashHex[5:]

	// Query the HIBP API with the prefix.
	url := bc.config.APIURL + prefix
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating HIBP request: %w", err)
	}
	req.Header.Set("User-Agent", "AmityVox-PasswordCheck/1.0")
	req.Header.Set("Add-Padding", "true") // Request padding to prevent response-length analysis.

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		// Network errors should not block registration — log and allow.
		bc.logger.Warn("HIBP API request failed, allowing password",
			slog.String("error", err.Error()),
		)
		return 0, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bc.logger.Warn("HIBP API returned non-200 status",
			slog.Int("status", resp.StatusCode),
		)
		return 0, nil
	}

	// Read response body (limit to 1MB for safety).
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("reading HIBP response: %w", err)
	}

	// Parse the response: each line is "SUFFIX:COUNT".
	lines := strings.Split(string(body), "\r\n")
	for _, line := range lines {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.TrimSpace(parts[0]) == suffix {
			var count int
			fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &count)
			if count >= bc.config.MinBreachCount {
				return count, nil
			}
		}
	}

	return 0, nil
}
