// Package auth implements the session layer guarding the message API:
// registration, login, logout, and Bearer-token validation. Sessions are
// represented as signed JWTs carrying an opaque session ID (jti); the ID
// itself is looked up in the cache only to support logout revocation before
// natural expiry, so a request in the common case never touches Postgres or
// Redis beyond a cache existence check.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amityvox/amityvox/internal/models"
	"github.com/amityvox/amityvox/internal/presence"
)

// AuthError is a classified authentication failure carrying the HTTP status
// and API error code RequireAuth/OptionalAuth translate it into.
type AuthError struct {
	Code    string
	Message string
	Status  int
}

func (e *AuthError) Error() string { return e.Message }

var (
	errInvalidUsername = &AuthError{Code: "invalid_username", Message: "username must be 2-32 characters: letters, numbers, dots, underscores, hyphens", Status: 400}
	errInvalidPassword = &AuthError{Code: "invalid_password", Message: "password must be 8-128 characters", Status: 400}
	errUsernameTaken    = &AuthError{Code: "username_taken", Message: "username is already registered", Status: 409}
	errInvalidCreds     = &AuthError{Code: "invalid_credentials", Message: "username or password is incorrect", Status: 401}
	errRegistrationOff  = &AuthError{Code: "registration_disabled", Message: "registration is currently disabled on this instance", Status: 403}
	errInvalidToken     = &AuthError{Code: "invalid_token", Message: "session token is invalid or expired", Status: 401}
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,32}$`)

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return errInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < 8 || n > 128 {
		return errInvalidPassword
	}
	return nil
}

// Config configures a Service.
type Config struct {
	Pool            *pgxpool.Pool
	Cache           *presence.Cache
	JWTSecret       []byte
	SessionDuration time.Duration
	RegEnabled      bool
	InviteOnly      bool
	RequireEmail    bool
	Logger          *slog.Logger
}

// Service issues and validates sessions for the message API.
type Service struct {
	pool            *pgxpool.Pool
	cache           *presence.Cache
	jwtSecret       []byte
	sessionDuration time.Duration
	regEnabled      bool
	inviteOnly      bool
	requireEmail    bool
	logger          *slog.Logger
}

// NewService builds a Service from cfg.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	duration := cfg.SessionDuration
	if duration <= 0 {
		duration = 168 * time.Hour
	}
	return &Service{
		pool:            cfg.Pool,
		cache:           cfg.Cache,
		jwtSecret:       cfg.JWTSecret,
		sessionDuration: duration,
		regEnabled:      cfg.RegEnabled,
		inviteOnly:      cfg.InviteOnly,
		requireEmail:    cfg.RequireEmail,
		logger:          logger,
	}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Register creates a new account and returns it alongside a freshly issued
// session token. username/password are validated per the rules
// validateUsername/validatePassword encode; email is optional unless
// RequireEmail is set.
func (s *Service) Register(ctx context.Context, username, password, email, primaryLanguage string) (*models.User, string, error) {
	if !s.regEnabled {
		return nil, "", errRegistrationOff
	}
	if err := validateUsername(username); err != nil {
		return nil, "", err
	}
	if err := validatePassword(password); err != nil {
		return nil, "", err
	}
	if s.requireEmail && email == "" {
		return nil, "", &AuthError{Code: "email_required", Message: "email is required on this instance", Status: 400}
	}
	if primaryLanguage == "" {
		primaryLanguage = "en"
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	var emailPtr *string
	if email != "" {
		emailPtr = &email
	}

	user := &models.User{
		ID:              models.NewULID().String(),
		Username:        username,
		Email:           emailPtr,
		PrimaryLanguage: primaryLanguage,
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, primary_language, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		user.ID, user.Username, user.Email, hash, user.PrimaryLanguage,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", errUsernameTaken
		}
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies username/password and returns the user and a new session
// token.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	var (
		user models.User
		hash string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, primary_language, avatar, status, created_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.Email, &hash, &user.PrimaryLanguage, &user.Avatar, &user.Status, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", errInvalidCreds
	}
	if err != nil {
		return nil, "", fmt.Errorf("looking up user: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return nil, "", fmt.Errorf("comparing password: %w", err)
	}
	if !match {
		return nil, "", errInvalidCreds
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Logout revokes token immediately, ahead of its natural expiry, by
// recording its session ID in the cache's dedupe-style keyspace until the
// token would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Revoke(ctx, claims.ID, ttl)
}

// ValidateSession parses token, rejects it if expired, malformed, or
// revoked, and returns the authenticated user ID.
func (s *Service) ValidateSession(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		revoked, err := s.cache.IsRevoked(ctx, claims.ID)
		if err != nil {
			return "", fmt.Errorf("checking session revocation: %w", err)
		}
		if revoked {
			return "", errInvalidToken
		}
	}
	return claims.UserID, nil
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        models.NewULID().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionDuration)),
		},
		UserID: userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

func (s *Service) parseToken(tokenStr string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || claims.UserID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && regexp.MustCompile(`duplicate key value|unique constraint`).MatchString(err.Error())
}
