// Package api implements the AmityVox REST API server using the chi router.
// It registers all route groups under /api/v1/, provides middleware for logging,
// recovery, CORS, and request IDs, and exposes JSON response helpers for
// consistent API envelope formatting.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/amityvox/amityvox/internal/api/channels"
	"github.com/amityvox/amityvox/internal/api/messages"
	"github.com/amityvox/amityvox/internal/api/users"
	"github.com/amityvox/amityvox/internal/auth"
	"github.com/amityvox/amityvox/internal/config"
	"github.com/amityvox/amityvox/internal/database"
	"github.com/amityvox/amityvox/internal/detector"
	"github.com/amityvox/amityvox/internal/media"
	"github.com/amityvox/amityvox/internal/messagestore"
	secmw "github.com/amityvox/amityvox/internal/middleware"
	"github.com/amityvox/amityvox/internal/orchestrator"
	"github.com/amityvox/amityvox/internal/parser"
	"github.com/amityvox/amityvox/internal/presence"
	"github.com/amityvox/amityvox/internal/search"
)

// Server is the HTTP API server for AmityVox. It holds the chi router, database
// reference, services, configuration, and logger.
type Server struct {
	Router       *chi.Mux
	DB           *database.DB
	Config       *config.Config
	AuthService  *auth.Service
	Cache        *presence.Cache
	Media        *media.Service
	Search       *search.Client
	Store        *messagestore.Store
	Orchestrator *orchestrator.Orchestrator
	Parser       *parser.Parser
	Detector     *detector.Detector
	BreachCheck  *secmw.BreachChecker
	Version      string
	Logger       *slog.Logger
	server       *http.Server
}

// NewServer creates a new API server with all routes and middleware registered.
func NewServer(
	db *database.DB,
	cfg *config.Config,
	authSvc *auth.Service,
	cache *presence.Cache,
	mediaSvc *media.Service,
	searchSvc *search.Client,
	store *messagestore.Store,
	orch *orchestrator.Orchestrator,
	p *parser.Parser,
	d *detector.Detector,
	version string,
	logger *slog.Logger,
) *Server {
	s := &Server{
		Router:       chi.NewRouter(),
		DB:           db,
		Config:       cfg,
		AuthService:  authSvc,
		Cache:        cache,
		Media:        mediaSvc,
		Search:       searchSvc,
		Store:        store,
		Orchestrator: orch,
		Parser:       p,
		Detector:     d,
		Version:      version,
		Logger:       logger,
	}
	breachCfg := secmw.DefaultBreachCheckConfig()
	breachCfg.Enabled = cfg.Auth.PasswordBreachCheck
	s.BreachCheck = secmw.NewBreachChecker(breachCfg, logger)

	s.registerMiddleware()
	s.registerRoutes()

	return s
}

// registerMiddleware adds global middleware to the router.
func (s *Server) registerMiddleware() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(secmw.CorrelationID)
	s.Router.Use(secmw.TracingLogger(s.Logger))
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(secmw.SecurityHeaders)
	s.Router.Use(secmw.ContentSecurityPolicy(secmw.DefaultCSPConfig()))
	s.Router.Use(corsMiddleware(s.Config.HTTP.CORSOrigins))
	s.Router.Use(middleware.Compress(5))
	s.Router.Use(middleware.Timeout(30 * time.Second))
	s.Router.Use(maxBodySize(1 << 20)) // 1MB default body limit
	s.Router.Use(s.rateLimitMiddleware())
}

// registerRoutes mounts all API route groups on the router.
func (s *Server) registerRoutes() {
	userH := &users.Handler{Pool: s.DB.Pool, Logger: s.Logger}
	channelH := &channels.Handler{Pool: s.DB.Pool, Logger: s.Logger}
	messageH := &messages.Handler{
		Pool:         s.DB.Pool,
		Store:        s.Store,
		Orchestrator: s.Orchestrator,
		Parser:       s.Parser,
		Detector:     s.Detector,
		Search:       s.Search,
		Logger:       s.Logger,
	}

	// Health check and metrics — outside versioned API prefix.
	s.Router.Get("/health", s.handleHealthCheck)
	s.Router.Get("/health/deep", s.handleDeepHealthCheck)
	s.Router.Get("/metrics", s.handleMetrics)

	s.Router.Route("/api/v1", func(r chi.Router) {
		// Auth routes — public, no Bearer token required.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.With(auth.RequireAuth(s.AuthService)).Post("/logout", s.handleLogout)
			r.With(auth.RequireAuth(s.AuthService)).Get("/me", s.handleMe)
			r.With(auth.RequireAuth(s.AuthService)).Patch("/me", s.handleUpdateProfile)
		})

		// Authenticated routes — require Bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.AuthService))

			r.Get("/users/{id}", userH.HandleGetProfile)

			r.Route("/communities", func(r chi.Router) {
				r.Get("/", channelH.HandleListCommunities)
				r.Post("/", channelH.HandleCreateCommunity)
				r.Get("/discover", channelH.HandleDiscoverCommunities)
				r.Post("/{id}/join", channelH.HandleJoinCommunity)
			})

			r.Post("/channels", channelH.HandleCreateChannel)

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", channelH.HandleListConversations)
				r.Post("/", channelH.HandleCreateConversation)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Get("/", messageH.HandleListMessages)
				r.With(s.RateLimitMessages).Post("/", messageH.HandleCreateMessage)
				r.Delete("/", messageH.HandleDeleteChannelMessages)
				r.Route("/reactions", func(r chi.Router) {
					r.Post("/", messageH.HandleSetReaction)
					r.Delete("/", messageH.HandleRemoveReaction)
				})
			})

			if s.Media != nil {
				r.Route("/attachments", func(r chi.Router) {
					r.Post("/upload-url", s.handleAttachmentUploadURL)
					r.Get("/{storageKey}", s.handleAttachmentDownloadURL)
				})
			}

			if s.Search != nil {
				r.With(s.RateLimitSearch).Get("/search/messages", s.handleSearchMessages)
			}
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.Config.HTTP.Listen,
		Handler:      s.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.Logger.Info("HTTP server starting", slog.String("listen", s.Config.HTTP.Listen))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// --- Auth handlers ---

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Email           string `json:"email"`
	PrimaryLanguage string `json:"primaryLanguage"`
}

// handleRegister handles POST /api/v1/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	if s.BreachCheck != nil {
		if count, err := s.BreachCheck.IsBreached(r.Context(), req.Password); err != nil {
			s.Logger.Warn("password breach check failed", slog.String("error", err.Error()))
		} else if count > 0 {
			WriteError(w, http.StatusBadRequest, "password_breached", "This password has appeared in known data breaches. Please choose a different one.")
			return
		}
	}

	user, token, err := s.AuthService.Register(r.Context(), req.Username, req.Password, req.Email, req.PrimaryLanguage)
	if err != nil {
		if authErr, ok := err.(*auth.AuthError); ok {
			WriteError(w, authErr.Status, authErr.Code, authErr.Message)
			return
		}
		s.Logger.Error("registration failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, "internal_error", "Registration failed")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  user.ToPublicProfile(),
		"token": token,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin handles POST /api/v1/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	user, token, err := s.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if authErr, ok := err.(*auth.AuthError); ok {
			WriteError(w, authErr.Status, authErr.Code, authErr.Message)
			return
		}
		s.Logger.Error("login failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, "internal_error", "Login failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user.ToPublicProfile(),
		"token": token,
	})
}

// handleLogout handles POST /api/v1/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.SessionIDFromContext(r.Context())
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "missing_session", "No session to logout")
		return
	}

	if err := s.AuthService.Logout(r.Context(), token); err != nil {
		s.Logger.Error("logout failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, "internal_error", "Logout failed")
		return
	}

	WriteNoContent(w)
}

// handleMe handles GET /api/v1/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var username, primaryLanguage string
	var email, avatar, status *string
	var createdAt time.Time
	err := s.DB.Pool.QueryRow(r.Context(),
		`SELECT username, email, primary_language, avatar, status, created_at FROM users WHERE id = $1`,
		userID,
	).Scan(&username, &email, &primaryLanguage, &avatar, &status, &createdAt)
	if err != nil {
		s.Logger.Error("loading self profile failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to load profile")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":              userID,
		"username":        username,
		"email":           email,
		"primaryLanguage": primaryLanguage,
		"avatar":          avatar,
		"status":          status,
		"createdAt":       createdAt,
	})
}

type updateProfileRequest struct {
	PrimaryLanguage *string `json:"primaryLanguage"`
	Avatar          *string `json:"avatar"`
	Status          *string `json:"status"`
}

// handleUpdateProfile handles PATCH /api/v1/auth/me.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	if req.PrimaryLanguage != nil {
		if _, err := s.DB.Pool.Exec(r.Context(), `UPDATE users SET primary_language = $1 WHERE id = $2`, *req.PrimaryLanguage, userID); err != nil {
			s.Logger.Error("updating primary language failed", slog.String("error", err.Error()))
			WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to update profile")
			return
		}
	}
	if req.Avatar != nil {
		if _, err := s.DB.Pool.Exec(r.Context(), `UPDATE users SET avatar = $1 WHERE id = $2`, *req.Avatar, userID); err != nil {
			s.Logger.Error("updating avatar failed", slog.String("error", err.Error()))
			WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to update profile")
			return
		}
	}
	if req.Status != nil {
		if _, err := s.DB.Pool.Exec(r.Context(), `UPDATE users SET status = $1 WHERE id = $2`, *req.Status, userID); err != nil {
			s.Logger.Error("updating status failed", slog.String("error", err.Error()))
			WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to update profile")
			return
		}
	}

	WriteNoContent(w)
}

// --- Attachment handlers ---

// handleAttachmentUploadURL handles POST /api/v1/attachments/upload-url,
// returning a presigned PUT URL the client uploads the attachment bytes to
// directly, bypassing the API server.
func (s *Server) handleAttachmentUploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StorageKey string `json:"storageKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StorageKey == "" {
		WriteError(w, http.StatusBadRequest, "invalid_body", "storageKey is required")
		return
	}

	url, err := s.Media.PresignPutURL(r.Context(), req.StorageKey)
	if err != nil {
		s.Logger.Error("presigning upload URL failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to presign upload URL")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"uploadUrl":   url,
		"maxBodySize": s.Media.MaxUploadBytes(),
	})
}

// handleAttachmentDownloadURL handles GET /api/v1/attachments/{storageKey}.
func (s *Server) handleAttachmentDownloadURL(w http.ResponseWriter, r *http.Request) {
	storageKey := chi.URLParam(r, "storageKey")
	url, err := s.Media.PresignGetURL(r.Context(), storageKey)
	if err != nil {
		s.Logger.Error("presigning download URL failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to presign download URL")
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// stubHandler returns a handler that responds with 501 Not Implemented for
// endpoints that will be implemented in later phases.
func stubHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotImplemented, "not_implemented",
			fmt.Sprintf("Endpoint %q is not yet implemented", name))
	}
}

// ErrorResponse is the standard error envelope returned by the API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error code and human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse is the standard success envelope returned by the API.
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// WriteJSON writes a JSON response with the given status code and data wrapped
// in the standard success envelope {"data": ...}.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(SuccessResponse{Data: data})
}

// WriteJSONRaw writes a JSON response with the given status code without wrapping
// in the success envelope. Useful for responses that define their own structure.
func WriteJSONRaw(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response with the given status code, error code,
// and message using the standard error envelope {"error": {"code": ..., "message": ...}}.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// WriteNoContent writes a 204 No Content response with no body.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// maxBodySize limits the request body to the given number of bytes.
// Skips multipart/form-data requests (file uploads set their own limit).
func maxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ct := r.Header.Get("Content-Type")
			if r.Body != nil && !strings.HasPrefix(ct, "multipart/form-data") {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware returns a chi middleware that sets CORS headers for the given
// allowed origins.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed := false
			for _, o := range origins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
				// Only set Allow-Credentials when using explicit origins, not wildcard.
				isWildcard := len(origins) == 1 && origins[0] == "*"
				if !isWildcard {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
