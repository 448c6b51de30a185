// Package httpapi exposes the EchoLater services over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"
	// Client zones are resolved by name, so the binary carries its own zone database.
	_ "time/tzdata"

	"github.com/dmitrijs2005/echolater/internal/logging"
	"github.com/dmitrijs2005/echolater/internal/server/auth"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/services"
)

// UserService is the account surface the handlers need.
type UserService interface {
	Register(ctx context.Context, email, password, nickname string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
	Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, nickname, avatar *string) (*models.User, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// IdeaService is the idea surface the handlers need.
type IdeaService interface {
	CreateFromAudio(ctx context.Context, userID string, audio services.AudioFile, manualNote *string, loc *time.Location) (*models.Idea, error)
	CreateFromText(ctx context.Context, userID, text string, loc *time.Location) (*models.Idea, error)
	List(ctx context.Context, userID string, q services.ListQuery) ([]*models.Idea, models.Pagination, error)
	Get(ctx context.Context, userID, id string) (*models.Idea, error)
	Update(ctx context.Context, userID, id string, patch services.IdeaPatch, loc *time.Location) (*models.Idea, error)
	Delete(ctx context.Context, userID, id string) error
	Export(ctx context.Context, userID, format string) (*services.ExportFile, error)
}

// Uploader stores a recording without creating an idea.
type Uploader interface {
	Upload(ctx context.Context, f services.AudioFile) (*services.StoredAudio, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Addr            string
	DefaultLocation *time.Location
	CORSOrigins     []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// Server is the HTTP API server.
type Server struct {
	mux      *http.ServeMux
	server   *http.Server
	logger   logging.Logger
	users    UserService
	ideas    IdeaService
	uploader Uploader
	loc      *time.Location
	origins  []string
}

func NewServer(cfg Config, users UserService, ideas IdeaService, uploader Uploader, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop{}
	}
	if cfg.DefaultLocation == nil {
		cfg.DefaultLocation = time.UTC
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 120 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		users:    users,
		ideas:    ideas,
		uploader: uploader,
		loc:      cfg.DefaultLocation,
		origins:  cfg.CORSOrigins,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	s.mux.Handle("POST /api/auth/logout", s.requireAuth(s.handleLogout))

	s.mux.Handle("GET /api/user/profile", s.requireAuth(s.handleGetProfile))
	s.mux.Handle("PUT /api/user/profile", s.requireAuth(s.handleUpdateProfile))
	s.mux.Handle("POST /api/user/change-password", s.requireAuth(s.handleChangePassword))

	s.mux.Handle("POST /api/upload/audio", s.requireAuth(s.handleUploadAudio))

	s.mux.Handle("GET /api/ideas", s.requireAuth(s.handleListIdeas))
	s.mux.Handle("POST /api/ideas", s.requireAuth(s.handleCreateIdea))
	s.mux.Handle("GET /api/ideas/export", s.requireAuth(s.handleExportIdeas))
	s.mux.Handle("GET /api/ideas/{id}", s.requireAuth(s.handleGetIdea))
	s.mux.Handle("PUT /api/ideas/{id}", s.requireAuth(s.handleUpdateIdea))
	s.mux.Handle("DELETE /api/ideas/{id}", s.requireAuth(s.handleDeleteIdea))
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) Start() error {
	s.logger.Info(context.Background(), "starting HTTP API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down HTTP API server")
	return s.server.Shutdown(ctx)
}
