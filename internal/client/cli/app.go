package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/echolater/internal/client/client"
	"github.com/dmitrijs2005/echolater/internal/client/config"
	"github.com/dmitrijs2005/echolater/internal/client/services"
)

// App is what the commands run against.
type App struct {
	config      *config.Config
	authService services.AuthService
	ideaService services.IdeaService
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer
}

// AppFactory builds the App once flags and config are known.
type AppFactory func(ctx context.Context, cfg *config.Config) (*App, error)

// Seams for NewApp.
var (
	openSessionDB = client.OpenSessionDB
	newAPIClient  = func(cfg *config.Config) (client.Client, error) {
		return client.NewGRPCClient(cfg.ServerEndpointAddr, cfg.RequestTimeout)
	}
)

// NewApp opens the session database and the connection to the server.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := openSessionDB(ctx, cfg.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	apiClient, err := newAPIClient(cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to %s: %w", cfg.ServerEndpointAddr, err)
	}

	return &App{
		config:      cfg,
		authService: services.NewAuthService(apiClient, db),
		ideaService: services.NewIdeaService(apiClient, cfg.Timezone),
		db:          db,
	}, nil
}

// Close releases the connection and the database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.authService != nil {
		errs = append(errs, a.authService.Close(ctx))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// requireSession loads the saved login into the client.
func (a *App) requireSession(ctx context.Context) error {
	_, err := a.authService.Restore(ctx)
	return err
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
