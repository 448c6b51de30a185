// Package server assembles the EchoLater backend: it opens the database and
// external clients, builds the services and runs the HTTP and gRPC servers
// until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/echolater/internal/logging"
	"github.com/dmitrijs2005/echolater/internal/server/auth"
	"github.com/dmitrijs2005/echolater/internal/server/config"
	"github.com/dmitrijs2005/echolater/internal/server/events"
	"github.com/dmitrijs2005/echolater/internal/server/httpapi"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/echolater/internal/server/services"
	"github.com/dmitrijs2005/echolater/internal/server/storage"
	"github.com/dmitrijs2005/echolater/internal/server/transcription"

	gs "github.com/dmitrijs2005/echolater/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

var tokenSweepInterval = time.Hour

// Seams for tests.
var (
	openDB               = repomanager.OpenDB
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
	newObjectStore       = func(ctx context.Context, cfg storage.S3Config) (storage.ObjectStore, error) {
		return storage.NewS3Store(ctx, cfg)
	}
)

type tokenPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context) (int64, error)
}

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
	purger     tokenPurger
	closers    []io.Closer
}

// NewApp connects to every backing service named in c and wires the
// transports. Redis, RabbitMQ and OpenAI are optional; without them token
// revocation, event publishing and transcription are disabled.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var denylist auth.Denylist = auth.NopDenylist{}
	if c.RedisURL != "" {
		client, err := auth.NewRedisClient(ctx, c.RedisURL)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		app.closers = append(app.closers, client)
		denylist = auth.NewRedisDenylist(client)
	} else {
		logger.Warn(ctx, "REDIS_URL not set, logout will not revoke access tokens")
	}

	store, err := newObjectStore(ctx, storage.S3Config{
		Region:    c.S3Region,
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Endpoint:  c.S3BaseEndpoint,
		Bucket:    c.S3Bucket,
	})
	if err != nil {
		app.close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	var transcriber transcription.Transcriber
	if c.OpenAIAPIKey != "" {
		openai, err := transcription.NewOpenAI(transcription.OpenAIConfig{
			APIKey:   c.OpenAIAPIKey,
			BaseURL:  c.OpenAIBaseURL,
			Model:    c.TranscriptionModel,
			Language: c.TranscriptionLanguage,
		})
		if err != nil {
			app.close()
			return nil, fmt.Errorf("transcription init error: %w", err)
		}
		transcriber = transcription.NewBreaker(openai, transcription.DefaultBreakerSettings, logger)
	} else {
		logger.Warn(ctx, "OPENAI_API_KEY not set, recordings need a manual note")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if c.RabbitMQURL != "" {
		p, err := events.NewRabbitMQPublisher(c.RabbitMQURL, logger)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("rabbitmq init error: %w", err)
		}
		app.closers = append(app.closers, p)
		publisher = p
	}

	uploader := services.NewAudioUploader(store)
	us := services.NewUserService(db, rm, denylist, c)
	is := services.NewIdeaService(db, rm, uploader, transcriber, publisher, logger)
	app.purger = us

	app.httpServer = httpapi.NewServer(httpapi.Config{
		Addr:            c.EndpointAddrHTTP,
		DefaultLocation: loc,
		CORSOrigins:     c.CORSOrigins,
	}, us, is, uploader, logger.With("module", "http_server"))
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, is, loc)

	return app, nil
}

// initSignalHandler cancels the run context on SIGINT, SIGTERM or SIGQUIT.
func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

// startHTTPServer blocks in ListenAndServe and shuts the server down with
// shutdownTimeout once ctx is done. A listen failure cancels the whole run.
func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "HTTP shutdown failed", "error", err)
		}
	}()

	if err := app.httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// sweepRefreshTokens purges expired refresh tokens every tokenSweepInterval
// until ctx is done.
func (app *App) sweepRefreshTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.purger.PurgeExpiredRefreshTokens(ctx)
			if err != nil {
				if ctx.Err() == nil {
					app.logger.Warn(ctx, "refresh token sweep failed", "error", err)
				}
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

// Run serves both transports until ctx is cancelled, a signal arrives or a
// server fails, then releases every resource.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweepRefreshTokens(ctx)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
	if app.db != nil {
		_ = app.db.Close()
		app.db = nil
	}
}
