// Package grpc serves echolater.v1.EchoLater for the CLI client.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/echolater/internal/logging"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
	"github.com/dmitrijs2005/echolater/internal/server/auth"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is the part of services.UserService the RPC handlers call.
type UserService interface {
	Register(ctx context.Context, email, password, nickname string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
	Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error
}

// IdeaService is the part of services.IdeaService the RPC handlers call.
type IdeaService interface {
	CreateFromAudio(ctx context.Context, userID string, audio services.AudioFile, manualNote *string, loc *time.Location) (*models.Idea, error)
	CreateFromText(ctx context.Context, userID, text string, loc *time.Location) (*models.Idea, error)
	List(ctx context.Context, userID string, q services.ListQuery) ([]*models.Idea, models.Pagination, error)
	Get(ctx context.Context, userID, id string) (*models.Idea, error)
	Update(ctx context.Context, userID, id string, patch services.IdeaPatch, loc *time.Location) (*models.Idea, error)
	Delete(ctx context.Context, userID, id string) error
}

// GRPCServer implements rpcapi.EchoLaterServer on top of the services.
type GRPCServer struct {
	address string
	users   UserService
	ideas   IdeaService
	loc     *time.Location
	logger  logging.Logger
}

// NewGRPCServer builds a server for address a. A nil defaultLoc means UTC.
func NewGRPCServer(a string, l logging.Logger, us UserService, is IdeaService, defaultLoc *time.Location) *GRPCServer {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		ideas:   is,
		loc:     defaultLoc,
	}
}

// newServer builds the grpc.Server with logging and auth interceptors and a
// receive limit sized for a full-size recording.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.MaxRecvMsgSize(rpcapi.MaxMessageSize),
	)
	rpcapi.RegisterEchoLaterServer(srv, s)
	return srv
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
