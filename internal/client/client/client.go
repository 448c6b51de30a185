package client

import (
	"context"

	"github.com/dmitrijs2005/echolater/internal/rpcapi"
)

// Client is what the CLI services need from the backend.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, email, password, nickname string) (*rpcapi.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*rpcapi.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error

	// SetTokens installs the session used by authenticated calls. hook, when
	// not nil, is called after every successful transparent refresh.
	SetTokens(accessToken, refreshToken string, hook RefreshHook)
	Tokens() (accessToken, refreshToken string)

	CreateIdea(ctx context.Context, req *rpcapi.CreateIdeaRequest) (*rpcapi.Idea, error)
	ListIdeas(ctx context.Context, req *rpcapi.ListIdeasRequest) (*rpcapi.ListIdeasResponse, error)
	GetIdea(ctx context.Context, id string) (*rpcapi.Idea, error)
	UpdateIdea(ctx context.Context, req *rpcapi.UpdateIdeaRequest) (*rpcapi.Idea, error)
	DeleteIdea(ctx context.Context, id string) error
}

// RefreshHook persists a rotated token pair.
type RefreshHook func(ctx context.Context, accessToken, refreshToken string) error
