package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
)

// rpcClient is the subset of rpcapi.Client used here.
type rpcClient interface {
	Ping(ctx context.Context, in *rpcapi.PingRequest, opts ...grpc.CallOption) (*rpcapi.PingResponse, error)
	Register(ctx context.Context, in *rpcapi.RegisterRequest, opts ...grpc.CallOption) (*rpcapi.AuthResponse, error)
	Login(ctx context.Context, in *rpcapi.LoginRequest, opts ...grpc.CallOption) (*rpcapi.AuthResponse, error)
	RefreshToken(ctx context.Context, in *rpcapi.RefreshTokenRequest, opts ...grpc.CallOption) (*rpcapi.TokenResponse, error)
	Logout(ctx context.Context, in *rpcapi.LogoutRequest, opts ...grpc.CallOption) (*rpcapi.LogoutResponse, error)
	CreateIdea(ctx context.Context, in *rpcapi.CreateIdeaRequest, opts ...grpc.CallOption) (*rpcapi.IdeaResponse, error)
	ListIdeas(ctx context.Context, in *rpcapi.ListIdeasRequest, opts ...grpc.CallOption) (*rpcapi.ListIdeasResponse, error)
	GetIdea(ctx context.Context, in *rpcapi.GetIdeaRequest, opts ...grpc.CallOption) (*rpcapi.IdeaResponse, error)
	UpdateIdea(ctx context.Context, in *rpcapi.UpdateIdeaRequest, opts ...grpc.CallOption) (*rpcapi.IdeaResponse, error)
	DeleteIdea(ctx context.Context, in *rpcapi.DeleteIdeaRequest, opts ...grpc.CallOption) (*rpcapi.DeleteIdeaResponse, error)
}

// GRPCClient implements Client over gRPC with the JSON codec from rpcapi.
// The token pair is guarded by mu so the refresh interceptor and callers can
// share one client.
type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      rpcClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onRefresh    RefreshHook
}

// withAccessToken returns ctx with the access token header replaced by token.
// An empty token removes the header.
func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// isTokenExpired reports whether err is the Unauthenticated status the server
// returns for an expired access token.
func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

// accessTokenInterceptor attaches the current access token to every call.
//
// When a call fails because the access token expired and a refresh token is
// held, it rotates the pair once, hands the new pair to the refresh hook and
// replays the call. A failed refresh is returned as is.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.Tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || method == rpcapi.MethodRefreshToken || refresh == "" || !isTokenExpired(err) {
		return err
	}

	resp, rerr := s.client.RefreshToken(ctx, &rpcapi.RefreshTokenRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	hook := s.onRefresh
	s.mu.Unlock()

	if hook != nil {
		if herr := hook(ctx, resp.AccessToken, resp.RefreshToken); herr != nil {
			return fmt.Errorf("saving refreshed tokens: %w", herr)
		}
	}

	return invoker(withAccessToken(ctx, resp.AccessToken), method, req, reply, cc, opts...)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the defaults.
func NewGRPCClient(endpointURL string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	if err := c.initGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// initGRPCClient dials with the token interceptor and message limits large
// enough for a full-size recording.
func (s *GRPCClient) initGRPCClient(extra ...grpc.DialOption) error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(rpcapi.MaxMessageSize),
			grpc.MaxCallRecvMsgSize(rpcapi.MaxMessageSize),
		),
	}, extra...)
	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpcapi.NewClient(conn)
	return nil
}

// Close releases the connection. It is safe to call on a client that never dialed.
func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// SetTokens installs the token pair and the hook that persists rotated pairs.
func (s *GRPCClient) SetTokens(accessToken, refreshToken string, hook RefreshHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken, s.refreshToken, s.onRefresh = accessToken, refreshToken, hook
}

// Tokens returns the current access and refresh tokens.
func (s *GRPCClient) Tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Ping reports ErrUnavailable unless the server answers with status "OK".
func (s *GRPCClient) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Ping(ctx, &rpcapi.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, email, password, nickname string) (*rpcapi.AuthResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Register(ctx, &rpcapi.RegisterRequest{Email: email, Password: password, Nickname: nickname})
	if err != nil {
		return nil, s.mapError(err)
	}
	s.SetTokens(resp.AccessToken, resp.RefreshToken, nil)
	return resp, nil
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*rpcapi.AuthResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, &rpcapi.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}
	s.SetTokens(resp.AccessToken, resp.RefreshToken, nil)
	return resp, nil
}

// Logout revokes the access token and the given refresh token on the server.
func (s *GRPCClient) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.Logout(ctx, &rpcapi.LogoutRequest{RefreshToken: refreshToken}); err != nil {
		return s.mapError(err)
	}
	s.SetTokens("", "", nil)
	return nil
}

func (s *GRPCClient) CreateIdea(ctx context.Context, req *rpcapi.CreateIdeaRequest) (*rpcapi.Idea, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.CreateIdea(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Idea, nil
}

func (s *GRPCClient) ListIdeas(ctx context.Context, req *rpcapi.ListIdeasRequest) (*rpcapi.ListIdeasResponse, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.ListIdeas(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) GetIdea(ctx context.Context, id string) (*rpcapi.Idea, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.GetIdea(ctx, &rpcapi.GetIdeaRequest{ID: id})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Idea, nil
}

func (s *GRPCClient) UpdateIdea(ctx context.Context, req *rpcapi.UpdateIdeaRequest) (*rpcapi.Idea, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.UpdateIdea(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return &resp.Idea, nil
}

// DeleteIdea removes the idea and its recording.
func (s *GRPCClient) DeleteIdea(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.DeleteIdea(ctx, &rpcapi.DeleteIdeaRequest{ID: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

// mapError keeps the server's message next to the sentinel so the CLI can
// show something more useful than the bare code.
func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}

	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated:
		sentinel = ErrUnauthorized
	case codes.PermissionDenied:
		sentinel = ErrForbidden
	case codes.NotFound:
		sentinel = ErrNotFound
	case codes.InvalidArgument:
		sentinel = ErrInvalidArgument
	case codes.AlreadyExists:
		sentinel = ErrAlreadyExists
	case codes.Unavailable, codes.DeadlineExceeded:
		sentinel = ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}

	if msg := st.Message(); msg != "" && msg != sentinel.Error() {
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	return sentinel
}
