package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
	"github.com/dmitrijs2005/echolater/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// publicMethods can be called without an access token.
var publicMethods = map[string]bool{
	rpcapi.MethodPing:         true,
	rpcapi.MethodRegister:     true,
	rpcapi.MethodLogin:        true,
	rpcapi.MethodRefreshToken: true,
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

// accessTokenInterceptor authenticates every non-public method. An expired
// token is reported as "token expired" so the client knows to refresh.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.users.Authenticate(ctx, accessToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenExpired):
			return nil, status.Error(codes.Unauthenticated, "token expired")
		case errors.Is(err, common.ErrTokenRevoked):
			return nil, status.Error(codes.Unauthenticated, "token revoked")
		case errors.Is(err, common.ErrorInternal):
			s.logger.Error(ctx, "authentication failed", "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, claimsKey, claims), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "grpc call",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	return resp, err
}
