package rpcapi

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "echolater.v1.EchoLater"

// Full method names as seen by interceptors.
const (
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodRegister     = "/" + ServiceName + "/Register"
	MethodLogin        = "/" + ServiceName + "/Login"
	MethodRefreshToken = "/" + ServiceName + "/RefreshToken"
	MethodLogout       = "/" + ServiceName + "/Logout"
	MethodCreateIdea   = "/" + ServiceName + "/CreateIdea"
	MethodListIdeas    = "/" + ServiceName + "/ListIdeas"
	MethodGetIdea      = "/" + ServiceName + "/GetIdea"
	MethodUpdateIdea   = "/" + ServiceName + "/UpdateIdea"
	MethodDeleteIdea   = "/" + ServiceName + "/DeleteIdea"
)

// EchoLaterServer is implemented by the server side of the service.
type EchoLaterServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	CreateIdea(context.Context, *CreateIdeaRequest) (*IdeaResponse, error)
	ListIdeas(context.Context, *ListIdeasRequest) (*ListIdeasResponse, error)
	GetIdea(context.Context, *GetIdeaRequest) (*IdeaResponse, error)
	UpdateIdea(context.Context, *UpdateIdeaRequest) (*IdeaResponse, error)
	DeleteIdea(context.Context, *DeleteIdeaRequest) (*DeleteIdeaResponse, error)
}

// unary builds the method descriptor for one RPC, decoding into Req and
// routing through the server's interceptor chain.
func unary[Req, Resp any](name, fullMethod string, call func(EchoLaterServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EchoLaterServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EchoLaterServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes echolater.v1.EchoLater for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EchoLaterServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", MethodPing, EchoLaterServer.Ping),
		unary("Register", MethodRegister, EchoLaterServer.Register),
		unary("Login", MethodLogin, EchoLaterServer.Login),
		unary("RefreshToken", MethodRefreshToken, EchoLaterServer.RefreshToken),
		unary("Logout", MethodLogout, EchoLaterServer.Logout),
		unary("CreateIdea", MethodCreateIdea, EchoLaterServer.CreateIdea),
		unary("ListIdeas", MethodListIdeas, EchoLaterServer.ListIdeas),
		unary("GetIdea", MethodGetIdea, EchoLaterServer.GetIdea),
		unary("UpdateIdea", MethodUpdateIdea, EchoLaterServer.UpdateIdea),
		unary("DeleteIdea", MethodDeleteIdea, EchoLaterServer.DeleteIdea),
	},
	Metadata: "echolater/v1/echolater",
}

func RegisterEchoLaterServer(s grpc.ServiceRegistrar, srv EchoLaterServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is the client side of echolater.v1.EchoLater.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, MethodRegister, in, opts)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *Client) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *Client) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutResponse](ctx, c.cc, MethodLogout, in, opts)
}

func (c *Client) CreateIdea(ctx context.Context, in *CreateIdeaRequest, opts ...grpc.CallOption) (*IdeaResponse, error) {
	return invoke[IdeaResponse](ctx, c.cc, MethodCreateIdea, in, opts)
}

func (c *Client) ListIdeas(ctx context.Context, in *ListIdeasRequest, opts ...grpc.CallOption) (*ListIdeasResponse, error) {
	return invoke[ListIdeasResponse](ctx, c.cc, MethodListIdeas, in, opts)
}

func (c *Client) GetIdea(ctx context.Context, in *GetIdeaRequest, opts ...grpc.CallOption) (*IdeaResponse, error) {
	return invoke[IdeaResponse](ctx, c.cc, MethodGetIdea, in, opts)
}

func (c *Client) UpdateIdea(ctx context.Context, in *UpdateIdeaRequest, opts ...grpc.CallOption) (*IdeaResponse, error) {
	return invoke[IdeaResponse](ctx, c.cc, MethodUpdateIdea, in, opts)
}

func (c *Client) DeleteIdea(ctx context.Context, in *DeleteIdeaRequest, opts ...grpc.CallOption) (*DeleteIdeaResponse, error) {
	return invoke[DeleteIdeaResponse](ctx, c.cc, MethodDeleteIdea, in, opts)
}
