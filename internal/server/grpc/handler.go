package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/services"
	"github.com/dmitrijs2005/echolater/internal/server/timecat"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a service error to a gRPC status. Internal details are logged
// and not sent to the client.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorUnsupportedFormat), errors.Is(err, common.ErrorFileTooLarge):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrorNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrorForbidden):
		code = codes.PermissionDenied
	case errors.Is(err, common.ErrorAlreadyExists):
		code = codes.AlreadyExists
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrRefreshTokenExpired), errors.Is(err, common.ErrInvalidToken):
		code = codes.Unauthenticated
	case errors.Is(err, common.ErrTranscriptionFailed), errors.Is(err, common.ErrTranscriptionUnavailable):
		code = codes.Unavailable
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

// location resolves an IANA zone name, falling back to the server default.
func (s *GRPCServer) location(name string) (*time.Location, error) {
	if name == "" {
		return s.loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "unknown timezone %q", name)
	}
	return loc, nil
}

// userID returns the subject of the claims the auth interceptor stored.
func (s *GRPCServer) userID(ctx context.Context) (string, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	return claims.UserID, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return status.Error(codes.InvalidArgument, "invalid idea id")
	}
	return nil
}

func toRPCUser(u *models.User) rpcapi.User {
	return rpcapi.User{ID: u.ID, Email: u.Email, Nickname: u.Nickname}
}

func toRPCIdea(i *models.Idea) rpcapi.Idea {
	tags := i.Tags
	if tags == nil {
		tags = []string{}
	}
	return rpcapi.Idea{
		ID:            i.ID,
		Transcription: i.Transcription,
		ExtractedTime: i.ExtractedTime,
		TimeCategory:  i.TimeCategory.String(),
		Tags:          tags,
		IsCompleted:   i.IsCompleted,
		CompletedAt:   i.CompletedAt,
		AudioURL:      i.AudioURL,
		AudioDuration: i.AudioDuration,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpcapi.PingRequest) (*rpcapi.PingResponse, error) {
	return &rpcapi.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *rpcapi.RegisterRequest) (*rpcapi.AuthResponse, error) {
	u, pair, err := s.users.Register(ctx, req.Email, req.Password, req.Nickname)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "Registered", "user_id", u.ID)
	return &rpcapi.AuthResponse{User: toRPCUser(u), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpcapi.LoginRequest) (*rpcapi.AuthResponse, error) {
	u, pair, err := s.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcapi.AuthResponse{User: toRPCUser(u), AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpcapi.RefreshTokenRequest) (*rpcapi.TokenResponse, error) {
	pair, err := s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcapi.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// Logout revokes the caller's access token and, when given, the refresh token.
func (s *GRPCServer) Logout(ctx context.Context, req *rpcapi.LogoutRequest) (*rpcapi.LogoutResponse, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if err := s.users.Logout(ctx, claims, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcapi.LogoutResponse{}, nil
}

// CreateIdea files a recording when Audio is set and a text note otherwise.
// Text sent with audio replaces the transcription.
func (s *GRPCServer) CreateIdea(ctx context.Context, req *rpcapi.CreateIdeaRequest) (*rpcapi.IdeaResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := s.location(req.Timezone)
	if err != nil {
		return nil, err
	}

	var note *string
	if text := strings.TrimSpace(req.Text); text != "" {
		note = &text
	}

	var idea *models.Idea
	switch {
	case len(req.Audio) > 0:
		audio := services.AudioFile{
			Name:        req.AudioFileName,
			ContentType: req.AudioContentType,
			Data:        req.Audio,
			Duration:    req.AudioDuration,
		}
		idea, err = s.ideas.CreateFromAudio(ctx, userID, audio, note, loc)
	case note != nil:
		idea, err = s.ideas.CreateFromText(ctx, userID, *note, loc)
	default:
		return nil, status.Error(codes.InvalidArgument, "audio or text is required")
	}
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcapi.IdeaResponse{Idea: toRPCIdea(idea)}, nil
}

func (s *GRPCServer) ListIdeas(ctx context.Context, req *rpcapi.ListIdeasRequest) (*rpcapi.ListIdeasResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	q := services.ListQuery{Page: req.Page, Limit: req.Limit, IsCompleted: req.IsCompleted, Search: req.Search}
	if req.TimeCategory != "" {
		c, ok := timecat.ParseCategory(req.TimeCategory)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown time category %q", req.TimeCategory)
		}
		q.Category = &c
	}

	ideas, page, err := s.ideas.List(ctx, userID, q)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	resp := &rpcapi.ListIdeasResponse{
		Ideas:      make([]rpcapi.Idea, 0, len(ideas)),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
	for _, i := range ideas {
		resp.Ideas = append(resp.Ideas, toRPCIdea(i))
	}
	return resp, nil
}

func (s *GRPCServer) GetIdea(ctx context.Context, req *rpcapi.GetIdeaRequest) (*rpcapi.IdeaResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateID(req.ID); err != nil {
		return nil, err
	}
	idea, err := s.ideas.Get(ctx, userID, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcapi.IdeaResponse{Idea: toRPCIdea(idea)}, nil
}

// UpdateIdea applies the non-nil fields of the request.
func (s *GRPCServer) UpdateIdea(ctx context.Context, req *rpcapi.UpdateIdeaRequest) (*rpcapi.IdeaResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateID(req.ID); err != nil {
		return nil, err
	}
	loc, err := s.location(req.Timezone)
	if err != nil {
		return nil, err
	}

	patch := services.IdeaPatch{
		Transcription: req.Transcription,
		ExtractedTime: req.ExtractedTime,
		TimeCategory:  req.TimeCategory,
		Tags:          req.Tags,
		IsCompleted:   req.IsCompleted,
	}
	idea, err := s.ideas.Update(ctx, userID, req.ID, patch, loc)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcapi.IdeaResponse{Idea: toRPCIdea(idea)}, nil
}

func (s *GRPCServer) DeleteIdea(ctx context.Context, req *rpcapi.DeleteIdeaRequest) (*rpcapi.DeleteIdeaResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateID(req.ID); err != nil {
		return nil, err
	}
	if err := s.ideas.Delete(ctx, userID, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcapi.DeleteIdeaResponse{}, nil
}
