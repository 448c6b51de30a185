package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/services"
)

const maxJSONBody = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type authResponse struct {
	User         services.UserView `json:"user"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type profileRequest struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", common.ErrorValidation)
	}
	return nil
}

func newAuthResponse(u *models.User, pair *services.TokenPair) authResponse {
	return authResponse{User: services.NewUserView(u), Token: pair.AccessToken, RefreshToken: pair.RefreshToken}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, pair, err := s.users.Register(r.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, newAuthResponse(u, pair))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeError(w, r, fmt.Errorf("%w: email and password are required", common.ErrorValidation))
		return
	}

	u, pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newAuthResponse(u, pair))
}

// handleRefresh serves POST /api/auth/refresh. The presented token is consumed.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		s.writeError(w, r, fmt.Errorf("%w: refreshToken is required", common.ErrorValidation))
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tokenResponse{Token: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// handleLogout serves POST /api/auth/logout. The refresh token in the body is
// optional.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.users.Logout(r.Context(), claimsFrom(r.Context()), req.RefreshToken); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "logged out")
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetProfile(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, services.NewUserView(u))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.UpdateProfile(r.Context(), claimsFrom(r.Context()).UserID, req.Nickname, req.Avatar)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, services.NewUserView(u))
}

// handleChangePassword serves POST /api/user/change-password and ends every
// other session of the user.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.ChangePassword(r.Context(), claimsFrom(r.Context()).UserID, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "password changed")
}
