// Package services contains server-side business logic shared by the HTTP
// and gRPC transports. This file implements UserService: registration,
// login, token refresh and logout, and profile management.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/server/auth"
	"github.com/dmitrijs2005/echolater/internal/server/config"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 50
	maxNicknameLen = 50
)

// bcryptCost is a variable so tests can use bcrypt.MinCost.
var bcryptCost = bcrypt.DefaultCost

// dummyHash is compared against when the email is unknown so a failed login
// takes as long as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("echolater-dummy-password"), bcrypt.DefaultCost)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// UserService provides authentication and account operations.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	denylist                     auth.Denylist
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, denylist auth.Denylist, cfg *config.Config) *UserService {
	if denylist == nil {
		denylist = auth.NopDenylist{}
	}
	return &UserService{
		db:                           db,
		repomanager:                  m,
		denylist:                     denylist,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// PurgeExpiredRefreshTokens deletes refresh tokens that can no longer be
// redeemed.
func (s *UserService) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
}

// Register creates an account and signs the user in. A duplicate email yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password, nickname string) (*models.User, *TokenPair, error) {
	email = normalizeEmail(email)
	nickname = strings.TrimSpace(nickname)

	if err := validateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLen {
		return nil, nil, validationError("nickname must be at most %d characters", maxNicknameLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	var (
		user *models.User
		pair *TokenPair
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        email,
			PasswordHash: string(hash),
			Nickname:     nickname,
		})
		if err != nil {
			return err
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, nil, fmt.Errorf("%w: email already in use", common.ErrorAlreadyExists)
		}
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable: both return common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, nil, fmt.Errorf("%w: invalid credentials", common.ErrorUnauthorized)
		}
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, fmt.Errorf("%w: invalid credentials", common.ErrorUnauthorized)
	}

	pair, err := s.generateTokenPair(ctx, user, s.db)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired. A
// token is redeemable once: a second or concurrent redeemer gets
// common.ErrorUnauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrorUnauthorized
	}
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expired(s.now()) {
		_ = repo.Delete(ctx, refreshToken)
		return nil, common.ErrRefreshTokenExpired
	}

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*TokenPair, error) {
		// The delete is the single point of redemption: a token another
		// request already rotated affects no rows.
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, fmt.Errorf("%w: refresh token already used", common.ErrorUnauthorized)
			}
			return nil, fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrorUnauthorized
			}
			return nil, err
		}
		return s.generateTokenPair(ctx, user, tx)
	})
}

// Authenticate parses an access token and rejects revoked ones.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the presented access token for the rest of its lifetime and
// deletes refreshToken when it belongs to the same user.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	if err := s.denylist.Revoke(ctx, claims.ID, claims.RemainingValidity(s.now())); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if refreshToken == "" {
		return nil
	}

	repo := s.repomanager.RefreshTokens(s.db)
	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}
	if token.UserID != claims.UserID {
		return nil
	}
	if err := repo.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}

// GetProfile returns the stored user. If absent, it returns common.ErrorNotFound.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// UpdateProfile changes the non-nil fields. An empty avatar clears it.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, nickname, avatar *string) (*models.User, error) {
	if nickname != nil {
		n := strings.TrimSpace(*nickname)
		if utf8.RuneCountInString(n) > maxNicknameLen {
			return nil, validationError("nickname must be at most %d characters", maxNicknameLen)
		}
		nickname = &n
	}
	if avatar != nil {
		a := strings.TrimSpace(*avatar)
		if a != "" && !isHTTPURL(a) {
			return nil, validationError("avatar must be an http(s) URL")
		}
		avatar = &a
	}
	return s.repomanager.Users(s.db).UpdateProfile(ctx, userID, nickname, avatar)
}

// ChangePassword replaces the password and signs the user out of every other
// session by dropping all refresh tokens.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: current password is incorrect", common.ErrorUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, userID, string(hash)); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID)
	})
}

// --- helpers below ---

// --- helpers below ---

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, claims, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.now().Add(s.refreshTokenValidityDuration)); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return validationError("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen {
		return validationError("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}
