// Package services contains application services for the EchoLater client.
// This file defines the authentication service: register, login, logout and
// the local session that lets later invocations of the CLI stay logged in.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/echolater/internal/client/client"
	"github.com/dmitrijs2005/echolater/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
)

// Session keys in the metadata table.
const (
	keyEmail        = "email"
	keyUserID       = "user_id"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / Login: authenticate against the server and persist the
//     returned session locally.
//   - Restore: load a persisted session into the client, ErrNotLoggedIn
//     when there is none.
//   - Logout: revoke the session on the server and always wipe it locally.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte, nickname string) (*rpcapi.User, error)
	Login(ctx context.Context, email string, password []byte) (*rpcapi.User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (email string, err error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// authService is the concrete AuthService backed by a remote Client
// and the local SQLite session database.
type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

func (a *authService) Register(ctx context.Context, email string, password []byte, nickname string) (*rpcapi.User, error) {
	resp, err := a.client.Register(ctx, email, string(password), nickname)
	if err != nil {
		return nil, fmt.Errorf("register error: %w", err)
	}
	if err := a.saveSession(ctx, resp); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &resp.User, nil
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*rpcapi.User, error) {
	resp, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if err := a.saveSession(ctx, resp); err != nil {
		return nil, fmt.Errorf("session saving error: %w", err)
	}
	return &resp.User, nil
}

// saveSession replaces whatever session was stored with the new one in a
// single transaction and installs the refresh hook on the client.
func (a *authService) saveSession(ctx context.Context, resp *rpcapi.AuthResponse) error {
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		for k, v := range map[string]string{
			keyEmail:        resp.User.Email,
			keyUserID:       resp.User.ID,
			keyAccessToken:  resp.AccessToken,
			keyRefreshToken: resp.RefreshToken,
		} {
			if err := repo.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.client.SetTokens(resp.AccessToken, resp.RefreshToken, a.saveTokens)
	return nil
}

// saveTokens is the client's refresh hook.
func (a *authService) saveTokens(ctx context.Context, accessToken, refreshToken string) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, accessToken); err != nil {
			return err
		}
		return repo.Set(ctx, keyRefreshToken, refreshToken)
	})
}

func (a *authService) Restore(ctx context.Context) (string, error) {
	repo := a.getMetadataRepo()

	access, ok, err := repo.Get(ctx, keyAccessToken)
	if err != nil {
		return "", err
	}
	if !ok || access == "" {
		return "", client.ErrNotLoggedIn
	}
	refresh, _, err := repo.Get(ctx, keyRefreshToken)
	if err != nil {
		return "", err
	}
	email, _, err := repo.Get(ctx, keyEmail)
	if err != nil {
		return "", err
	}

	a.client.SetTokens(access, refresh, a.saveTokens)
	return email, nil
}

// Logout wipes the local session even when the server could not be reached;
// the server-side error is still reported.
func (a *authService) Logout(ctx context.Context) error {
	if _, err := a.Restore(ctx); err != nil {
		return err
	}
	_, refresh := a.client.Tokens()

	remoteErr := a.client.Logout(ctx, refresh)
	if remoteErr != nil && errors.Is(remoteErr, client.ErrUnauthorized) {
		// The session was already dead on the server.
		remoteErr = nil
	}

	a.client.SetTokens("", "", nil)
	if err := a.getMetadataRepo().Clear(ctx); err != nil {
		return errors.Join(remoteErr, fmt.Errorf("clearing session: %w", err))
	}
	if remoteErr != nil {
		return fmt.Errorf("logout error: %w", remoteErr)
	}
	return nil
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
