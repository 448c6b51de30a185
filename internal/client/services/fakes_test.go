package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/echolater/internal/client/client"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.OpenSessionDB(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) string {
	t.Helper()
	var v string
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return v
}

func countMeta(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	return n
}

// ---- fake client ----

type fakeClient struct {
	authResp    *rpcapi.AuthResponse
	authErr     error
	logoutErr   error
	pingErr     error
	closeErr    error
	idea        *rpcapi.Idea
	list        *rpcapi.ListIdeasResponse
	ideaErr     error
	closeCalled bool

	lastEmail    string
	lastPassword string
	lastNickname string
	lastLogout   *string
	lastCreate   *rpcapi.CreateIdeaRequest
	lastList     *rpcapi.ListIdeasRequest
	lastUpdate   *rpcapi.UpdateIdeaRequest
	lastID       string

	access, refresh string
	hook            client.RefreshHook
}

func (f *fakeClient) Close() error {
	f.closeCalled = true
	return f.closeErr
}
func (f *fakeClient) Ping(context.Context) error { return f.pingErr }

func (f *fakeClient) Register(_ context.Context, email, password, nickname string) (*rpcapi.AuthResponse, error) {
	f.lastEmail, f.lastPassword, f.lastNickname = email, password, nickname
	return f.authResp, f.authErr
}
func (f *fakeClient) Login(_ context.Context, email, password string) (*rpcapi.AuthResponse, error) {
	f.lastEmail, f.lastPassword = email, password
	return f.authResp, f.authErr
}
func (f *fakeClient) Logout(_ context.Context, refreshToken string) error {
	f.lastLogout = &refreshToken
	return f.logoutErr
}
func (f *fakeClient) SetTokens(a, r string, hook client.RefreshHook) {
	f.access, f.refresh, f.hook = a, r, hook
}
func (f *fakeClient) Tokens() (string, string) { return f.access, f.refresh }

func (f *fakeClient) CreateIdea(_ context.Context, req *rpcapi.CreateIdeaRequest) (*rpcapi.Idea, error) {
	f.lastCreate = req
	return f.idea, f.ideaErr
}
func (f *fakeClient) ListIdeas(_ context.Context, req *rpcapi.ListIdeasRequest) (*rpcapi.ListIdeasResponse, error) {
	f.lastList = req
	return f.list, f.ideaErr
}
func (f *fakeClient) GetIdea(_ context.Context, id string) (*rpcapi.Idea, error) {
	f.lastID = id
	return f.idea, f.ideaErr
}
func (f *fakeClient) UpdateIdea(_ context.Context, req *rpcapi.UpdateIdeaRequest) (*rpcapi.Idea, error) {
	f.lastUpdate = req
	return f.idea, f.ideaErr
}
func (f *fakeClient) DeleteIdea(_ context.Context, id string) error {
	f.lastID = id
	return f.ideaErr
}

var _ client.Client = (*fakeClient)(nil)
