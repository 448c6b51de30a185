package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/ideas"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	byID      map[string]*models.User
	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = fmt.Sprintf("u%d", len(f.byID)+1)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) UpdateProfile(_ context.Context, id string, nickname, avatar *string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if nickname != nil {
		u.Nickname = *nickname
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, id string, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

// --- refresh tokens ---

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken
	// stale, when set, answers Find instead of tokens: a reader that saw the
	// table before a concurrent rotation.
	stale     map[string]*models.RefreshToken
	findErr   error
	delErr    error
	createErr error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	src := f.tokens
	if f.stale != nil {
		src = f.stale
	}
	t, ok := src[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	if f.delErr != nil {
		return 0, f.delErr
	}
	var n int64
	for k, t := range f.tokens {
		if !t.ExpiresAt.After(before) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshRepo) DeleteByUser(_ context.Context, userID string) error {
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

// --- ideas ---

type fakeIdeasRepo struct {
	byID       map[string]*models.Idea
	seq        int
	createErr  error
	updateErr  error
	lastFilter models.IdeaFilter
}

func newFakeIdeasRepo() *fakeIdeasRepo {
	return &fakeIdeasRepo{byID: map[string]*models.Idea{}}
}

func cloneIdea(i *models.Idea) *models.Idea {
	c := *i
	if i.Tags != nil {
		c.Tags = append([]string{}, i.Tags...)
	}
	return &c
}

func (f *fakeIdeasRepo) put(i *models.Idea) {
	f.byID[i.ID] = cloneIdea(i)
}

func (f *fakeIdeasRepo) Create(_ context.Context, i *models.Idea) (*models.Idea, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	c := cloneIdea(i)
	c.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", f.seq)
	c.CreatedAt = time.Date(2024, 4, 3, 2, 30, 0, f.seq, time.UTC)
	c.UpdatedAt = c.CreatedAt
	f.byID[c.ID] = c
	return cloneIdea(c), nil
}

func (f *fakeIdeasRepo) GetByID(_ context.Context, id string) (*models.Idea, error) {
	i, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneIdea(i), nil
}

func (f *fakeIdeasRepo) GetByIDForUpdate(ctx context.Context, id string) (*models.Idea, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeIdeasRepo) sorted(userID string) []*models.Idea {
	var out []*models.Idea
	for _, i := range f.byID {
		if i.UserID == userID {
			out = append(out, cloneIdea(i))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func (f *fakeIdeasRepo) List(_ context.Context, userID string, filter models.IdeaFilter) ([]*models.Idea, int, error) {
	f.lastFilter = filter
	var matched []*models.Idea
	for _, i := range f.sorted(userID) {
		if filter.Category != nil && i.TimeCategory != *filter.Category {
			continue
		}
		if filter.IsCompleted != nil && i.IsCompleted != *filter.IsCompleted {
			continue
		}
		matched = append(matched, i)
	}
	total := len(matched)
	if filter.Offset >= total {
		return []*models.Idea{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (f *fakeIdeasRepo) ListAll(_ context.Context, userID string) ([]*models.Idea, error) {
	return f.sorted(userID), nil
}

func (f *fakeIdeasRepo) Update(_ context.Context, i *models.Idea) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[i.ID]; !ok {
		return common.ErrorNotFound
	}
	i.UpdatedAt = i.UpdatedAt.Add(time.Second)
	f.byID[i.ID] = cloneIdea(i)
	return nil
}

func (f *fakeIdeasRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	i *fakeIdeasRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), r: newFakeRefreshRepo(), i: newFakeIdeasRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Ideas(dbx.DBTX) ideas.Repository                 { return m.i }

// --- collaborators ---

type fakeStore struct {
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = body
	s.types[key] = contentType
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.test/" + key + "?sig=1", nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func (d *fakeDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if d.revoked == nil {
		d.revoked = map[string]time.Duration{}
	}
	d.revoked[jti] = ttl
	return nil
}

func (d *fakeDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[jti]
	return ok, nil
}

type publishedEvent struct {
	key     string
	payload []byte
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{key: key, payload: payload})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) keys() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}
