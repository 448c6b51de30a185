package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/echolater/internal/client/client"
	"github.com/dmitrijs2005/echolater/internal/client/config"
	"github.com/dmitrijs2005/echolater/internal/client/services"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
)

type fakeAuth struct {
	regEmail, regNick string
	regPass           []byte
	regErr            error

	loginEmail string
	loginPass  []byte
	loginErr   error

	loggedIn   bool
	logoutErr  error
	logoutCall bool
	closeCall  bool
}

func (f *fakeAuth) Register(_ context.Context, email string, pass []byte, nick string) (*rpcapi.User, error) {
	f.regEmail, f.regPass, f.regNick = email, append([]byte(nil), pass...), nick
	if f.regErr != nil {
		return nil, f.regErr
	}
	f.loggedIn = true
	return &rpcapi.User{ID: "u1", Email: email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email string, pass []byte) (*rpcapi.User, error) {
	f.loginEmail, f.loginPass = email, append([]byte(nil), pass...)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.loggedIn = true
	return &rpcapi.User{ID: "u1", Email: email}, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCall = true
	if !f.loggedIn {
		return client.ErrNotLoggedIn
	}
	f.loggedIn = false
	return f.logoutErr
}

func (f *fakeAuth) Restore(context.Context) (string, error) {
	if !f.loggedIn {
		return "", client.ErrNotLoggedIn
	}
	return "alice@example.org", nil
}

func (f *fakeAuth) Ping(context.Context) error { return nil }
func (f *fakeAuth) Close(context.Context) error {
	f.closeCall = true
	return nil
}

type fakeIdeas struct {
	idea *rpcapi.Idea
	list *rpcapi.ListIdeasResponse
	err  error

	recordPath, recordNote string
	recordDuration         int
	noteText               string
	listOpts               *services.ListOptions
	lastID                 string
	completed              *bool
	removed                string
	audio                  []byte
}

func (f *fakeIdeas) Record(_ context.Context, path, note string, duration int) (*rpcapi.Idea, error) {
	f.recordPath, f.recordNote, f.recordDuration = path, note, duration
	return f.idea, f.err
}
func (f *fakeIdeas) Note(_ context.Context, text string) (*rpcapi.Idea, error) {
	f.noteText = text
	return f.idea, f.err
}
func (f *fakeIdeas) List(_ context.Context, opts services.ListOptions) (*rpcapi.ListIdeasResponse, error) {
	f.listOpts = &opts
	return f.list, f.err
}
func (f *fakeIdeas) Show(_ context.Context, id string) (*rpcapi.Idea, error) {
	f.lastID = id
	return f.idea, f.err
}
func (f *fakeIdeas) SetCompleted(_ context.Context, id string, done bool) (*rpcapi.Idea, error) {
	f.lastID, f.completed = id, &done
	return f.idea, f.err
}
func (f *fakeIdeas) Remove(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = id
	return nil
}
func (f *fakeIdeas) DownloadAudio(_ context.Context, id string, w io.Writer) (int64, error) {
	f.lastID = id
	if f.err != nil {
		return 0, f.err
	}
	n, err := w.Write(f.audio)
	return int64(n), err
}

// harness runs the root command against fakes.
type harness struct {
	auth  *fakeAuth
	ideas *fakeIdeas
	cfg   *config.Config
	st    *rootState
}

func newHarness() *harness {
	h := &harness{auth: &fakeAuth{}, ideas: &fakeIdeas{}}
	h.st = &rootState{factory: func(_ context.Context, cfg *config.Config) (*App, error) {
		h.cfg = cfg
		return &App{config: cfg, authService: h.auth, ideaService: h.ideas}, nil
	}}
	return h
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TZ", "")

	// every run is a fresh process as far as the App is concerned
	h.st.app = nil
	root := newRootCmd(h.st)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// scriptPasswords makes getPassword return the given values in order.
func scriptPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })
	i := 0
	getPassword = func(_ *bufio.Reader, _ string, _ io.Writer) ([]byte, error) {
		if i >= len(pws) {
			return nil, io.EOF
		}
		i++
		return []byte(pws[i-1]), nil
	}
}
