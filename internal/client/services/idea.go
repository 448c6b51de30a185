package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/echolater/internal/client/client"
	"github.com/dmitrijs2005/echolater/internal/filex"
	"github.com/dmitrijs2005/echolater/internal/netx"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
)

// MaxAudioSize mirrors the server's upload limit so oversized files are
// rejected before they are sent.
const MaxAudioSize = rpcapi.MaxAudioSize

var audioTypes = map[string]string{
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
}

// ListOptions are the filters of the list command.
type ListOptions struct {
	Page      int
	Limit     int
	Category  string
	Search    string
	Completed *bool
}

// IdeaService is what the CLI commands call for everything idea related.
type IdeaService interface {
	Record(ctx context.Context, path, note string, duration int) (*rpcapi.Idea, error)
	Note(ctx context.Context, text string) (*rpcapi.Idea, error)
	List(ctx context.Context, opts ListOptions) (*rpcapi.ListIdeasResponse, error)
	Show(ctx context.Context, id string) (*rpcapi.Idea, error)
	SetCompleted(ctx context.Context, id string, done bool) (*rpcapi.Idea, error)
	Remove(ctx context.Context, id string) error
	DownloadAudio(ctx context.Context, id string, w io.Writer) (int64, error)
}

type ideaService struct {
	client   client.Client
	timezone string
	http     *http.Client
}

// NewIdeaService binds the idea commands to client. timezone is the IANA
// name sent with every request that needs one; empty lets the server decide.
func NewIdeaService(c client.Client, timezone string) IdeaService {
	return &ideaService{client: c, timezone: timezone, http: http.DefaultClient}
}

func audioContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := audioTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (s *ideaService) Record(ctx context.Context, path, note string, duration int) (*rpcapi.Idea, error) {
	data, err := filex.ReadLimited(path, MaxAudioSize)
	if err != nil {
		if errors.Is(err, filex.ErrTooLarge) {
			return nil, fmt.Errorf("%s: recording is larger than %d MB", path, MaxAudioSize>>20)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: recording is empty", path)
	}
	if duration < 0 {
		return nil, fmt.Errorf("duration must not be negative")
	}

	return s.client.CreateIdea(ctx, &rpcapi.CreateIdeaRequest{
		Text:             strings.TrimSpace(note),
		Audio:            data,
		AudioFileName:    filepath.Base(path),
		AudioContentType: audioContentType(path),
		AudioDuration:    duration,
		Timezone:         s.timezone,
	})
}

func (s *ideaService) Note(ctx context.Context, text string) (*rpcapi.Idea, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("note text is empty")
	}
	return s.client.CreateIdea(ctx, &rpcapi.CreateIdeaRequest{Text: text, Timezone: s.timezone})
}

func (s *ideaService) List(ctx context.Context, opts ListOptions) (*rpcapi.ListIdeasResponse, error) {
	return s.client.ListIdeas(ctx, &rpcapi.ListIdeasRequest{
		Page:         opts.Page,
		Limit:        opts.Limit,
		TimeCategory: opts.Category,
		IsCompleted:  opts.Completed,
		Search:       strings.TrimSpace(opts.Search),
	})
}

func (s *ideaService) Show(ctx context.Context, id string) (*rpcapi.Idea, error) {
	return s.client.GetIdea(ctx, id)
}

func (s *ideaService) SetCompleted(ctx context.Context, id string, done bool) (*rpcapi.Idea, error) {
	return s.client.UpdateIdea(ctx, &rpcapi.UpdateIdeaRequest{ID: id, IsCompleted: &done, Timezone: s.timezone})
}

func (s *ideaService) Remove(ctx context.Context, id string) error {
	return s.client.DeleteIdea(ctx, id)
}

// DownloadAudio writes the idea's recording to w using the presigned url the
// server hands out with the idea.
func (s *ideaService) DownloadAudio(ctx context.Context, id string, w io.Writer) (int64, error) {
	idea, err := s.client.GetIdea(ctx, id)
	if err != nil {
		return 0, err
	}
	if idea.AudioURL == "" {
		return 0, fmt.Errorf("idea %s has no recording", id)
	}
	return netx.DownloadPresignedURL(ctx, s.http, idea.AudioURL, w)
}
