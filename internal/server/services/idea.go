package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/logging"
	"github.com/dmitrijs2005/echolater/internal/server/events"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/echolater/internal/server/timecat"
	"github.com/dmitrijs2005/echolater/internal/server/transcription"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps (Page-1)*Limit far from int overflow.
	MaxPage          = 1_000_000
)

// ListQuery selects a page of ideas. Zero Page and Limit mean the defaults.
type ListQuery struct {
	Page        int
	Limit       int
	Category    *timecat.Category
	IsCompleted *bool
	Search      string
}

// IdeaPatch holds the fields of an update. Nil fields are left unchanged.
type IdeaPatch struct {
	Transcription *string
	ExtractedTime *time.Time
	TimeCategory  *string
	Tags          *[]string
	IsCompleted   *bool
}

// ExportFile is a rendered export ready to be sent as a download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

var csvHeader = []string{"id", "transcription", "timeCategory", "tags", "isCompleted", "extractedTime", "audioDuration", "createdAt"}

// IdeaService owns the idea lifecycle: capture, categorization, listing,
// edits and export.
type IdeaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	uploader    *AudioUploader
	transcriber transcription.Transcriber
	publisher   events.Publisher
	logger      logging.Logger
	now         func() time.Time
}

// NewIdeaService wires an IdeaService. transcriber may be nil, in which case
// audio is only accepted together with a manual note.
func NewIdeaService(db *sql.DB, m repomanager.RepositoryManager, uploader *AudioUploader,
	transcriber transcription.Transcriber, publisher events.Publisher, logger logging.Logger) *IdeaService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &IdeaService{
		db:          db,
		repomanager: m,
		uploader:    uploader,
		transcriber: transcriber,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateFromAudio stores the recording, transcribes it unless manualNote is
// given, and persists the categorized idea. A failed transcription removes
// the uploaded object again.
func (s *IdeaService) CreateFromAudio(ctx context.Context, userID string, audio AudioFile, manualNote *string, loc *time.Location) (*models.Idea, error) {
	stored, err := s.uploader.Upload(ctx, audio)
	if err != nil {
		return nil, err
	}

	var text string
	if manualNote != nil && strings.TrimSpace(*manualNote) != "" {
		text = strings.TrimSpace(*manualNote)
	} else {
		text, err = s.transcribe(ctx, audio)
		if err != nil {
			s.removeAudio(ctx, stored.Key)
			return nil, err
		}
	}

	idea := &models.Idea{
		UserID:        userID,
		AudioKey:      stored.Key,
		AudioFileName: stored.FileName,
		AudioDuration: audio.Duration,
		Transcription: text,
	}
	created, err := s.create(ctx, idea, loc)
	if err != nil {
		s.removeAudio(ctx, stored.Key)
		return nil, err
	}
	created.AudioURL = stored.URL
	return created, nil
}

// CreateFromText persists a note that has no recording.
func (s *IdeaService) CreateFromText(ctx context.Context, userID, text string, loc *time.Location) (*models.Idea, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("note text is required")
	}
	return s.create(ctx, &models.Idea{UserID: userID, Transcription: text}, loc)
}

func (s *IdeaService) transcribe(ctx context.Context, audio AudioFile) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf("%w: speech-to-text is not configured", common.ErrTranscriptionUnavailable)
	}
	text, err := s.transcriber.Transcribe(ctx, audio.Data, audio.Name)
	if err != nil {
		if errors.Is(err, common.ErrTranscriptionUnavailable) || errors.Is(err, common.ErrTranscriptionFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", common.ErrTranscriptionFailed, err)
	}
	return text, nil
}

func (s *IdeaService) create(ctx context.Context, idea *models.Idea, loc *time.Location) (*models.Idea, error) {
	r := timecat.ExtractTimeAndCategory(idea.Transcription, s.now().In(loc))
	idea.ExtractedTime = r.ExtractedTime
	idea.TimeCategory = r.Category
	if idea.Tags == nil {
		idea.Tags = []string{}
	}

	created, err := s.repomanager.Ideas(s.db).Create(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	s.publish(ctx, events.IdeaCreated, created)
	return created, nil
}

// List returns one page of the user's ideas, newest first.
func (s *IdeaService) List(ctx context.Context, userID string, q ListQuery) ([]*models.Idea, models.Pagination, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Page < 1 || q.Page > MaxPage {
		return nil, models.Pagination{}, validationError("page must be between 1 and %d", MaxPage)
	}
	if q.Limit < 1 || q.Limit > MaxPageLimit {
		return nil, models.Pagination{}, validationError("limit must be between 1 and %d", MaxPageLimit)
	}

	filter := models.IdeaFilter{
		Category:    q.Category,
		IsCompleted: q.IsCompleted,
		Search:      strings.TrimSpace(q.Search),
		Limit:       q.Limit,
		Offset:      (q.Page - 1) * q.Limit,
	}
	ideas, total, err := s.repomanager.Ideas(s.db).List(ctx, userID, filter)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	s.attachAudioURLs(ctx, ideas...)
	return ideas, models.NewPagination(total, q.Page, q.Limit), nil
}

// Get returns an idea owned by userID.
func (s *IdeaService) Get(ctx context.Context, userID, id string) (*models.Idea, error) {
	idea, err := s.repomanager.Ideas(s.db).GetByID(ctx, id)
	if err := ownerGuard(idea, err, userID); err != nil {
		return nil, err
	}
	s.attachAudioURLs(ctx, idea)
	return idea, nil
}

// Update applies patch and recomputes the time fields through timecat. The
// row is locked for the duration of the change.
func (s *IdeaService) Update(ctx context.Context, userID, id string, patch IdeaPatch, loc *time.Location) (*models.Idea, error) {
	var category *timecat.Category
	if patch.TimeCategory != nil {
		c, ok := timecat.ParseCategory(*patch.TimeCategory)
		if !ok {
			return nil, validationError("unknown time category %q", *patch.TimeCategory)
		}
		category = &c
	}

	idea, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Idea, error) {
		repo := s.repomanager.Ideas(tx)
		idea, err := repo.GetByIDForUpdate(ctx, id)
		if err := ownerGuard(idea, err, userID); err != nil {
			return nil, err
		}

		now := s.now().In(loc)
		if err := applyPatch(idea, patch, category, now); err != nil {
			return nil, err
		}

		if err := repo.Update(ctx, idea); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		return idea, nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.IdeaUpdated, idea)
	s.attachAudioURLs(ctx, idea)
	return idea, nil
}

func applyPatch(idea *models.Idea, patch IdeaPatch, category *timecat.Category, now time.Time) error {
	if patch.Transcription != nil {
		idea.Transcription = strings.TrimSpace(*patch.Transcription)
		r := timecat.ExtractTimeAndCategory(idea.Transcription, now)
		idea.ExtractedTime, idea.TimeCategory = r.ExtractedTime, r.Category
	}

	switch {
	case patch.ExtractedTime != nil:
		t := patch.ExtractedTime.In(now.Location())
		idea.ExtractedTime = &t
		idea.TimeCategory = timecat.Categorize(idea.ExtractedTime, now)
	case category != nil && *category == timecat.Inbox:
		idea.ExtractedTime = nil
		idea.TimeCategory = timecat.Inbox
	case category != nil:
		if idea.ExtractedTime == nil {
			return validationError("time category %q requires a time", *category)
		}
		idea.TimeCategory = timecat.Categorize(idea.ExtractedTime, now)
	}

	if patch.Tags != nil {
		idea.Tags = normalizeTags(*patch.Tags)
	}

	if patch.IsCompleted != nil {
		switch {
		case !*patch.IsCompleted:
			idea.IsCompleted = false
			idea.CompletedAt = nil
		case !idea.IsCompleted || idea.CompletedAt == nil:
			t := now
			idea.IsCompleted = true
			idea.CompletedAt = &t
		}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Delete removes the idea and then, best effort, its recording.
func (s *IdeaService) Delete(ctx context.Context, userID, id string) error {
	idea, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Idea, error) {
		repo := s.repomanager.Ideas(tx)
		idea, err := repo.GetByIDForUpdate(ctx, id)
		if err := ownerGuard(idea, err, userID); err != nil {
			return nil, err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return nil, err
		}
		return idea, nil
	})
	if err != nil {
		return err
	}

	if idea.HasAudio() {
		s.removeAudio(ctx, idea.AudioKey)
	}
	s.publish(ctx, events.IdeaDeleted, idea)
	return nil
}

// Export renders every idea of the user as "json" or "csv".
func (s *IdeaService) Export(ctx context.Context, userID, format string) (*ExportFile, error) {
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		return nil, validationError("unsupported export format %q", format)
	}

	ideas, err := s.repomanager.Ideas(s.db).ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	name := fmt.Sprintf("echolater-export-%s.%s", s.now().UTC().Format("20060102"), format)
	if format == "csv" {
		data, err := exportCSV(ideas)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		return &ExportFile{FileName: name, ContentType: "text/csv; charset=utf-8", Data: data}, nil
	}

	data, err := json.MarshalIndent(NewIdeaViews(ideas), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &ExportFile{FileName: name, ContentType: "application/json", Data: data}, nil
}

func exportCSV(ideas []*models.Idea) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, i := range ideas {
		extracted := ""
		if i.ExtractedTime != nil {
			extracted = i.ExtractedTime.Format(time.RFC3339)
		}
		record := []string{
			i.ID,
			i.Transcription,
			i.TimeCategory.String(),
			strings.Join(i.Tags, ";"),
			strconv.FormatBool(i.IsCompleted),
			extracted,
			strconv.Itoa(i.AudioDuration),
			i.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ownerGuard folds repository lookup errors and the ownership check into the
// service error vocabulary.
func ownerGuard(idea *models.Idea, err error, userID string) error {
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if idea.UserID != userID {
		return common.ErrorForbidden
	}
	return nil
}

func (s *IdeaService) attachAudioURLs(ctx context.Context, ideas ...*models.Idea) {
	for _, i := range ideas {
		if !i.HasAudio() {
			continue
		}
		url, err := s.uploader.URL(ctx, i.AudioKey)
		if err != nil {
			s.logger.Warn(ctx, "presigning audio failed", "idea_id", i.ID, "error", err)
			continue
		}
		i.AudioURL = url
	}
}

func (s *IdeaService) removeAudio(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "removing audio failed", "key", key, "error", err)
	}
}

// publish sends the event without failing the caller when the broker is down.
func (s *IdeaService) publish(ctx context.Context, eventType string, idea *models.Idea) {
	ev := events.IdeaEvent{
		Type:         eventType,
		IdeaID:       idea.ID,
		UserID:       idea.UserID,
		TimeCategory: idea.TimeCategory.String(),
		OccurredAt:   s.now().UTC(),
	}
	if err := events.PublishIdeaEvent(ctx, s.publisher, ev); err != nil {
		s.logger.Warn(ctx, "publishing idea event failed", "type", eventType, "idea_id", idea.ID, "error", err)
	}
}
