package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/server/events"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/timecat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shanghai = time.FixedZone("CST", 8*60*60)

// Wednesday 2024-04-03 10:30 in Shanghai.
var fixedNow = time.Date(2024, time.April, 3, 2, 30, 0, 0, time.UTC)

type ideaFixture struct {
	svc   *IdeaService
	mock  sqlmock.Sqlmock
	rm    *fakeRepoManager
	store *fakeStore
	stt   *fakeTranscriber
	pub   *fakePublisher
}

func newIdeaFixture(t *testing.T) *ideaFixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	f := &ideaFixture{
		mock:  mock,
		rm:    newFakeRepoManager(),
		store: newFakeStore(),
		stt:   &fakeTranscriber{},
		pub:   &fakePublisher{},
	}
	f.svc = NewIdeaService(db, f.rm, newTestUploader(f.store), f.stt, f.pub, nil)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *ideaFixture) seed(i *models.Idea) *models.Idea {
	if i.TimeCategory == "" {
		i.TimeCategory = timecat.Inbox
	}
	f.rm.i.put(i)
	return i
}

func webm() AudioFile {
	return AudioFile{Name: "memo.webm", ContentType: "audio/webm", Data: []byte("webm-bytes"), Duration: 12}
}

func ptrTo[T any](v T) *T { return &v }

func TestCreateFromAudio_Transcribes(t *testing.T) {
	f := newIdeaFixture(t)
	f.stt.text = "明天开会"

	idea, err := f.svc.CreateFromAudio(context.Background(), "u1", webm(), nil, shanghai)
	require.NoError(t, err)

	assert.Equal(t, 1, f.stt.calls)
	assert.Equal(t, "明天开会", idea.Transcription)
	assert.Equal(t, timecat.ThisWeek, idea.TimeCategory)
	require.NotNil(t, idea.ExtractedTime)
	assert.True(t, idea.ExtractedTime.Equal(time.Date(2024, time.April, 4, 10, 30, 0, 0, shanghai)))
	assert.Equal(t, 12, idea.AudioDuration)
	assert.Equal(t, []string{}, idea.Tags)
	assert.NotEmpty(t, idea.AudioURL)
	assert.Contains(t, f.store.objects, idea.AudioKey)
	assert.Equal(t, []string{events.IdeaCreated}, f.pub.keys())

	var ev events.IdeaEvent
	require.NoError(t, json.Unmarshal(f.pub.events[0].payload, &ev))
	assert.Equal(t, idea.ID, ev.IdeaID)
	assert.Equal(t, "thisWeek", ev.TimeCategory)
}

func TestCreateFromAudio_ManualNoteSkipsTranscription(t *testing.T) {
	f := newIdeaFixture(t)

	idea, err := f.svc.CreateFromAudio(context.Background(), "u1", webm(), ptrTo("  buy milk "), shanghai)
	require.NoError(t, err)
	assert.Zero(t, f.stt.calls)
	assert.Equal(t, "buy milk", idea.Transcription)
	assert.Equal(t, timecat.Inbox, idea.TimeCategory)
	assert.Nil(t, idea.ExtractedTime)
}

func TestCreateFromAudio_TranscriptionFailureCleansUp(t *testing.T) {
	f := newIdeaFixture(t)
	f.stt.err = errBoom

	_, err := f.svc.CreateFromAudio(context.Background(), "u1", webm(), nil, shanghai)
	assert.ErrorIs(t, err, common.ErrTranscriptionFailed)
	assert.Empty(t, f.store.objects)
	assert.Len(t, f.store.deleted, 1)
	assert.Empty(t, f.rm.i.byID)
	assert.Empty(t, f.pub.events)
}

func TestCreateFromAudio_Unavailable(t *testing.T) {
	f := newIdeaFixture(t)
	f.stt.err = common.ErrTranscriptionUnavailable

	_, err := f.svc.CreateFromAudio(context.Background(), "u1", webm(), nil, shanghai)
	assert.ErrorIs(t, err, common.ErrTranscriptionUnavailable)

	f.svc.transcriber = nil
	_, err = f.svc.CreateFromAudio(context.Background(), "u1", webm(), nil, shanghai)
	assert.ErrorIs(t, err, common.ErrTranscriptionUnavailable)
}

func TestCreateFromAudio_RejectsBeforeTranscribing(t *testing.T) {
	f := newIdeaFixture(t)
	audio := webm()
	audio.ContentType = "video/quicktime"

	_, err := f.svc.CreateFromAudio(context.Background(), "u1", audio, nil, shanghai)
	assert.ErrorIs(t, err, common.ErrorUnsupportedFormat)
	assert.Zero(t, f.stt.calls)
}

func TestCreateFromAudio_PersistFailureRemovesAudio(t *testing.T) {
	f := newIdeaFixture(t)
	f.stt.text = "hello"
	f.rm.i.createErr = errBoom

	_, err := f.svc.CreateFromAudio(context.Background(), "u1", webm(), nil, shanghai)
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Empty(t, f.store.objects)
}

func TestCreateFromText(t *testing.T) {
	f := newIdeaFixture(t)

	_, err := f.svc.CreateFromText(context.Background(), "u1", "   ", shanghai)
	assert.ErrorIs(t, err, common.ErrorValidation)

	idea, err := f.svc.CreateFromText(context.Background(), "u1", "12月25号聚会", shanghai)
	require.NoError(t, err)
	assert.Equal(t, timecat.Future, idea.TimeCategory)
	assert.False(t, idea.HasAudio())
	assert.Empty(t, idea.AudioURL)
}

func TestCreate_UsesCallerTimezone(t *testing.T) {
	f := newIdeaFixture(t)
	// 02:30 UTC is still Tuesday in New York, so "tomorrow" is Wednesday.
	ny := time.FixedZone("EDT", -4*60*60)

	idea, err := f.svc.CreateFromText(context.Background(), "u1", "tomorrow", ny)
	require.NoError(t, err)
	require.NotNil(t, idea.ExtractedTime)
	assert.Equal(t, time.Wednesday, idea.ExtractedTime.Weekday())
	assert.Equal(t, ny, idea.ExtractedTime.Location())
}

func TestList(t *testing.T) {
	f := newIdeaFixture(t)
	for i := 0; i < 25; i++ {
		_, err := f.svc.CreateFromText(context.Background(), "u1", "note", shanghai)
		require.NoError(t, err)
	}
	_, err := f.svc.CreateFromText(context.Background(), "u2", "other", shanghai)
	require.NoError(t, err)

	ideas, page, err := f.svc.List(context.Background(), "u1", ListQuery{})
	require.NoError(t, err)
	assert.Len(t, ideas, 20)
	assert.Equal(t, models.Pagination{Total: 25, Page: 1, Limit: 20, TotalPages: 2}, page)

	ideas, page, err = f.svc.List(context.Background(), "u1", ListQuery{Page: 2, Limit: 20, Search: "  no "})
	require.NoError(t, err)
	assert.Len(t, ideas, 5)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 20, f.rm.i.lastFilter.Offset)
	assert.Equal(t, "no", f.rm.i.lastFilter.Search)
	assert.True(t, ideas[0].CreatedAt.After(ideas[4].CreatedAt))
}

func TestList_Validation(t *testing.T) {
	f := newIdeaFixture(t)
	for _, q := range []ListQuery{
		{Page: -1},
		{Limit: -5},
		{Limit: MaxPageLimit + 1},
		{Page: MaxPage + 1},
		{Page: math.MaxInt, Limit: MaxPageLimit},
	} {
		_, _, err := f.svc.List(context.Background(), "u1", q)
		assert.ErrorIs(t, err, common.ErrorValidation, "%+v", q)
	}

	_, page, err := f.svc.List(context.Background(), "u1", ListQuery{Page: MaxPage, Limit: MaxPageLimit})
	require.NoError(t, err)
	assert.Equal(t, MaxPage, page.Page)
	assert.Equal(t, (MaxPage-1)*MaxPageLimit, f.rm.i.lastFilter.Offset)
}

func TestGet_OwnerGuard(t *testing.T) {
	f := newIdeaFixture(t)
	f.seed(&models.Idea{ID: "i1", UserID: "u1", AudioKey: "recordings/x.webm"})

	idea, err := f.svc.Get(context.Background(), "u1", "i1")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/recordings/x.webm?sig=1", idea.AudioURL)

	_, err = f.svc.Get(context.Background(), "u2", "i1")
	assert.ErrorIs(t, err, common.ErrorForbidden)

	_, err = f.svc.Get(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate_Recompute(t *testing.T) {
	existing := time.Date(2024, time.April, 20, 9, 0, 0, 0, shanghai)
	completedAt := time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    models.Idea
		patch    IdeaPatch
		wantCat  timecat.Category
		wantTime *time.Time
		check    func(t *testing.T, got *models.Idea)
	}{
		{
			name:     "new transcription re-extracts",
			start:    models.Idea{Transcription: "old"},
			patch:    IdeaPatch{Transcription: ptrTo("今天下午开会")},
			wantCat:  timecat.Today,
			wantTime: ptrTo(fixedNow.In(shanghai)),
		},
		{
			name:     "transcription without expression goes to inbox",
			start:    models.Idea{Transcription: "明天", ExtractedTime: &existing, TimeCategory: timecat.Future},
			patch:    IdeaPatch{Transcription: ptrTo("just words")},
			wantCat:  timecat.Inbox,
			wantTime: nil,
		},
		{
			name:     "explicit time overrides text",
			start:    models.Idea{Transcription: "明天"},
			patch:    IdeaPatch{Transcription: ptrTo("明天"), ExtractedTime: ptrTo(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))},
			wantCat:  timecat.Future,
			wantTime: ptrTo(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:     "inbox clears time",
			start:    models.Idea{ExtractedTime: &existing, TimeCategory: timecat.Future},
			patch:    IdeaPatch{TimeCategory: ptrTo("inbox")},
			wantCat:  timecat.Inbox,
			wantTime: nil,
		},
		{
			name:     "category is re-derived from the stored time",
			start:    models.Idea{ExtractedTime: &existing, TimeCategory: timecat.Today},
			patch:    IdeaPatch{TimeCategory: ptrTo("thisWeek")},
			wantCat:  timecat.Future,
			wantTime: &existing,
		},
		{
			name:     "completion sets completed_at",
			start:    models.Idea{},
			patch:    IdeaPatch{IsCompleted: ptrTo(true), Tags: &[]string{" work ", "", "work", "home"}},
			wantCat:  timecat.Inbox,
			wantTime: nil,
			check: func(t *testing.T, got *models.Idea) {
				assert.True(t, got.IsCompleted)
				require.NotNil(t, got.CompletedAt)
				assert.True(t, got.CompletedAt.Equal(fixedNow))
				assert.Equal(t, []string{"work", "home"}, got.Tags)
			},
		},
		{
			name:    "completing twice keeps the first timestamp",
			start:   models.Idea{IsCompleted: true, CompletedAt: &completedAt},
			patch:   IdeaPatch{IsCompleted: ptrTo(true)},
			wantCat: timecat.Inbox,
			check: func(t *testing.T, got *models.Idea) {
				assert.True(t, got.CompletedAt.Equal(completedAt))
			},
		},
		{
			name:    "uncompleting clears completed_at",
			start:   models.Idea{IsCompleted: true, CompletedAt: &completedAt, Tags: []string{"a"}},
			patch:   IdeaPatch{IsCompleted: ptrTo(false)},
			wantCat: timecat.Inbox,
			check: func(t *testing.T, got *models.Idea) {
				assert.False(t, got.IsCompleted)
				assert.Nil(t, got.CompletedAt)
				assert.Equal(t, []string{"a"}, got.Tags)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIdeaFixture(t)
			start := tt.start
			start.ID, start.UserID = "i1", "u1"
			if start.TimeCategory == "" {
				start.TimeCategory = timecat.Inbox
			}
			f.seed(&start)

			f.mock.ExpectBegin()
			f.mock.ExpectCommit()
			got, err := f.svc.Update(context.Background(), "u1", "i1", tt.patch, shanghai)
			require.NoError(t, err)
			require.NoError(t, f.mock.ExpectationsWereMet())

			assert.Equal(t, tt.wantCat, got.TimeCategory)
			if tt.wantTime == nil {
				assert.Nil(t, got.ExtractedTime)
			} else {
				require.NotNil(t, got.ExtractedTime)
				assert.True(t, tt.wantTime.Equal(*got.ExtractedTime), "want %v got %v", *tt.wantTime, *got.ExtractedTime)
			}
			assert.Equal(t, got.TimeCategory == timecat.Inbox, got.ExtractedTime == nil)
			if tt.check != nil {
				tt.check(t, got)
			}

			stored := f.rm.i.byID["i1"]
			assert.Equal(t, got.TimeCategory, stored.TimeCategory)
			assert.Equal(t, []string{events.IdeaUpdated}, f.pub.keys())
		})
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newIdeaFixture(t)
	f.seed(&models.Idea{ID: "i1", UserID: "u1"})

	_, err := f.svc.Update(context.Background(), "u1", "i1", IdeaPatch{TimeCategory: ptrTo("someday")}, shanghai)
	assert.ErrorIs(t, err, common.ErrorValidation)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Update(context.Background(), "u1", "i1", IdeaPatch{TimeCategory: ptrTo("today")}, shanghai)
	assert.ErrorIs(t, err, common.ErrorValidation)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Update(context.Background(), "u2", "i1", IdeaPatch{IsCompleted: ptrTo(true)}, shanghai)
	assert.ErrorIs(t, err, common.ErrorForbidden)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Update(context.Background(), "u1", "nope", IdeaPatch{}, shanghai)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	f.rm.i.updateErr = errBoom
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	_, err = f.svc.Update(context.Background(), "u1", "i1", IdeaPatch{IsCompleted: ptrTo(true)}, shanghai)
	assert.ErrorIs(t, err, common.ErrorInternal)

	require.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, f.pub.events)
	assert.False(t, f.rm.i.byID["i1"].IsCompleted)
}

func TestDelete(t *testing.T) {
	f := newIdeaFixture(t)
	f.store.objects["recordings/a.webm"] = []byte{1}
	f.seed(&models.Idea{ID: "i1", UserID: "u1", AudioKey: "recordings/a.webm"})
	f.seed(&models.Idea{ID: "i2", UserID: "u1"})

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	assert.ErrorIs(t, f.svc.Delete(context.Background(), "u2", "i1"), common.ErrorForbidden)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Delete(context.Background(), "u1", "i1"))
	assert.NotContains(t, f.rm.i.byID, "i1")
	assert.Empty(t, f.store.objects)

	f.store.deleteErr = errBoom
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Delete(context.Background(), "u1", "i2"))
	assert.Equal(t, []string{"recordings/a.webm"}, f.store.deleted, "text-only ideas have no audio to remove")

	assert.Equal(t, []string{events.IdeaDeleted, events.IdeaDeleted}, f.pub.keys())
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDelete_AudioFailureIsNotFatal(t *testing.T) {
	f := newIdeaFixture(t)
	f.store.deleteErr = errBoom
	f.seed(&models.Idea{ID: "i1", UserID: "u1", AudioKey: "recordings/a.webm"})

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.Delete(context.Background(), "u1", "i1"))
	assert.NotContains(t, f.rm.i.byID, "i1")
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	f := newIdeaFixture(t)
	f.pub.err = errBoom

	_, err := f.svc.CreateFromText(context.Background(), "u1", "today", shanghai)
	require.NoError(t, err)
}

func TestExport(t *testing.T) {
	f := newIdeaFixture(t)
	due := time.Date(2024, time.April, 4, 10, 30, 0, 0, shanghai)
	f.seed(&models.Idea{
		ID: "i1", UserID: "u1", Transcription: "明天, \"开会\"", ExtractedTime: &due,
		TimeCategory: timecat.ThisWeek, Tags: []string{"work", "team"}, AudioDuration: 7,
		CreatedAt: time.Date(2024, time.April, 3, 2, 0, 0, 0, time.UTC),
	})
	f.seed(&models.Idea{ID: "i2", UserID: "u2", Transcription: "private"})

	out, err := f.svc.Export(context.Background(), "u1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "echolater-export-20240403.csv", out.FileName)
	assert.Contains(t, out.ContentType, "text/csv")

	records, err := csv.NewReader(bytes.NewReader(out.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"i1", "明天, \"开会\"", "thisWeek", "work;team", "false", "2024-04-04T10:30:00+08:00", "7", "2024-04-03T02:00:00Z"}, records[1])

	out, err = f.svc.Export(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "application/json", out.ContentType)
	var views []IdeaView
	require.NoError(t, json.Unmarshal(out.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "i1", views[0].ID)

	_, err = f.svc.Export(context.Background(), "u1", "xml")
	assert.ErrorIs(t, err, common.ErrorValidation)
}
