package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/services"
	"github.com/dmitrijs2005/echolater/internal/server/timecat"
	"github.com/google/uuid"
)

const (
	multipartMemory = 32 << 20
	// multipartOverhead leaves room for the form fields next to the audio part.
	multipartOverhead = 1 << 20
)

type ideaListResponse struct {
	Ideas      []services.IdeaView `json:"ideas"`
	Pagination models.Pagination   `json:"pagination"`
}

type updateIdeaRequest struct {
	Transcription *string    `json:"transcription"`
	ExtractedTime *time.Time `json:"extractedTime"`
	TimeCategory  *string    `json:"timeCategory"`
	Tags          *[]string  `json:"tags"`
	IsCompleted   *bool      `json:"isCompleted"`
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

// location resolves the caller's calendar zone from the X-Timezone header,
// then the given form value, then the server default.
func (s *Server) location(r *http.Request, formValue string) (*time.Location, error) {
	name := r.Header.Get(common.TimezoneHeader)
	if name == "" {
		name = formValue
	}
	if name == "" {
		return s.loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, validationf("unknown timezone %q", name)
	}
	return loc, nil
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAudioSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d MB", common.ErrorFileTooLarge, services.MaxAudioSize>>20)
		}
		return validationf("malformed multipart form")
	}
	return nil
}

// readAudio returns the uploaded part named field, or nil when it is absent.
func readAudio(r *http.Request, field string) (*services.AudioFile, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, validationf("reading %s: %v", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, validationf("reading %s: %v", field, err)
	}

	audio := &services.AudioFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	if d := r.FormValue("duration"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			return nil, validationf("duration must be a non-negative integer")
		}
		audio.Duration = n
	}
	return audio, nil
}

// handleUploadAudio serves POST /api/upload/audio. It stores the "file" part
// without creating an idea.
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	audio, err := readAudio(r, "file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if audio == nil {
		s.writeError(w, r, validationf("file is required"))
		return
	}

	stored, err := s.uploader.Upload(r.Context(), *audio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, stored)
}

// handleCreateIdea serves POST /api/ideas from a multipart form. An "audio" part
// is transcribed unless manualNote is also given; manualNote alone files a text
// idea.
func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.location(r, r.FormValue("timezone"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	audio, err := readAudio(r, "audio")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var manualNote *string
	if note := strings.TrimSpace(r.FormValue("manualNote")); note != "" {
		manualNote = &note
	}

	userID := claimsFrom(r.Context()).UserID
	var idea *models.Idea
	switch {
	case audio != nil:
		idea, err = s.ideas.CreateFromAudio(r.Context(), userID, *audio, manualNote, loc)
	case manualNote != nil:
		idea, err = s.ideas.CreateFromText(r.Context(), userID, *manualNote, loc)
	default:
		err = validationf("audio or manualNote is required")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, services.NewIdeaView(idea))
}

// parseListQuery reads page, limit, timeCategory, isCompleted and search.
func parseListQuery(r *http.Request) (services.ListQuery, error) {
	q := r.URL.Query()
	var lq services.ListQuery

	for name, dst := range map[string]*int{"page": &lq.Page, "limit": &lq.Limit} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return lq, validationf("%s must be an integer", name)
		}
		*dst = n
	}

	if v := q.Get("timeCategory"); v != "" {
		c, ok := timecat.ParseCategory(v)
		if !ok {
			return lq, validationf("unknown time category %q", v)
		}
		lq.Category = &c
	}
	if v := q.Get("isCompleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return lq, validationf("isCompleted must be true or false")
		}
		lq.IsCompleted = &b
	}
	lq.Search = q.Get("search")
	return lq, nil
}

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ideas, page, err := s.ideas.List(r.Context(), claimsFrom(r.Context()).UserID, lq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, ideaListResponse{Ideas: services.NewIdeaViews(ideas), Pagination: page})
}

// handleExportIdeas serves GET /api/ideas/export as an attachment.
func (s *Server) handleExportIdeas(w http.ResponseWriter, r *http.Request) {
	out, err := s.ideas.Export(r.Context(), claimsFrom(r.Context()).UserID, r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// ideaID returns the {id} path value when it is a UUID.
func ideaID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", validationf("invalid idea id")
	}
	return id, nil
}

func (s *Server) handleGetIdea(w http.ResponseWriter, r *http.Request) {
	id, err := ideaID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	idea, err := s.ideas.Get(r.Context(), claimsFrom(r.Context()).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, services.NewIdeaView(idea))
}

// handleUpdateIdea serves PUT /api/ideas/{id}. Absent JSON fields are kept.
func (s *Server) handleUpdateIdea(w http.ResponseWriter, r *http.Request) {
	id, err := ideaID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateIdeaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.location(r, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	patch := services.IdeaPatch{
		Transcription: req.Transcription,
		ExtractedTime: req.ExtractedTime,
		TimeCategory:  req.TimeCategory,
		Tags:          req.Tags,
		IsCompleted:   req.IsCompleted,
	}
	idea, err := s.ideas.Update(r.Context(), claimsFrom(r.Context()).UserID, id, patch, loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, services.NewIdeaView(idea))
}

func (s *Server) handleDeleteIdea(w http.ResponseWriter, r *http.Request) {
	id, err := ideaID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.ideas.Delete(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "idea deleted")
}
