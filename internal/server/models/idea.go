package models

import (
	"time"

	"github.com/dmitrijs2005/echolater/internal/server/timecat"
)

// Idea is a captured voice note.
//
// ExtractedTime and TimeCategory always come from the same timecat call:
// TimeCategory is Inbox exactly when ExtractedTime is nil.
type Idea struct {
	ID     string
	UserID string

	// AudioKey is the object storage key of the recording, empty for text-only notes.
	AudioKey      string
	AudioFileName string
	// AudioDuration in seconds, 0 when unknown.
	AudioDuration int

	Transcription string
	ExtractedTime *time.Time
	TimeCategory  timecat.Category
	Tags          []string

	IsCompleted bool
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// AudioURL is a presigned download link filled on read paths; not persisted.
	AudioURL string
}

// HasAudio reports whether a recording is attached.
func (i *Idea) HasAudio() bool { return i.AudioKey != "" }

// IdeaFilter narrows an idea listing. Nil pointers mean "any".
type IdeaFilter struct {
	Category    *timecat.Category
	IsCompleted *bool
	Search      string
	Limit       int
	Offset      int
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes TotalPages for total rows split by limit.
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}
