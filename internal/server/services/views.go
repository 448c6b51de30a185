package services

import (
	"time"

	"github.com/dmitrijs2005/echolater/internal/server/models"
)

// IdeaView is the wire shape of an idea shared by the HTTP API, the gRPC API
// and JSON exports.
type IdeaView struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	AudioURL      string     `json:"audioUrl,omitempty"`
	AudioFileName string     `json:"audioFileName,omitempty"`
	AudioDuration int        `json:"audioDuration"`
	Transcription string     `json:"transcription"`
	ExtractedTime *time.Time `json:"extractedTime"`
	TimeCategory  string     `json:"timeCategory"`
	Tags          []string   `json:"tags"`
	IsCompleted   bool       `json:"isCompleted"`
	CompletedAt   *time.Time `json:"completedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewIdeaView flattens i for a response body.
func NewIdeaView(i *models.Idea) IdeaView {
	tags := i.Tags
	if tags == nil {
		tags = []string{}
	}
	return IdeaView{
		ID:            i.ID,
		UserID:        i.UserID,
		AudioURL:      i.AudioURL,
		AudioFileName: i.AudioFileName,
		AudioDuration: i.AudioDuration,
		Transcription: i.Transcription,
		ExtractedTime: i.ExtractedTime,
		TimeCategory:  i.TimeCategory.String(),
		Tags:          tags,
		IsCompleted:   i.IsCompleted,
		CompletedAt:   i.CompletedAt,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func NewIdeaViews(ideas []*models.Idea) []IdeaView {
	out := make([]IdeaView, 0, len(ideas))
	for _, i := range ideas {
		out = append(out, NewIdeaView(i))
	}
	return out
}

// UserView is a user without credentials.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, Nickname: u.Nickname, Avatar: u.Avatar, CreatedAt: u.CreatedAt}
}
