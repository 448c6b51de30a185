package rpcapi

import "time"

type PingRequest struct{}

// PingResponse carries "OK" while the server accepts calls.
type PingResponse struct {
	Status string `json:"status"`
}

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest may leave RefreshToken empty to revoke just the access token.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type LogoutResponse struct{}

type Idea struct {
	ID            string     `json:"id"`
	Transcription string     `json:"transcription"`
	ExtractedTime *time.Time `json:"extractedTime,omitempty"`
	TimeCategory  string     `json:"timeCategory"`
	Tags          []string   `json:"tags"`
	IsCompleted   bool       `json:"isCompleted"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	AudioURL      string     `json:"audioUrl,omitempty"`
	AudioDuration int        `json:"audioDuration,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CreateIdeaRequest carries either a recording, a text note, or both. When
// both are present the text replaces the transcription.
type CreateIdeaRequest struct {
	Text             string `json:"text,omitempty"`
	Audio            []byte `json:"audio,omitempty"`
	AudioFileName    string `json:"audioFileName,omitempty"`
	AudioContentType string `json:"audioContentType,omitempty"`
	AudioDuration    int    `json:"audioDuration,omitempty"`
	// Timezone is an IANA zone name; empty means the server default.
	Timezone string `json:"timezone,omitempty"`
}

type IdeaResponse struct {
	Idea Idea `json:"idea"`
}

// ListIdeasRequest mirrors the HTTP list query. Zero Page and Limit select the
// defaults.
type ListIdeasRequest struct {
	Page         int    `json:"page,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	TimeCategory string `json:"timeCategory,omitempty"`
	IsCompleted  *bool  `json:"isCompleted,omitempty"`
	Search       string `json:"search,omitempty"`
}

type ListIdeasResponse struct {
	Ideas      []Idea `json:"ideas"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

type GetIdeaRequest struct {
	ID string `json:"id"`
}

// UpdateIdeaRequest changes only the non-nil fields.
type UpdateIdeaRequest struct {
	ID            string     `json:"id"`
	Transcription *string    `json:"transcription,omitempty"`
	ExtractedTime *time.Time `json:"extractedTime,omitempty"`
	TimeCategory  *string    `json:"timeCategory,omitempty"`
	Tags          *[]string  `json:"tags,omitempty"`
	IsCompleted   *bool      `json:"isCompleted,omitempty"`
	Timezone      string     `json:"timezone,omitempty"`
}

type DeleteIdeaRequest struct {
	ID string `json:"id"`
}

type DeleteIdeaResponse struct{}
