package transcription

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultModel    = "whisper-1"
	DefaultLanguage = "zh"

	requestTimeout = 2 * time.Minute
	maxRetries     = 2
)

// OpenAIConfig configures the OpenAI speech-to-text client.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

type transcribeFunc func(ctx context.Context, r io.Reader, filename, contentType string) (string, error)

// OpenAI transcribes with the OpenAI audio API.
type OpenAI struct {
	call transcribeFunc
}

// NewOpenAI builds a client for cfg. An empty model or language falls back to
// whisper-1 and Chinese.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = DefaultLanguage
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
		option.WithRequestTimeout(requestTimeout),
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAI{call: func(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
		res, err := client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
			File:     openai.File(r, filename, contentType),
			Model:    openai.AudioModel(model),
			Language: openai.String(language),
		})
		if err != nil {
			return "", err
		}
		return res.Text, nil
	}}, nil
}

// Transcribe uploads the audio as "audio<ext>" and returns the trimmed text.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	ext := extension(filename)
	text, err := o.call(ctx, bytes.NewReader(audio), "audio"+ext, contentType(ext))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
