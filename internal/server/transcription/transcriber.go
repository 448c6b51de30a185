// Package transcription turns recorded audio into text.
package transcription

import (
	"context"
	"path/filepath"
	"strings"
)

// Transcriber converts audio bytes to text. filename is only used to tell
// the provider the container format.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

var contentTypes = map[string]string{
	".webm": "audio/webm",
	".mp4":  "audio/mp4",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".mpeg": "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
}

// extension returns the lower-cased extension of filename, ".webm" when it
// has none.
func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ".webm"
	}
	return ext
}

func contentType(ext string) string {
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
