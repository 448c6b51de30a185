package services

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/rpcapi"
	"github.com/dmitrijs2005/echolater/internal/server/storage"
	"github.com/google/uuid"
)

const (
	// MaxAudioSize is the largest accepted recording, shared with the gRPC
	// message limits.
	MaxAudioSize = rpcapi.MaxAudioSize

	audioURLValidity = 15 * time.Minute
	defaultAudioExt  = ".webm"
)

var allowedAudioTypes = map[string]bool{
	"audio/webm": true,
	"audio/mp4":  true,
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/ogg":  true,
}

// AudioFile is an uploaded recording as received by a transport.
type AudioFile struct {
	Name        string
	ContentType string
	Data        []byte
	// Duration in seconds as reported by the recorder, 0 if unknown.
	Duration int
}

// StoredAudio describes a recording after it has been written to storage.
type StoredAudio struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     int    `json:"size"`
}

// AudioUploader validates recordings and keeps them in object storage.
type AudioUploader struct {
	store storage.ObjectStore
	now   func() time.Time
}

// NewAudioUploader constructs an uploader that writes to store.
func NewAudioUploader(store storage.ObjectStore) *AudioUploader {
	return &AudioUploader{store: store, now: time.Now}
}

// Upload validates f and stores it under a fresh date-partitioned key.
func (u *AudioUploader) Upload(ctx context.Context, f AudioFile) (*StoredAudio, error) {
	if len(f.Data) == 0 {
		return nil, validationError("audio file is empty")
	}
	if len(f.Data) > MaxAudioSize {
		return nil, fmt.Errorf("%w: limit is %d MB", common.ErrorFileTooLarge, MaxAudioSize>>20)
	}

	mediaType, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil || !allowedAudioTypes[mediaType] {
		return nil, fmt.Errorf("%w: %q", common.ErrorUnsupportedFormat, f.ContentType)
	}

	key := u.objectKey(f.Name)
	if err := u.store.Put(ctx, key, f.Data, mediaType); err != nil {
		return nil, fmt.Errorf("%w: storing audio: %v", common.ErrorInternal, err)
	}

	url, err := u.store.PresignGet(ctx, key, audioURLValidity)
	if err != nil {
		return nil, fmt.Errorf("%w: presigning audio: %v", common.ErrorInternal, err)
	}

	name := f.Name
	if name == "" {
		name = filepath.Base(key)
	}
	return &StoredAudio{Key: key, URL: url, FileName: name, Size: len(f.Data)}, nil
}

func (u *AudioUploader) Delete(ctx context.Context, key string) error {
	return u.store.Delete(ctx, key)
}

// URL returns a short-lived download link for key.
func (u *AudioUploader) URL(ctx context.Context, key string) (string, error) {
	return u.store.PresignGet(ctx, key, audioURLValidity)
}

func (u *AudioUploader) objectKey(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = defaultAudioExt
	}
	now := u.now().UTC()
	return fmt.Sprintf("recordings/%04d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext)
}
