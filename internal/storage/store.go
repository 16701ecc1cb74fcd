package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"drive-autoposter/internal/model"
)

// ErrNoVideo means the source folder holds no eligible video. It is the
// only "nothing to do" outcome of a run.
var ErrNoVideo = errors.New("storage: no video in source folder")

// Store is the cloud-storage side of a run: locate, fetch and archive.
type Store interface {
	// FindVideo returns one non-trashed video from folder. Which one is
	// unspecified unless the backend was configured with an explicit order.
	FindVideo(ctx context.Context, folder string) (*model.VideoRecord, error)
	// Download writes the record's bytes to dst, replacing any existing file.
	Download(ctx context.Context, rec *model.VideoRecord, dst string) error
	// Move relocates rec into folder and returns its new parent set.
	Move(ctx context.Context, rec *model.VideoRecord, folder string) ([]string, error)
	Backend() string
}

var videoExts = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

// videoMimeType guesses a video MIME type from an object key.
func videoMimeType(key string) (string, bool) {
	if strings.HasSuffix(key, "/") {
		return "", false
	}
	mt, ok := videoExts[strings.ToLower(path.Ext(key))]
	return mt, ok
}
