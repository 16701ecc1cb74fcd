package uploaders

import (
	"context"

	"drive-autoposter/internal/model"
)

// UploadResult represents the result of an upload operation
type UploadResult struct {
	Success  bool              `json:"success"`
	Platform string            `json:"platform"`
	URL      string            `json:"url,omitempty"`
	Error    string            `json:"error,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

// UploadRequest represents a request to upload a video
type UploadRequest struct {
	VideoPath     string
	ThumbnailPath string
	Title         string
	Description   string
	Caption       string
	Tags          []string
	CategoryID    string
	Privacy       string // public, unlisted, private
	MadeForKids   bool
}

// NewRequest builds the request every platform receives for one run.
func NewRequest(videoPath string, meta model.PublishMetadata) *UploadRequest {
	return &UploadRequest{
		VideoPath:   videoPath,
		Title:       meta.Title,
		Description: meta.Description,
		Caption:     meta.Caption,
		Tags:        meta.Tags,
		CategoryID:  meta.CategoryID,
		Privacy:     meta.Privacy,
		MadeForKids: meta.MadeForKids,
	}
}

// Uploader is an interface for uploading videos to social media platforms
type Uploader interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	Platform() string
}

func failed(platform string, err error) *UploadResult {
	return &UploadResult{Success: false, Platform: platform, Error: err.Error()}
}
