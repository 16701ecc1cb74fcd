package uploaders

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"drive-autoposter/internal/logging"
)

const (
	defaultYouTubeCategory = "27" // Education
	defaultYouTubeChunk    = 8 << 20
)

// YouTubeUploader inserts videos with a resumable chunked upload.
type YouTubeUploader struct {
	svc       *youtube.Service
	chunkSize int
	log       *logging.Logger
}

func NewYouTubeUploader(svc *youtube.Service, chunkSize int, log *logging.Logger) *YouTubeUploader {
	if chunkSize <= 0 {
		chunkSize = defaultYouTubeChunk
	}
	return &YouTubeUploader{svc: svc, chunkSize: chunkSize, log: log}
}

// Platform returns the platform name
func (y *YouTubeUploader) Platform() string {
	return "youtube"
}

// videoResource maps a request onto the insert body.
func videoResource(req *UploadRequest) *youtube.Video {
	privacy := req.Privacy
	if privacy == "" {
		privacy = "public"
	}
	category := req.CategoryID
	if category == "" {
		category = defaultYouTubeCategory
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			CategoryId:  category,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: req.MadeForKids,
			// false is the zero value and would be dropped otherwise
			ForceSendFields: []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// Upload uploads a video to YouTube
func (y *YouTubeUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	f, err := os.Open(req.VideoPath)
	if err != nil {
		return failed("youtube", err), fmt.Errorf("youtube: open video: %w", err)
	}
	defer f.Close()

	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}

	progress := rate.Sometimes{First: 1, Interval: 5 * time.Second}
	call := y.svc.Videos.Insert([]string{"snippet", "status"}, videoResource(req)).
		Media(f, googleapi.ChunkSize(y.chunkSize)).
		ProgressUpdater(func(current, total int64) {
			if total <= 0 {
				total = size
			}
			progress.Do(func() { y.log.Infof("youtube: uploaded %d/%d bytes", current, total) })
		}).
		Context(ctx)

	y.log.Infof("youtube: uploading %q (%d bytes)", req.Title, size)
	v, err := call.Do()
	if err != nil {
		return &UploadResult{
			Success:  false,
			Platform: "youtube",
			Error:    fmt.Sprintf("Upload failed: %v", err),
		}, fmt.Errorf("youtube: insert: %w", err)
	}

	return &UploadResult{
		Success:  true,
		Platform: "youtube",
		URL:      "https://youtu.be/" + v.Id,
		Details: map[string]string{
			"id":    v.Id,
			"title": req.Title,
		},
	}, nil
}
