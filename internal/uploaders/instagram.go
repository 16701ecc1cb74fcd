package uploaders

import (
	"context"
	"fmt"
	"os"
	"strings"

	"drive-autoposter/internal/instagram"
	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/video"
)

// ClipUploader is a logged-in client that can publish a reel.
type ClipUploader interface {
	UploadClip(ctx context.Context, path, caption string, meta instagram.ClipMeta) (*instagram.Media, error)
}

// ClipLoginer logs in and returns a clip-upload-capable client.
type ClipLoginer interface {
	Login(ctx context.Context) (ClipUploader, error)
}

type LoginFunc func(ctx context.Context) (ClipUploader, error)

func (f LoginFunc) Login(ctx context.Context) (ClipUploader, error) { return f(ctx) }

// InstagramLogin restores the stored session on each call, falling back to
// a password login.
func InstagramLogin(baseURL string, creds instagram.Credentials, log *logging.Logger, opts ...instagram.Option) ClipLoginer {
	return LoginFunc(func(ctx context.Context) (ClipUploader, error) {
		c, err := instagram.Login(ctx, baseURL, creds, log, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// MediaInspector reads clip dimensions and renders a cover frame.
type MediaInspector interface {
	Probe(ctx context.Context, path string) (video.Info, error)
	Thumbnail(ctx context.Context, src, dst string) error
}

type ffmpegInspector struct {
	thumbs *video.Thumbnailer
}

func (i ffmpegInspector) Probe(ctx context.Context, path string) (video.Info, error) {
	return video.Probe(ctx, path)
}

func (i ffmpegInspector) Thumbnail(ctx context.Context, src, dst string) error {
	return i.thumbs.Extract(ctx, src, dst)
}

// InstagramUploader publishes reels through the private API.
type InstagramUploader struct {
	login   ClipLoginer
	inspect MediaInspector
	log     *logging.Logger
}

// NewInstagramUploader creates a new Instagram uploader. A nil inspector
// uses ffprobe/ffmpeg.
func NewInstagramUploader(login ClipLoginer, inspect MediaInspector, log *logging.Logger) *InstagramUploader {
	if inspect == nil {
		inspect = ffmpegInspector{thumbs: video.NewThumbnailer(nil)}
	}
	return &InstagramUploader{login: login, inspect: inspect, log: log}
}

// Platform returns the platform name
func (i *InstagramUploader) Platform() string {
	return "instagram"
}

// Upload uploads a video to Instagram
func (i *InstagramUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	client, err := i.login.Login(ctx)
	if err != nil {
		return failed("instagram", err), fmt.Errorf("instagram: login: %w", err)
	}

	info, err := i.inspect.Probe(ctx, req.VideoPath)
	if err != nil {
		return failed("instagram", err), fmt.Errorf("instagram: %w", err)
	}

	thumb := req.ThumbnailPath
	if thumb == "" {
		thumb = strings.TrimSuffix(req.VideoPath, ".mp4") + ".thumbnail.jpg"
		if err := i.inspect.Thumbnail(ctx, req.VideoPath, thumb); err != nil {
			i.log.Warnf("instagram: no cover frame, uploading without one: %v", err)
			thumb = ""
		} else {
			defer os.Remove(thumb)
		}
	}

	m, err := client.UploadClip(ctx, req.VideoPath, req.Caption, instagram.ClipMeta{
		Width:         info.Width,
		Height:        info.Height,
		Duration:      info.Duration,
		ThumbnailPath: thumb,
	})
	if err != nil {
		return failed("instagram", err), fmt.Errorf("instagram: clip upload: %w", err)
	}

	return &UploadResult{
		Success:  true,
		Platform: "instagram",
		URL:      m.URL(),
		Details: map[string]string{
			"media_id": m.ID,
			"code":     m.Code,
		},
	}, nil
}
