package video

import (
	"context"
	"fmt"
	"os"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ThumbnailArgs grabs the frame at 0s as a JPEG.
func ThumbnailArgs(src, dst string) []string {
	return ffmpeg.Input(src, ffmpeg.KwArgs{"ss": 0}).
		Output(dst, ffmpeg.KwArgs{"vframes": 1, "q:v": 2}).
		OverWriteOutput().
		GetArgs()
}

// Thumbnailer writes cover frames used by clip uploads.
type Thumbnailer struct {
	run Runner
}

func NewThumbnailer(r Runner) *Thumbnailer {
	if r == nil {
		r = runFFmpeg
	}
	return &Thumbnailer{run: r}
}

func (t *Thumbnailer) Extract(ctx context.Context, src, dst string) error {
	if err := t.run(ctx, ThumbnailArgs(src, dst)); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("thumbnail %s: %w", src, err)
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("thumbnail %s: no output: %w", src, err)
	}
	return nil
}
