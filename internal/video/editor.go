package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"drive-autoposter/internal/logging"
)

const (
	SpeedFactor      = 1.1
	SaturationFactor = 1.2
	MarginPx         = 40
	OutputFPS        = 30
	DefaultPadColor  = "white"
)

// ffmpegSem limits the number of concurrent ffmpeg processes to 1.
var ffmpegSem = make(chan struct{}, 1)

// Runner executes an ffmpeg command line.
type Runner func(ctx context.Context, args []string) error

func runFFmpeg(ctx context.Context, args []string) error {
	ffmpegSem <- struct{}{}
	defer func() { <-ffmpegSem }()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("ffmpeg error: %s", lastLines(msg, 5))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Editor applies the fixed speed/saturation/margin edit.
type Editor struct {
	log      *logging.Logger
	padColor string
	run      Runner
	probe    ProbeFunc
	load     func(path string) error
}

type EditorOption func(*Editor)

func WithRunner(r Runner) EditorOption { return func(e *Editor) { e.run = r } }
func WithProbe(p ProbeFunc) EditorOption { return func(e *Editor) { e.probe = p } }
func WithLoadCheck(f func(string) error) EditorOption { return func(e *Editor) { e.load = f } }

func NewEditor(log *logging.Logger, padColor string, opts ...EditorOption) *Editor {
	if padColor == "" {
		padColor = DefaultPadColor
	}
	e := &Editor{
		log:      log,
		padColor: padColor,
		run:      runFFmpeg,
		probe:    ffprobe,
		load:     loadCheck,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// PaddedSize is the output frame size the pad filter produces for a w x h
// input: each side rounded up to even, plus the margin on both edges.
func PaddedSize(w, h int) (int, int) {
	even := func(n int) int { return (n + 1) / 2 * 2 }
	return even(w) + 2*MarginPx, even(h) + 2*MarginPx
}

// Args builds the ffmpeg command line for editing src into dst. Inputs
// without an audio stream get a video-only graph.
func (e *Editor) Args(src, dst string, hasAudio bool) []string {
	in := ffmpeg.Input(src)

	v := in.Video().
		Filter("setpts", ffmpeg.Args{fmt.Sprintf("PTS/%g", SpeedFactor)}).
		Filter("eq", ffmpeg.Args{}, ffmpeg.KwArgs{"saturation": fmt.Sprintf("%g", SaturationFactor)}).
		// libx264 with yuv420p needs even frame sizes
		Filter("pad", ffmpeg.Args{
			fmt.Sprintf("ceil(iw/2)*2+%d", 2*MarginPx),
			fmt.Sprintf("ceil(ih/2)*2+%d", 2*MarginPx),
			fmt.Sprint(MarginPx),
			fmt.Sprint(MarginPx),
		}, ffmpeg.KwArgs{"color": e.padColor})

	streams := []*ffmpeg.Stream{v}
	kw := ffmpeg.KwArgs{
		"c:v":     "libx264",
		"r":       OutputFPS,
		"pix_fmt": "yuv420p",
		"preset":  "veryfast",
	}
	if hasAudio {
		streams = append(streams, in.Audio().Filter("atempo", ffmpeg.Args{fmt.Sprintf("%g", SpeedFactor)}))
		kw["c:a"] = "aac"
	}

	return ffmpeg.Output(streams, dst, kw).OverWriteOutput().GetArgs()
}

// Edit validates src, then writes the edited clip to dst. dst is removed on
// failure so a half-written file is never published.
func (e *Editor) Edit(ctx context.Context, src, dst string) error {
	if err := e.load(src); err != nil {
		return fmt.Errorf("edit: load %s: %w", src, err)
	}
	raw, err := e.probe(ctx, src)
	if err != nil {
		return fmt.Errorf("edit: probe %s: %w", src, err)
	}
	info, err := ParseProbe(raw)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}

	w, h := PaddedSize(info.Width, info.Height)
	e.log.Infof("edit: %s %dx%d %.1fs audio=%v -> %s %dx%d", src, info.Width, info.Height, info.Duration, info.HasAudio, dst, w, h)
	if err := e.run(ctx, e.Args(src, dst, info.HasAudio)); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("edit: %w", err)
	}
	if st, err := os.Stat(dst); err != nil || st.Size() == 0 {
		_ = os.Remove(dst)
		return fmt.Errorf("edit: ffmpeg did not create output file: %s", dst)
	}
	e.log.Infof("edit: ✓ wrote %s", dst)
	return nil
}
