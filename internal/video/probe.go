package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mowshon/moviego"
	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const probeTimeout = 30 * time.Second

var ErrNoVideoStream = errors.New("video: no decodable video stream")

// Info is the subset of ffprobe output the pipeline cares about.
type Info struct {
	Width    int
	Height   int
	Duration float64 // seconds
	HasAudio bool
}

// ProbeFunc returns raw ffprobe JSON (-show_format -show_streams) for a file.
type ProbeFunc func(ctx context.Context, path string) (string, error)

func ffprobe(ctx context.Context, path string) (string, error) {
	timeout := probeTimeout
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	return ffmpeg.ProbeWithTimeout(path, timeout, ffmpeg.KwArgs{})
}

// ParseProbe extracts Info from ffprobe JSON.
func ParseProbe(raw string) (Info, error) {
	if !gjson.Valid(raw) {
		return Info{}, fmt.Errorf("video: ffprobe output is not JSON")
	}
	doc := gjson.Parse(raw)
	v := doc.Get(`streams.#(codec_type=="video")`)
	if !v.Exists() {
		return Info{}, ErrNoVideoStream
	}

	info := Info{
		Width:    int(v.Get("width").Int()),
		Height:   int(v.Get("height").Int()),
		Duration: doc.Get("format.duration").Float(),
		HasAudio: doc.Get(`streams.#(codec_type=="audio")`).Exists(),
	}
	if info.Duration == 0 {
		info.Duration = v.Get("duration").Float()
	}
	if info.Width <= 0 || info.Height <= 0 {
		return Info{}, fmt.Errorf("video: bad dimensions %dx%d", info.Width, info.Height)
	}
	return info, nil
}

// Probe runs ffprobe on path and parses the result.
func Probe(ctx context.Context, path string) (Info, error) {
	raw, err := ffprobe(ctx, path)
	if err != nil {
		return Info{}, fmt.Errorf("video: probe %s: %w", path, err)
	}
	return ParseProbe(raw)
}

// safeLoadVideo wraps moviego.Load to catch panics from the library
func safeLoadVideo(path string) (vid moviego.Video, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("moviego.Load panicked: %v", r)
		}
	}()
	vid, err = moviego.Load(path)
	return
}

func loadCheck(path string) error {
	_, err := safeLoadVideo(path)
	return err
}
