package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// ClipMeta describes the local clip being uploaded.
type ClipMeta struct {
	Width         int
	Height        int
	Duration      float64 // seconds
	ThumbnailPath string  // optional JPEG cover
}

// Media is a published post.
type Media struct {
	ID   string
	PK   string
	Code string
}

func (m *Media) URL() string {
	return "https://www.instagram.com/reel/" + m.Code + "/"
}

var errTranscoding = errors.New("instagram: transcode not finished")

// UploadClip uploads the video at path as a reel with caption.
func (c *Client) UploadClip(ctx context.Context, path, caption string, meta ClipMeta) (*Media, error) {
	if !c.sess.Authenticated() {
		return nil, ErrLoginRequired
	}

	uploadID := strconv.FormatInt(c.now().UnixMilli(), 10)
	name := fmt.Sprintf("%s_0_%d", uploadID, rand.Int64N(9_000_000_000)+1_000_000_000)

	params, _ := json.Marshal(map[string]string{
		"retry_context":            `{"num_step_auto_retry":0,"num_reupload":0,"num_step_manual_retry":0}`,
		"media_type":               "2",
		"xsharing_user_ids":        "[]",
		"upload_id":                uploadID,
		"upload_media_duration_ms": strconv.Itoa(int(meta.Duration * 1000)),
		"upload_media_width":       strconv.Itoa(meta.Width),
		"upload_media_height":      strconv.Itoa(meta.Height),
		"is_clips_video":           "1",
	})

	if err := c.ruploadVideo(ctx, path, name, string(params)); err != nil {
		return nil, err
	}
	if meta.ThumbnailPath != "" {
		if err := c.ruploadPhoto(ctx, meta.ThumbnailPath, name, uploadID); err != nil {
			return nil, err
		}
	}

	payload := map[string]any{
		"caption":                     caption,
		"upload_id":                   uploadID,
		"source_type":                 "4",
		"clips_share_preview_to_feed": "1",
		"length":                      meta.Duration,
		"poster_frame_index":          0,
		"audio_muted":                 false,
		"filter_type":                 "0",
		"timezone_offset":             "0",
		"device_id":                   c.sess.UUIDs.AndroidDeviceID,
		"_uuid":                       c.sess.UUIDs.UUID,
		"_uid":                        c.sess.AuthorizationData.DSUserID,
		"extra":                       map[string]int{"source_width": meta.Width, "source_height": meta.Height},
	}

	for attempt := 1; ; attempt++ {
		m, err := c.configureClip(ctx, payload)
		if !errors.Is(err, errTranscoding) {
			return m, err
		}
		if attempt >= c.pollMax {
			return nil, fmt.Errorf("%w after %d attempts", err, attempt)
		}
		c.log.Infof("instagram: waiting for transcode (%d/%d)", attempt, c.pollMax)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollEvery):
		}
	}
}

func (c *Client) ruploadVideo(ctx context.Context, path, name, params string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("instagram: open %s: %w", path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}

	// the app asks for the resume offset first; a fresh name always starts at 0
	req, err := c.newRequest(ctx, http.MethodGet, "/rupload_igvideo/"+name, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Instagram-Rupload-Params", params)
	if _, _, err := c.do(req); err != nil {
		return fmt.Errorf("instagram: rupload init: %w", err)
	}

	c.log.Infof("instagram: uploading %s (%d bytes)", path, st.Size())
	req, err = c.newRequest(ctx, http.MethodPost, "/rupload_igvideo/"+name, io.NopCloser(f))
	if err != nil {
		return err
	}
	req.ContentLength = st.Size()
	setRuploadHeaders(req, params, name, st.Size(), "video/mp4")
	if _, _, err := c.do(req); err != nil {
		return fmt.Errorf("instagram: rupload video: %w", err)
	}
	return nil
}

func (c *Client) ruploadPhoto(ctx context.Context, path, name, uploadID string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("instagram: read thumbnail: %w", err)
	}
	params, _ := json.Marshal(map[string]string{
		"retry_context":     `{"num_step_auto_retry":0,"num_reupload":0,"num_step_manual_retry":0}`,
		"media_type":        "2",
		"xsharing_user_ids": "[]",
		"upload_id":         uploadID,
		"image_compression": `{"lib_name":"moz","lib_version":"3.1.m","quality":"80"}`,
	})
	req, err := c.newRequest(ctx, http.MethodPost, "/rupload_igphoto/"+name, strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	setRuploadHeaders(req, string(params), name, int64(len(b)), "image/jpeg")
	if _, _, err := c.do(req); err != nil {
		return fmt.Errorf("instagram: rupload thumbnail: %w", err)
	}
	return nil
}

func setRuploadHeaders(req *http.Request, params, name string, size int64, entityType string) {
	h := req.Header
	h.Set("X-Instagram-Rupload-Params", params)
	h.Set("X-Entity-Name", name)
	h.Set("X-Entity-Length", strconv.FormatInt(size, 10))
	h.Set("X-Entity-Type", entityType)
	h.Set("Offset", "0")
	h.Set("Content-Type", "application/octet-stream")
}

func (c *Client) configureClip(ctx context.Context, payload map[string]any) (*Media, error) {
	body, err := signedBody(payload)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/media/configure_to_clips/?video=1", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	doc, resp, err := c.do(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), "transcode") {
			return nil, errTranscoding
		}
		return nil, fmt.Errorf("instagram: configure clip: %w", err)
	}
	if resp.StatusCode == http.StatusAccepted {
		return nil, errTranscoding
	}

	media := doc.Get("media")
	if !media.Exists() {
		return nil, fmt.Errorf("instagram: configure clip: no media in response")
	}
	return &Media{
		ID:   media.Get("id").String(),
		PK:   media.Get("pk").String(),
		Code: media.Get("code").String(),
	}, nil
}
