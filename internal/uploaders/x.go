package uploaders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"drive-autoposter/internal/logging"
)

const (
	DefaultXBaseURL = "https://api.x.com"
	xChunkSize      = 5 * 1024 * 1024
	xStatusChecks   = 60
)

// XUploader posts the clip through the X v2 chunked media API.
type XUploader struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewXUploader signs every request with the account's OAuth1 user token.
func NewXUploader(baseURL, consumerKey, consumerSecret, accessToken, accessTokenSecret string, log *logging.Logger) *XUploader {
	config := oauth1.NewConfig(consumerKey, consumerSecret)
	token := oauth1.NewToken(accessToken, accessTokenSecret)
	return newXUploader(baseURL, config.Client(context.Background(), token), log)
}

func newXUploader(baseURL string, hc *http.Client, log *logging.Logger) *XUploader {
	if baseURL == "" {
		baseURL = DefaultXBaseURL
	}
	return &XUploader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		log:        log,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Platform returns the platform name
func (x *XUploader) Platform() string {
	return "x"
}

// call sends one request and returns the JSON body when the status matches.
func (x *XUploader) call(ctx context.Context, method, path, contentType string, body io.Reader, want int) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, body)
	if err != nil {
		return gjson.Result{}, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	doc := gjson.ParseBytes(b)
	if resp.StatusCode != want {
		msg := doc.Get("errors.0.detail").String()
		if msg == "" {
			msg = doc.Get("detail").String()
		}
		if msg == "" {
			msg = lo.Substring(string(b), 0, 500)
		}
		return doc, fmt.Errorf("status=%d | %s", resp.StatusCode, msg)
	}
	return doc, nil
}

// uploadMedia uploads a video using X API v2 chunked upload
func (x *XUploader) uploadMedia(ctx context.Context, videoPath string) (string, error) {
	fileData, err := os.ReadFile(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to read video file: %w", err)
	}

	initJSON, _ := json.Marshal(map[string]any{
		"media_type":     "video/mp4",
		"total_bytes":    len(fileData),
		"media_category": "tweet_video",
	})
	doc, err := x.call(ctx, http.MethodPost, "/2/media/upload/initialize", "application/json", bytes.NewReader(initJSON), http.StatusOK)
	if err != nil {
		return "", fmt.Errorf("INIT failed: %w", err)
	}
	mediaID := doc.Get("data.id").String()
	if mediaID == "" {
		return "", fmt.Errorf("INIT returned no media id")
	}

	for i := 0; i < len(fileData); i += xChunkSize {
		end := min(i+xChunkSize, len(fileData))

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		_ = w.WriteField("segment_index", strconv.Itoa(i/xChunkSize))
		part, err := w.CreateFormFile("media", "video.mp4")
		if err != nil {
			return "", err
		}
		if _, err := part.Write(fileData[i:end]); err != nil {
			return "", err
		}
		if err := w.Close(); err != nil {
			return "", err
		}

		if _, err := x.call(ctx, http.MethodPost, "/2/media/upload/"+mediaID+"/append", w.FormDataContentType(), &buf, http.StatusOK); err != nil {
			return "", fmt.Errorf("APPEND segment %d failed: %w", i/xChunkSize, err)
		}
	}

	doc, err = x.call(ctx, http.MethodPost, "/2/media/upload/"+mediaID+"/finalize", "", nil, http.StatusOK)
	if err != nil {
		return "", fmt.Errorf("FINALIZE failed: %w", err)
	}

	info := doc.Get("data.processing_info")
	for attempt := 0; info.Exists() && attempt < xStatusChecks; attempt++ {
		switch info.Get("state").String() {
		case "succeeded":
			return mediaID, nil
		case "failed":
			return "", fmt.Errorf("media processing failed: %s", info.Get("error.message").String())
		}

		checkAfter := info.Get("check_after_secs").Int()
		if checkAfter <= 0 {
			checkAfter = 1
		}
		x.log.Infof("x: media %s processing (%d%%)", mediaID, info.Get("progress_percent").Int())
		if err := x.sleep(ctx, time.Duration(checkAfter)*time.Second); err != nil {
			return "", err
		}

		doc, err = x.call(ctx, http.MethodGet, "/2/media/upload?command=STATUS&media_id="+mediaID, "", nil, http.StatusOK)
		if err != nil {
			return "", fmt.Errorf("STATUS check failed: %w", err)
		}
		info = doc.Get("data.processing_info")
	}
	if info.Exists() && info.Get("state").String() != "succeeded" {
		return "", fmt.Errorf("media %s still %s after %d checks", mediaID, info.Get("state").String(), xStatusChecks)
	}
	return mediaID, nil
}

// Upload uploads a video to X API
func (x *XUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	text := RemoveShortsHashtag(req.Caption)
	if text == "" {
		text = req.Title
	}

	mediaID, err := x.uploadMedia(ctx, req.VideoPath)
	if err != nil {
		return &UploadResult{
			Success:  false,
			Platform: "x",
			Error:    "Media upload failed",
			Details:  map[string]string{"error": err.Error(), "text": text},
		}, fmt.Errorf("x: upload media: %w", err)
	}
	x.log.Infof("x: media %s uploaded", mediaID)

	postJSON, _ := json.Marshal(map[string]any{
		"text":  text,
		"media": map[string]any{"media_ids": []string{mediaID}},
	})
	doc, err := x.call(ctx, http.MethodPost, "/2/tweets", "application/json", bytes.NewReader(postJSON), http.StatusCreated)
	if err != nil {
		return &UploadResult{
			Success:  false,
			Platform: "x",
			Error:    "Post creation failed",
			Details:  map[string]string{"error": err.Error(), "text": text},
		}, fmt.Errorf("x: create post: %w", err)
	}

	id := doc.Get("data.id").String()
	return &UploadResult{
		Success:  true,
		Platform: "x",
		URL:      "https://x.com/i/web/status/" + id,
		Details: map[string]string{
			"tweet_id": id,
			"text":     text,
		},
	}, nil
}

var (
	shortsTag   = regexp.MustCompile(`(?i)(?:^|\s)#shorts\b`)
	spaceRun    = regexp.MustCompile(`[ \t]{2,}`)
	blankBefore = regexp.MustCompile(` +\n`)
)

// RemoveShortsHashtag removes #shorts hashtag from text
func RemoveShortsHashtag(s string) string {
	if s == "" {
		return s
	}
	result := shortsTag.ReplaceAllString(s, " ")
	result = spaceRun.ReplaceAllString(result, " ")
	result = blankBefore.ReplaceAllString(result, "\n")
	return strings.TrimSpace(result)
}
