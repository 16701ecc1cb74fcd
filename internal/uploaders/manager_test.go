package uploaders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
)

type stubUploader struct {
	platform string
	calls    []*UploadRequest
	result   *UploadResult
	err      error
	panics   bool
}

func (s *stubUploader) Platform() string { return s.platform }

func (s *stubUploader) Upload(_ context.Context, req *UploadRequest) (*UploadResult, error) {
	s.calls = append(s.calls, req)
	if s.panics {
		panic("nil map write")
	}
	return s.result, s.err
}

func TestManagerOrderAndIsolation(t *testing.T) {
	yt := &stubUploader{platform: "youtube", err: errors.New("quota exceeded")}
	ig := &stubUploader{platform: "instagram", panics: true}
	x := &stubUploader{platform: "x", result: &UploadResult{Success: true, URL: "https://x.com/i/web/status/1"}}

	m := NewManager(logging.Discard(), yt, ig, x)
	assert.Equal(t, []string{"youtube", "instagram", "x"}, m.AvailablePlatforms())

	req := NewRequest("/tmp/edited.mp4", model.PublishMetadata{Title: "Stay hungry"})
	res := m.UploadAll(context.Background(), req)
	require.Len(t, res, 3)

	assert.False(t, res[0].Success)
	assert.Equal(t, "youtube", res[0].Platform)
	assert.Equal(t, "quota exceeded", res[0].Error)

	assert.False(t, res[1].Success)
	assert.Contains(t, res[1].Error, "panic: nil map write")

	assert.True(t, res[2].Success)
	assert.Equal(t, "x", res[2].Platform)

	for _, s := range []*stubUploader{yt, ig, x} {
		require.Len(t, s.calls, 1, s.platform)
		assert.Same(t, req, s.calls[0])
	}
}

func TestManagerErrorOverridesResult(t *testing.T) {
	u := &stubUploader{platform: "youtube", result: &UploadResult{Success: true, Error: "Upload failed"}, err: errors.New("youtube: insert: 403")}
	res := NewManager(logging.Discard(), u).UploadAll(context.Background(), &UploadRequest{})
	assert.False(t, res[0].Success)
	assert.Equal(t, "youtube: insert: 403", res[0].Error)
}

func TestManagerNilResultIsSuccess(t *testing.T) {
	u := &stubUploader{platform: "youtube"}
	res := NewManager(logging.Discard(), u).UploadAll(context.Background(), &UploadRequest{})
	assert.True(t, res[0].Success)
}

func TestManagerAddUploaderReplaces(t *testing.T) {
	first := &stubUploader{platform: "youtube", result: &UploadResult{Success: true}}
	second := &stubUploader{platform: "youtube", result: &UploadResult{Success: true}}
	m := NewManager(logging.Discard(), first, &stubUploader{platform: "instagram", result: &UploadResult{Success: true}})
	m.AddUploader(second)

	assert.Equal(t, []string{"youtube", "instagram"}, m.AvailablePlatforms())
	m.UploadAll(context.Background(), &UploadRequest{})
	assert.Empty(t, first.calls)
	assert.Len(t, second.calls, 1)
}

func TestNewRequest(t *testing.T) {
	meta := model.PublishMetadata{
		Title: "t", Description: "d", Caption: "c", Tags: []string{"a"},
		CategoryID: "27", Privacy: "public",
	}
	req := NewRequest("v.mp4", meta)
	assert.Equal(t, &UploadRequest{
		VideoPath: "v.mp4", Title: "t", Description: "d", Caption: "c",
		Tags: []string{"a"}, CategoryID: "27", Privacy: "public",
	}, req)
}
