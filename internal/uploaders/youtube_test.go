package uploaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"drive-autoposter/internal/logging"
)

// fakeYouTube accepts both single-request and resumable media uploads.
type fakeYouTube struct {
	srv *httptest.Server

	mu      sync.Mutex
	inserts int
	meta    string
	media   []byte
	status  int
}

func newFakeYouTube(t *testing.T) *fakeYouTube {
	f := &fakeYouTube{status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeYouTube) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)

	if f.status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The request cannot be completed because you have exceeded your quota.","errors":[{"reason":"quotaExceeded"}]}}`))
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/videos"):
		f.inserts++
		switch r.URL.Query().Get("uploadType") {
		case "resumable":
			f.meta = string(body)
			w.Header().Set("Location", f.srv.URL+"/resumable/session-1")
			w.WriteHeader(http.StatusOK)
			return
		default:
			// multipart/related: JSON part then media part
			f.meta = string(body)
			f.media = body
			f.writeVideo(w)
		}
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/resumable/"):
		f.media = append(f.media, body...)
		// Content-Range: bytes 0-262143/* until the last chunk names the total
		cr := r.Header.Get("Content-Range")
		if strings.HasSuffix(cr, "/*") {
			w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", len(f.media)-1))
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}
		f.writeVideo(w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeYouTube) writeVideo(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"id":"dQw4w9WgXcQ","snippet":{"title":"ok"}}`))
}

func (f *fakeYouTube) service(t *testing.T) *youtube.Service {
	svc, err := youtube.NewService(context.Background(),
		option.WithEndpoint(f.srv.URL+"/"),
		option.WithHTTPClient(f.srv.Client()),
	)
	require.NoError(t, err)
	return svc
}

func writeVideo(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), "edited.mp4")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func ytRequest(path string) *UploadRequest {
	return &UploadRequest{
		VideoPath:   path,
		Title:       "Discipline beats motivation",
		Description: "Best Motivational Video \n\n#motivation #success",
		Tags:        []string{"motivation", "success", "shorts", "hustle", "inspiration"},
		CategoryID:  "27",
		Privacy:     "public",
	}
}

func TestVideoResource(t *testing.T) {
	v := videoResource(&UploadRequest{Title: "t"})
	assert.Equal(t, "public", v.Status.PrivacyStatus)
	assert.Equal(t, "27", v.Snippet.CategoryId)
	assert.False(t, v.Status.SelfDeclaredMadeForKids)

	b, err := v.Status.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"selfDeclaredMadeForKids":false`)
}

func TestYouTubeUploadSingleRequest(t *testing.T) {
	f := newFakeYouTube(t)
	up := NewYouTubeUploader(f.service(t), 0, logging.Discard())

	res, err := up.Upload(context.Background(), ytRequest(writeVideo(t, "tiny mp4")))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", res.URL)
	assert.Equal(t, 1, f.inserts)
	assert.Contains(t, f.meta, `"title":"Discipline beats motivation"`)
	assert.Contains(t, f.meta, `"categoryId":"27"`)
	assert.Contains(t, f.meta, `"privacyStatus":"public"`)
	assert.Contains(t, f.meta, `"selfDeclaredMadeForKids":false`)
	assert.Contains(t, string(f.media), "tiny mp4")
}

func TestYouTubeUploadResumable(t *testing.T) {
	f := newFakeYouTube(t)
	// 256 KiB is the smallest chunk the client accepts; force a multi-chunk upload
	up := NewYouTubeUploader(f.service(t), 256*1024, logging.Discard())
	content := strings.Repeat("v", 300*1024)

	res, err := up.Upload(context.Background(), ytRequest(writeVideo(t, content)))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, f.inserts)
	assert.Contains(t, f.meta, "Discipline beats motivation")
	assert.Equal(t, content, string(f.media))
}

func TestYouTubeUploadAPIError(t *testing.T) {
	f := newFakeYouTube(t)
	f.status = http.StatusForbidden
	up := NewYouTubeUploader(f.service(t), 0, logging.Discard())

	res, err := up.Upload(context.Background(), ytRequest(writeVideo(t, "x")))
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, err.Error(), "quota")
}

func TestYouTubeUploadMissingFile(t *testing.T) {
	f := newFakeYouTube(t)
	up := NewYouTubeUploader(f.service(t), 0, logging.Discard())
	_, err := up.Upload(context.Background(), ytRequest(filepath.Join(t.TempDir(), "gone.mp4")))
	require.Error(t, err)
	assert.Equal(t, 0, f.inserts)
}
