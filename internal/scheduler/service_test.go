package scheduler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"drive-autoposter/internal"
	"drive-autoposter/internal/auth"
	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
	"drive-autoposter/internal/uploaders"
)

func testConfig() internal.Config {
	return internal.Config{
		SourceFolderID:    "src",
		DoneFolderID:      "done",
		StorageBackend:    internal.BackendDrive,
		RefreshToken:      "r",
		ClientID:          "c",
		ClientSecret:      "s",
		TokenURL:          internal.DefaultTokenURL,
		InstaSession:      `{"authorization_data":{"ds_user_id":"1","sessionid":"abc"}}`,
		InstaUsername:     "u",
		InstaPassword:     "p",
		InstaAPIURL:       internal.DefaultInstagramAPI,
		WorkDir:           ".",
		EditEnabled:       true,
		EditPadColor:      "white",
		DownloadChunkSize: 1 << 20,
		YouTubeChunkSize:  1 << 20,
		ErrorsLog:         "errors.log",
	}
}

func testServices(t *testing.T) *auth.Services {
	ctx := context.Background()
	opts := []option.ClientOption{option.WithHTTPClient(http.DefaultClient), option.WithEndpoint("http://127.0.0.1:1/")}
	d, err := drive.NewService(ctx, opts...)
	require.NoError(t, err)
	y, err := youtube.NewService(ctx, opts...)
	require.NoError(t, err)
	return &auth.Services{Drive: d, YouTube: y, HTTPClient: http.DefaultClient}
}

func platforms(t *testing.T, pub any) []string {
	m, ok := pub.(*uploaders.Manager)
	require.True(t, ok)
	return m.AvailablePlatforms()
}

func TestConnectDrive(t *testing.T) {
	s, err := BuildService(testConfig(), logging.Discard())
	require.NoError(t, err)

	store, pub, err := s.connect(context.Background(), testServices(t))
	require.NoError(t, err)
	assert.Equal(t, "drive", store.Backend())
	assert.Equal(t, []string{"youtube", "instagram"}, platforms(t, pub))
}

func TestConnectWithX(t *testing.T) {
	cfg := testConfig()
	cfg.XConsumerKey, cfg.XConsumerSecret = "ck", "cs"
	cfg.XAccessToken, cfg.XAccessTokenSecret = "at", "ats"
	s, err := BuildService(cfg, logging.Discard())
	require.NoError(t, err)

	_, pub, err := s.connect(context.Background(), testServices(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube", "instagram", "x"}, platforms(t, pub))
}

func TestConnectS3(t *testing.T) {
	cfg := testConfig()
	cfg.StorageBackend = internal.BackendS3
	cfg.S3Endpoint = "http://127.0.0.1:9000"
	cfg.S3Region = "us-east-1"
	cfg.S3Bucket = "videos"
	cfg.S3AccessKey, cfg.S3SecretKey = "ak", "sk"
	s, err := BuildService(cfg, logging.Discard())
	require.NoError(t, err)

	store, _, err := s.connect(context.Background(), testServices(t))
	require.NoError(t, err)
	assert.Equal(t, "s3", store.Backend())
}

func TestConnectMissingDrive(t *testing.T) {
	s, err := BuildService(testConfig(), logging.Discard())
	require.NoError(t, err)

	svcs := testServices(t)
	svcs.Drive = nil
	_, _, err = s.connect(context.Background(), svcs)
	assert.Error(t, err)
}

func TestBuildServiceBadContentFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(p, []byte("privacy: everyone\n"), 0o644))

	cfg := testConfig()
	cfg.ContentFile = p
	_, err := BuildService(cfg, logging.Discard())
	assert.ErrorContains(t, err, "invalid privacy")
}

func TestRunFiresOnSchedule(t *testing.T) {
	s, err := BuildService(testConfig(), logging.Discard())
	require.NoError(t, err)

	var calls atomic.Int32
	s.run = func(context.Context) (*model.RunReport, error) {
		calls.Add(1)
		return &model.RunReport{Outcome: model.OutcomeNoVideo}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "* * * * * *") }()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(stopTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunSkipsWhileStillRunning(t *testing.T) {
	s, err := BuildService(testConfig(), logging.Discard())
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	s.run = func(context.Context) (*model.RunReport, error) {
		calls.Add(1)
		<-release
		return &model.RunReport{Outcome: model.OutcomeCompleted}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "* * * * * *") }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 50*time.Millisecond)
	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	cancel()
	assert.NoError(t, <-done)
}

func TestRunRejectsBadSpec(t *testing.T) {
	s, err := BuildService(testConfig(), logging.Discard())
	require.NoError(t, err)

	err = s.Run(context.Background(), "every tuesday")
	assert.ErrorContains(t, err, "cron spec")
}
