package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DRIVE_FOLDER_ID": "src-folder",
		"DRIVE_DONE_ID":   "done-folder",
		"G_REFRESH_TOKEN": "refresh",
		"G_CLIENT_ID":     "client",
		"G_CLIENT_SECRET": "secret",
		"INSTA_SESSION":   `{"authorization_data":{"sessionid":"abc"}}`,
		"INSTA_USERNAME":  "motivation.daily",
		"INSTA_PASSWORD":  "hunter2",
	}
}

func lookup(env map[string]string) func(string) string {
	return func(k string) string { return env[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(lookup(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "src-folder", cfg.SourceFolderID)
	assert.Equal(t, "done-folder", cfg.DoneFolderID)
	assert.Equal(t, BackendDrive, cfg.StorageBackend)
	assert.Equal(t, DefaultTokenURL, cfg.TokenURL)
	assert.Equal(t, DefaultInstagramAPI, cfg.InstaAPIURL)
	assert.True(t, cfg.EditEnabled)
	assert.Equal(t, "white", cfg.EditPadColor)
	assert.Equal(t, ".", cfg.WorkDir)
	assert.Equal(t, 8<<20, cfg.DownloadChunkSize)
	assert.Equal(t, "errors.log", cfg.ErrorsLog)
	assert.False(t, cfg.XEnabled())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadConfigMissingRequired(t *testing.T) {
	env := baseEnv()
	delete(env, "DRIVE_DONE_ID")
	delete(env, "INSTA_PASSWORD")

	_, err := LoadConfigFrom(lookup(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DRIVE_DONE_ID")
	assert.Contains(t, err.Error(), "INSTA_PASSWORD")
}

func TestLoadConfigOverrides(t *testing.T) {
	env := baseEnv()
	env["EDIT_ENABLED"] = "false"
	env["EDIT_PAD_COLOR"] = "black"
	env["DOWNLOAD_CHUNK_SIZE"] = "1024"
	env["YOUTUBE_CHUNK_SIZE"] = "524288"
	env["TELEGRAM_BOT_TOKEN"] = "tg"
	env["TELEGRAM_CHAT_ID"] = "-100123"
	env["TELEGRAM_CHANNEL_ID"] = "-100456"
	env["X_CONSUMER_KEY"] = "a"
	env["X_CONSUMER_SECRET"] = "b"
	env["X_ACCESS_TOKEN"] = "c"
	env["X_ACCESS_TOKEN_SECRET"] = "d"

	cfg, err := LoadConfigFrom(lookup(env))
	require.NoError(t, err)
	assert.False(t, cfg.EditEnabled)
	assert.Equal(t, "black", cfg.EditPadColor)
	assert.Equal(t, 1024, cfg.DownloadChunkSize)
	assert.Equal(t, 524288, cfg.YouTubeChunkSize)
	assert.Equal(t, int64(-100123), cfg.TelegramChatID)
	assert.True(t, cfg.TelegramEnabled())
	assert.True(t, cfg.TelegramChannelEnabled())
	assert.Equal(t, int64(-100456), cfg.TelegramChannelID)
	assert.True(t, cfg.XEnabled())
}

func TestLoadConfigInvalidValues(t *testing.T) {
	env := baseEnv()
	env["EDIT_ENABLED"] = "yes please"
	env["DOWNLOAD_CHUNK_SIZE"] = "-1"
	env["YOUTUBE_CHUNK_SIZE"] = "8MB"
	env["TELEGRAM_CHAT_ID"] = "@mychannel"
	env["TELEGRAM_CHANNEL_ID"] = "-100456"

	_, err := LoadConfigFrom(lookup(env))
	require.Error(t, err)
	for _, name := range []string{"EDIT_ENABLED", "DOWNLOAD_CHUNK_SIZE", "YOUTUBE_CHUNK_SIZE", "TELEGRAM_CHAT_ID=@mychannel"} {
		assert.Contains(t, err.Error(), name)
	}
	assert.NotContains(t, err.Error(), "TELEGRAM_CHANNEL_ID")
}

func TestLoadConfigS3Backend(t *testing.T) {
	env := baseEnv()
	delete(env, "DRIVE_FOLDER_ID")
	delete(env, "DRIVE_DONE_ID")
	env["STORAGE_BACKEND"] = "S3"

	_, err := LoadConfigFrom(lookup(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")

	env["S3_ENDPOINT"] = "https://s3.example.com"
	env["S3_REGION"] = "eu-central-1"
	env["S3_BUCKET"] = "clips"
	env["S3_ACCESS_KEY_ID"] = "ak"
	env["S3_SECRET_ACCESS_KEY"] = "sk"
	cfg, err := LoadConfigFrom(lookup(env))
	require.NoError(t, err)
	assert.Equal(t, BackendS3, cfg.StorageBackend)
	assert.Equal(t, "ak", cfg.S3AccessKey)
	assert.Equal(t, "incoming/", cfg.S3SourcePrefix)
	assert.Equal(t, "done/", cfg.S3DonePrefix)
}

func TestLoadConfigUnknownBackend(t *testing.T) {
	env := baseEnv()
	env["STORAGE_BACKEND"] = "ftp"
	_, err := LoadConfigFrom(lookup(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp")
}

func TestFoldersFollowBackend(t *testing.T) {
	cfg := Config{
		StorageBackend: BackendDrive,
		SourceFolderID: "src",
		DoneFolderID:   "done",
		S3SourcePrefix: "incoming/",
		S3DonePrefix:   "done/",
	}
	assert.Equal(t, "src", cfg.SourceFolder())
	assert.Equal(t, "done", cfg.DoneFolder())

	cfg.StorageBackend = BackendS3
	assert.Equal(t, "incoming/", cfg.SourceFolder())
	assert.Equal(t, "done/", cfg.DoneFolder())
}
