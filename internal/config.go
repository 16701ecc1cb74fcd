package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	BackendDrive = "drive"
	BackendS3    = "s3"

	DefaultTokenURL     = "https://oauth2.googleapis.com/token"
	DefaultInstagramAPI = "https://i.instagram.com"
)

type Config struct {
	// Cloud storage folders
	SourceFolderID string
	DoneFolderID   string
	SourceOrderBy  string // empty = whatever the storage API returns first
	StorageBackend string

	// Google OAuth refresh credential
	RefreshToken string
	ClientID     string
	ClientSecret string
	TokenURL     string

	// Instagram
	InstaSession  string // instagrapi-style settings JSON
	InstaUsername string
	InstaPassword string
	InstaAPIURL   string

	// S3 backend (STORAGE_BACKEND=s3)
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3SourcePrefix string
	S3DonePrefix   string

	// Optional X publisher
	XConsumerKey       string
	XConsumerSecret    string
	XAccessToken       string
	XAccessTokenSecret string

	// Optional Telegram run summary
	TelegramToken  string
	TelegramChatID int64

	// Optional channel that also receives the clip itself
	TelegramChannelID int64

	WorkDir           string
	EditEnabled       bool
	EditPadColor      string
	DownloadChunkSize int
	YouTubeChunkSize  int
	ContentFile       string
	ErrorsLog         string
}

// XEnabled reports whether all four X OAuth1 keys are present.
func (c Config) XEnabled() bool {
	return c.XConsumerKey != "" && c.XConsumerSecret != "" && c.XAccessToken != "" && c.XAccessTokenSecret != ""
}

func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func (c Config) TelegramChannelEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChannelID != 0
}

// SourceFolder is the folder polled for work on the active backend.
func (c Config) SourceFolder() string {
	if c.StorageBackend == BackendS3 {
		return c.S3SourcePrefix
	}
	return c.SourceFolderID
}

// DoneFolder is where processed videos are moved on the active backend.
func (c Config) DoneFolder() string {
	if c.StorageBackend == BackendS3 {
		return c.S3DonePrefix
	}
	return c.DoneFolderID
}

// LoadConfig reads the process environment once. The result is passed by
// value to every stage; nothing reads the environment after this call.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(os.Getenv)
}

// LoadConfigFrom is LoadConfig over an arbitrary lookup (tests pass a map).
func LoadConfigFrom(getenv func(string) string) (Config, error) {
	cfg := Config{
		SourceFolderID: getenv("DRIVE_FOLDER_ID"),
		DoneFolderID:   getenv("DRIVE_DONE_ID"),
		SourceOrderBy:  getenv("SOURCE_ORDER_BY"),
		StorageBackend: firstNonEmpty(strings.ToLower(getenv("STORAGE_BACKEND")), BackendDrive),

		RefreshToken: getenv("G_REFRESH_TOKEN"),
		ClientID:     getenv("G_CLIENT_ID"),
		ClientSecret: getenv("G_CLIENT_SECRET"),
		TokenURL:     firstNonEmpty(getenv("G_TOKEN_URL"), DefaultTokenURL),

		InstaSession:  getenv("INSTA_SESSION"),
		InstaUsername: getenv("INSTA_USERNAME"),
		InstaPassword: getenv("INSTA_PASSWORD"),
		InstaAPIURL:   firstNonEmpty(getenv("INSTA_API_URL"), DefaultInstagramAPI),

		S3Endpoint:     getenv("S3_ENDPOINT"),
		S3Region:       getenv("S3_REGION"),
		S3Bucket:       getenv("S3_BUCKET"),
		S3AccessKey:    firstNonEmpty(getenv("S3_ACCESS_KEY"), getenv("S3_ACCESS_KEY_ID")),
		S3SecretKey:    firstNonEmpty(getenv("S3_SECRET_ACCESS_KEY"), getenv("S3_SECRET_ACCESS_KEY_ID")),
		S3SourcePrefix: firstNonEmpty(getenv("S3_SOURCE_PREFIX"), "incoming/"),
		S3DonePrefix:   firstNonEmpty(getenv("S3_DONE_PREFIX"), "done/"),

		XConsumerKey:       getenv("X_CONSUMER_KEY"),
		XConsumerSecret:    getenv("X_CONSUMER_SECRET"),
		XAccessToken:       getenv("X_ACCESS_TOKEN"),
		XAccessTokenSecret: getenv("X_ACCESS_TOKEN_SECRET"),

		TelegramToken: getenv("TELEGRAM_BOT_TOKEN"),

		WorkDir:           firstNonEmpty(getenv("WORK_DIR"), "."),
		EditEnabled:       true,
		EditPadColor:      firstNonEmpty(getenv("EDIT_PAD_COLOR"), "white"),
		DownloadChunkSize: 8 << 20,
		YouTubeChunkSize:  8 << 20,
		ContentFile:       getenv("CONTENT_FILE"),
		ErrorsLog:         firstNonEmpty(getenv("ERRORS_LOG"), "errors.log"),
	}

	var invalid []string

	if v := getenv("EDIT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EditEnabled = b
		} else {
			invalid = append(invalid, "EDIT_ENABLED="+v)
		}
	}

	// YouTube wants resumable chunks in multiples of 256 KiB
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"DOWNLOAD_CHUNK_SIZE", &cfg.DownloadChunkSize},
		{"YOUTUBE_CHUNK_SIZE", &cfg.YouTubeChunkSize},
	} {
		if v := getenv(f.name); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*f.dst = n
			} else {
				invalid = append(invalid, f.name+"="+v)
			}
		}
	}

	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{"TELEGRAM_CHAT_ID", &cfg.TelegramChatID},
		{"TELEGRAM_CHANNEL_ID", &cfg.TelegramChannelID},
	} {
		if v := getenv(f.name); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*f.dst = n
			} else {
				invalid = append(invalid, f.name+"="+v)
			}
		}
	}

	if len(invalid) > 0 {
		return cfg, fmt.Errorf("invalid env values: %s", strings.Join(invalid, ", "))
	}

	required := []struct{ name, val string }{
		{"G_REFRESH_TOKEN", cfg.RefreshToken},
		{"G_CLIENT_ID", cfg.ClientID},
		{"G_CLIENT_SECRET", cfg.ClientSecret},
		{"INSTA_SESSION", cfg.InstaSession},
		{"INSTA_USERNAME", cfg.InstaUsername},
		{"INSTA_PASSWORD", cfg.InstaPassword},
	}
	switch cfg.StorageBackend {
	case BackendDrive:
		required = append(required,
			struct{ name, val string }{"DRIVE_FOLDER_ID", cfg.SourceFolderID},
			struct{ name, val string }{"DRIVE_DONE_ID", cfg.DoneFolderID},
		)
	case BackendS3:
		required = append(required,
			struct{ name, val string }{"S3_ENDPOINT", cfg.S3Endpoint},
			struct{ name, val string }{"S3_REGION", cfg.S3Region},
			struct{ name, val string }{"S3_BUCKET", cfg.S3Bucket},
			struct{ name, val string }{"S3_ACCESS_KEY", cfg.S3AccessKey},
			struct{ name, val string }{"S3_SECRET_ACCESS_KEY", cfg.S3SecretKey},
		)
	default:
		return cfg, fmt.Errorf("unknown STORAGE_BACKEND %q (want %q or %q)", cfg.StorageBackend, BackendDrive, BackendS3)
	}

	var missing []string
	for _, r := range required {
		if r.val == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s != "" {
			return s
		}
	}
	return ""
}
