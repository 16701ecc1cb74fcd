package uploaders

import (
	"context"
	"fmt"
	"net/http"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"drive-autoposter/internal/logging"
)

// Telegram caps media captions at 1024 characters.
const telegramCaptionLimit = 1024

// TelegramUploader posts the clip to a channel through the Bot API.
type TelegramUploader struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *logging.Logger
}

// NewTelegramUploader creates a new Telegram uploader. endpoint may be empty
// for the public Bot API.
func NewTelegramUploader(token string, chatID int64, endpoint string, client *http.Client, log *logging.Logger) (*TelegramUploader, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &TelegramUploader{api: api, chatID: chatID, log: log}, nil
}

// Platform returns the platform name
func (t *TelegramUploader) Platform() string {
	return "telegram"
}

// Upload sends the video with the Instagram caption, trimmed to fit.
func (t *TelegramUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return failed(t.Platform(), err), err
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return failed(t.Platform(), err), fmt.Errorf("telegram: %w", err)
	}

	caption := req.Caption
	if caption == "" {
		caption = req.Title
	}

	v := tgbotapi.NewVideo(t.chatID, tgbotapi.FilePath(req.VideoPath))
	v.Caption = lo.Substring(caption, 0, telegramCaptionLimit)
	v.SupportsStreaming = true

	msg, err := t.api.Send(v)
	if err != nil {
		err = fmt.Errorf("telegram: send video: %w", err)
		return failed(t.Platform(), err), err
	}

	res := &UploadResult{
		Success:  true,
		Platform: t.Platform(),
		Details:  map[string]string{"message_id": fmt.Sprint(msg.MessageID)},
	}
	if msg.Chat != nil && msg.Chat.UserName != "" {
		res.URL = fmt.Sprintf("https://t.me/%s/%d", msg.Chat.UserName, msg.MessageID)
	}
	return res, nil
}
