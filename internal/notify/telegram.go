package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"drive-autoposter/internal/logging"
	"drive-autoposter/internal/model"
)

const (
	maxMessageLen = 4096
	errorTailSize = 5
)

// Telegram sends a short run summary to one chat.
type Telegram struct {
	api        *tgbotapi.BotAPI
	chatID     int64
	errorsPath string
	log        *logging.Logger
}

// NewTelegram connects to the Bot API. endpoint may be empty for the public
// API; it uses the tgbotapi format "https://host/bot%s/%s".
func NewTelegram(token string, chatID int64, errorsPath, endpoint string, client *http.Client, log *logging.Logger) (*Telegram, error) {
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
	api.Debug = false
	return &Telegram{api: api, chatID: chatID, errorsPath: errorsPath, log: log}, nil
}

func (t *Telegram) NotifyRun(_ context.Context, r *model.RunReport) error {
	var tail []string
	if lo.ContainsBy(r.Stages, func(s model.StageResult) bool { return s.Failed() }) && t.errorsPath != "" {
		lines, err := TailLastNLines(t.errorsPath, errorTailSize)
		if err != nil {
			t.log.Warnf("telegram: read %s: %v", t.errorsPath, err)
		}
		tail = lines
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatReport(r, tail))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send summary: %w", err)
	}
	return nil
}

func outcomeIcon(r *model.RunReport) string {
	switch {
	case r.Outcome == model.OutcomeNoVideo:
		return "💤"
	case r.Outcome != model.OutcomeCompleted:
		return "❌"
	case r.Published() == 0:
		return "⚠️"
	default:
		return "✅"
	}
}

// FormatReport renders the run for a chat message.
func FormatReport(r *model.RunReport, errTail []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", outcomeIcon(r), r.Outcome)
	if r.Video != nil {
		fmt.Fprintf(&b, "\n🎬 %s", r.Video.Name)
	}
	if r.Title != "" {
		fmt.Fprintf(&b, "\n📝 %s", r.Title)
	}
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "\n⏱ %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	for _, s := range r.Stages {
		mark := "•"
		switch s.Status {
		case model.StatusOK:
			mark = "✓"
		case model.StatusFailed:
			mark = "✗"
		}
		fmt.Fprintf(&b, "\n%s %s", mark, s.Stage)
		if url := s.Detail["url"]; url != "" {
			fmt.Fprintf(&b, " %s", url)
		}
		if s.Err != nil {
			fmt.Fprintf(&b, ": %v", s.Err)
		}
	}
	if len(errTail) > 0 {
		b.WriteString("\n\nerrors.log:\n")
		b.WriteString(strings.Join(errTail, "\n"))
	}

	out := b.String()
	// the Bot API limit counts characters, not bytes
	if lo.RuneLength(out) > maxMessageLen {
		out = lo.Substring(out, 0, maxMessageLen-3) + "..."
	}
	return out
}
