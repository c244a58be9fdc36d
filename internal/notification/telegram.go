package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Telegram caps a message at 4096 characters.
const telegramMaxRunes = 4096

const telegramAPI = "https://api.telegram.org"

// Telegram sends reports through the Bot API, split across as many
// messages as the length limit requires.
type Telegram struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

// NewTelegram creates a Telegram notifier for one chat.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   telegramAPI,
		client:   &http.Client{Timeout: defaultTimeout},
	}
}

// Publish sends the report as plain text; markdown tables do not survive
// Telegram's own markup rules.
func (t *Telegram) Publish(ctx context.Context, symbol, report string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)
	parts := splitMessage(report, telegramMaxRunes)
	for i, text := range parts {
		err := postJSON(ctx, t.client, url, map[string]any{
			"chat_id":                  t.chatID,
			"text":                     text,
			"disable_web_page_preview": true,
		})
		if err != nil {
			return fmt.Errorf("telegram %s part %d/%d: %w", symbol, i+1, len(parts), err)
		}
	}
	slog.Debug("report sent", "component", "notification", "channel", "telegram", "symbol", symbol, "parts", len(parts))
	return nil
}

// splitMessage cuts s into pieces of at most limit runes, preferring line
// boundaries. A single over-long line is cut mid-line.
func splitMessage(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	var (
		out []string
		cur strings.Builder
		n   int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(s, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			flush()
		}
		for ln > limit {
			head := string([]rune(line)[:limit])
			out = append(out, head)
			line = line[len(head):]
			ln -= limit
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return out
}
