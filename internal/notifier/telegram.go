package notifier

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dghubble/sling"

	"github.com/pfrederiksen/ocd-events/internal/event"
)

const (
	telegramAPIBaseURL   = "https://api.telegram.org/bot"
	telegramTimeout      = 10 * time.Second
	maxTelegramMessage   = 4096
	telegramSendInterval = time.Second
)

// TelegramNotifier sends events to a Telegram chat through the Bot API
type TelegramNotifier struct {
	api      *sling.Sling
	chatID   string
	interval time.Duration
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramNotifier creates a notifier from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID
func NewTelegramNotifier() (*TelegramNotifier, error) {
	return newTelegramNotifier(telegramAPIBaseURL, os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"), &http.Client{Timeout: telegramTimeout})
}

func newTelegramNotifier(baseURL, botToken, chatID string, client *http.Client) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}

	return &TelegramNotifier{
		api:      sling.New().Client(client).Base(baseURL + botToken + "/"),
		chatID:   chatID,
		interval: telegramSendInterval,
	}, nil
}

// Notify sends one message per event
func (n *TelegramNotifier) Notify(events []*event.Event) error {
	for i, evt := range events {
		if err := n.SendMessage(formatAnnouncement(evt, maxTelegramMessage)); err != nil {
			return fmt.Errorf("failed to send message for event %s: %w", evt.ID, err)
		}

		if i < len(events)-1 {
			time.Sleep(n.interval)
		}
	}
	return nil
}

// SendMessage sends a text message to the configured chat
func (n *TelegramNotifier) SendMessage(text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	body := sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	}

	var result telegramResponse
	resp, err := n.api.New().Post("sendMessage").BodyJSON(body).Receive(&result, &result)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, result.Description)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}

	return nil
}
