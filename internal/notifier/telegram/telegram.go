package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/lifecycle"
	"github.com/newthinker/signalbook/internal/notifier"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram sends lifecycle events through the Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if t.apiBase == "" {
		t.apiBase = defaultAPIBase
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

func (t *Telegram) Notify(ctx context.Context, event notifier.Event) error {
	return t.sendMessage(ctx, formatEvent(event))
}

func formatEvent(ev notifier.Event) string {
	var sb strings.Builder

	if ev.Kind == notifier.KindClosed {
		emoji := "⏹️"
		switch {
		case lifecycle.IsWin(ev.Status.Result):
			emoji = "✅"
		case lifecycle.IsLoss(ev.Status.Result):
			emoji = "❌"
		}
		fmt.Fprintf(&sb, "%s *%s* %s closed: %s\n", emoji, ev.Symbol, ev.Timeframe, ev.Status.ResultLabel)
	} else {
		fmt.Fprintf(&sb, "🔔 *%s* %s: %s\n", ev.Symbol, ev.Timeframe, ev.Status.LastEvent)
		if ev.Status.RemainingSize.IsSome() {
			fmt.Fprintf(&sb, "📦 Remaining: %.0f%%\n", ev.Status.RemainingSize.Unwrap())
		}
	}

	if ev.Strategy != "" {
		fmt.Fprintf(&sb, "🎯 Strategy: %s\n", ev.Strategy)
	}
	if ev.Action.Reason != "" && ev.Action.Type != core.ActionDoNothing {
		fmt.Fprintf(&sb, "💡 Reason: %s\n", ev.Action.Reason)
	}
	fmt.Fprintf(&sb, "⏰ Time: %s", ev.At.UTC().Format("2006-01-02 15:04:05"))

	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
