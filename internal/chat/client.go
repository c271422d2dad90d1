// Package chat is a hand-written client for the bot messaging platform:
// long-poll updates in, text and photo messages with inline button grids out.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mirelabs/velora/internal/model"
)

const longPollSeconds = 25

type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

func NewClient(apiBase, token string) *Client {
	return &Client{
		apiBase: apiBase,
		token:   token,
		// Long polls hang until the platform has something to say.
		httpClient: &http.Client{Timeout: (longPollSeconds + 10) * time.Second},
	}
}

func (c *Client) url(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, method)
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s: %w", method, err)
	}
	if !env.OK {
		if env.Description == "" {
			env.Description = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("%s: %s", method, env.Description)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

type inlineButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func markupFor(buttons [][]model.Button) *replyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	rm := &replyMarkup{}
	for _, row := range buttons {
		var out []inlineButton
		for _, b := range row {
			out = append(out, inlineButton{Text: b.Text, URL: b.URL, CallbackData: b.Action})
		}
		rm.InlineKeyboard = append(rm.InlineKeyboard, out)
	}
	return rm
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type sendPhotoRequest struct {
	ChatID      int64        `json:"chat_id"`
	Photo       string       `json:"photo"`
	Caption     string       `json:"caption,omitempty"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

// SendMessage sends HTML-formatted text with an optional inline button grid.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, buttons [][]model.Button) error {
	return c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: markupFor(buttons),
	}, nil)
}

// SendPhoto sends an image by URL with an optional caption and button grid.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, buttons [][]model.Button) error {
	return c.call(ctx, "sendPhoto", sendPhotoRequest{
		ChatID:      chatID,
		Photo:       photoURL,
		Caption:     caption,
		ParseMode:   "HTML",
		ReplyMarkup: markupFor(buttons),
	}, nil)
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

// AnswerCallback acknowledges a button tap so the client stops its spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	}, nil)
}

type getUpdatesRequest struct {
	Offset  int64 `json:"offset,omitempty"`
	Timeout int   `json:"timeout"`
}

// Updates long-polls for the next batch of inbound events. offset must be
// one past the last processed update id.
func (c *Client) Updates(ctx context.Context, offset int64) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", getUpdatesRequest{Offset: offset, Timeout: longPollSeconds}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// Me returns the bot's own identity, used as a startup credential check.
func (c *Client) Me(ctx context.Context) (*Actor, error) {
	var me Actor
	if err := c.call(ctx, "getMe", struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}
