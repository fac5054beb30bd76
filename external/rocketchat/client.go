package rocketchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/taskbot/internal/chat"
)

const (
	apiPrefix          = "/api/v1/"
	attachmentColor    = "#FFFFFF"
	buttonColor        = "#FF0000"
	buttonTextColor    = "#FFFFFF"
	buttonAlignment    = "vertical"
	maxErrorBodyLength = 512
	imListPageSize     = 100
	imListSort         = `{"_updatedAt":-1}`
)

type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client

	mu        sync.RWMutex
	authToken string
	userID    string
}

func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		AuthToken string `json:"authToken"`
		UserID    string `json:"userId"`
	} `json:"data"`
}

func (c *Client) Authenticate(ctx context.Context) error {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "login", loginRequest{User: c.username, Password: c.password}, &resp, false); err != nil {
		return err
	}
	if resp.Data.AuthToken == "" || resp.Data.UserID == "" {
		return fmt.Errorf("%w: login response carries no token", chat.ErrUnauthorized)
	}
	c.mu.Lock()
	c.authToken = resp.Data.AuthToken
	c.userID = resp.Data.UserID
	c.mu.Unlock()
	return nil
}

func (c *Client) BotUserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (c *Client) SetPresence(ctx context.Context, status chat.Presence) error {
	return c.do(ctx, http.MethodPost, "users.setStatus", setStatusRequest{Status: string(status)}, nil, true)
}

type plainMessage struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type richMessage struct {
	Channel     string       `json:"channel"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Color   string   `json:"color"`
	Actions []action `json:"actions"`
}

type action struct {
	Type            string `json:"type"`
	Text            string `json:"text"`
	Msg             string `json:"msg,omitempty"`
	MsgInChatWindow bool   `json:"msg_in_chat_window"`
	URL             string `json:"url,omitempty"`
	ButtonAlignment string `json:"button_alignment"`
	ButtonColor     string `json:"button_color"`
	ButtonTextColor string `json:"button_text_color"`
}

func (c *Client) SendMessage(ctx context.Context, msg chat.OutgoingMessage) error {
	return c.do(ctx, http.MethodPost, "chat.postMessage", buildPostMessage(msg), nil, true)
}

func buildPostMessage(msg chat.OutgoingMessage) any {
	if !msg.IsRich() {
		return plainMessage{RoomID: msg.RoomID, Text: msg.Text}
	}
	actions := make([]action, 0, len(msg.Actions))
	for _, a := range msg.Actions {
		actions = append(actions, action{
			Type:            "button",
			Text:            a.Label,
			Msg:             a.Text,
			MsgInChatWindow: a.URL == "",
			URL:             a.URL,
			ButtonAlignment: buttonAlignment,
			ButtonColor:     buttonColor,
			ButtonTextColor: buttonTextColor,
		})
	}
	return richMessage{
		Channel: msg.RoomID,
		Text:    msg.Text,
		Attachments: []attachment{
			{Color: attachmentColor, Actions: actions},
		},
	}
}

type imListResponse struct {
	IMs []struct {
		ID          string `json:"_id"`
		LastMessage *struct {
			ID   string    `json:"_id"`
			Msg  string    `json:"msg"`
			TS   time.Time `json:"ts"`
			User struct {
				ID       string `json:"_id"`
				Username string `json:"username"`
			} `json:"u"`
		} `json:"lastMessage"`
	} `json:"ims"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Total  int `json:"total"`
}

// FetchUnreadDirectMessages lists the latest message of every DM room the bot
// belongs to, most recently updated first, following im.list pages until the
// reported total is reached. Rooms without any message are skipped.
func (c *Client) FetchUnreadDirectMessages(ctx context.Context) ([]chat.DirectMessage, error) {
	var list []chat.DirectMessage
	for offset := 0; ; {
		q := url.Values{}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("count", strconv.Itoa(imListPageSize))
		q.Set("sort", imListSort)

		var resp imListResponse
		if err := c.do(ctx, http.MethodGet, "im.list?"+q.Encode(), nil, &resp, true); err != nil {
			return nil, err
		}
		for _, im := range resp.IMs {
			if im.LastMessage == nil {
				continue
			}
			list = append(list, chat.DirectMessage{
				RoomID:     im.ID,
				MessageID:  im.LastMessage.ID,
				AuthorID:   im.LastMessage.User.ID,
				AuthorName: im.LastMessage.User.Username,
				Text:       im.LastMessage.Msg,
				SentAt:     im.LastMessage.TS,
			})
		}
		offset += len(resp.IMs)
		if len(resp.IMs) == 0 || offset >= resp.Total {
			return list, nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any, authenticated bool) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		c.mu.RLock()
		req.Header.Set("X-Auth-Token", c.authToken)
		req.Header.Set("X-User-Id", c.userID)
		c.mu.RUnlock()
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", chat.ErrUnavailable, method, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := classifyStatus(resp, endpoint); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", chat.ErrUnavailable, endpoint, err)
	}
	return nil
}

func classifyStatus(resp *http.Response, endpoint string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
	cause := fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Join(chat.ErrUnauthorized, cause)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return errors.Join(chat.ErrUnavailable, cause)
	default:
		return cause
	}
}
