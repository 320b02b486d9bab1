package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultLineAPIURL = "https://api.line.me"

// LineClient pushes text messages through the LINE Messaging API.
type LineClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewLineClient(baseURL, token string, log *zap.Logger) *LineClient {
	if baseURL == "" {
		baseURL = DefaultLineAPIURL
	}
	return &LineClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *LineClient) Configured() bool { return c.token != "" }

type pushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *LineClient) PushText(ctx context.Context, lineUserID, text string) error {
	if !c.Configured() {
		return fmt.Errorf("line channel token not configured")
	}
	body, err := json.Marshal(pushRequest{
		To:       lineUserID,
		Messages: []lineMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/bot/message/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line api unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("line api returned %d: %s", resp.StatusCode, string(b))
	}
	c.log.Debug("line message sent", zap.String("to", lineUserID))
	return nil
}
