package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BridgeClient talks to the WhatsApp bridge's internal API.
type BridgeClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewBridgeClient(baseURL string, log *zap.Logger) *BridgeClient {
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

func (c *BridgeClient) Send(ctx context.Context, recipientAddress, text string) error {
	data, err := json.Marshal(sendRequest{Recipient: recipientAddress, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/messages", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ResolveMedia turns a bridge media reference into a URL the inference
// service can fetch directly.
func (c *BridgeClient) ResolveMedia(ctx context.Context, mediaRef string) (string, error) {
	u := fmt.Sprintf("%s/internal/media/%s", c.baseURL, url.PathEscape(mediaRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("bridge unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bridge returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.URL, nil
}
