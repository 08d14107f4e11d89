// Package ai wraps the external inference service. Every call shape maps
// a malformed or unreachable response to errs.ErrExternalService so
// callers can take their deterministic fallback path instead of crashing.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bettask/backend/internal/errs"
	"go.uber.org/zap"
)

// Client communicates with the inference service's HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type classifyRequest struct {
	Model   string   `json:"model"`
	Message string   `json:"message"`
	Labels  []string `json:"labels"`
}

type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ClassifyText asks the service to pick one label from the closed set.
func (c *Client) ClassifyText(ctx context.Context, message string, labels []string) (string, float64, error) {
	var out classifyResponse
	if err := c.post(ctx, "/v1/classify", classifyRequest{Model: c.model, Message: message, Labels: labels}, &out); err != nil {
		return "", 0, err
	}
	if out.Label == "" {
		return "", 0, fmt.Errorf("%w: empty label", errs.ErrExternalService)
	}
	return out.Label, out.Confidence, nil
}

type mediaCheckRequest struct {
	Model    string `json:"model"`
	MediaRef string `json:"media_ref"`
	Prompt   string `json:"prompt"`
	// NowRef anchors freshness questions to the server's clock.
	NowRef string `json:"now_ref,omitempty"`
}

// MediaVerdict is the shared shape of both image analysis calls.
type MediaVerdict struct {
	Valid       bool    `json:"valid"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// CheckFreshness asks whether the media shows evidence of originating in
// the current window (visible timestamps, screenshot chrome, EXIF).
func (c *Client) CheckFreshness(ctx context.Context, mediaRef string, now time.Time) (*MediaVerdict, error) {
	req := mediaCheckRequest{
		Model:    c.model,
		MediaRef: mediaRef,
		Prompt:   "Does this image carry evidence that it was captured today? Look for visible dates, timestamps, or screenshot UI elements.",
		NowRef:   now.Format(time.RFC3339),
	}
	var out MediaVerdict
	if err := c.post(ctx, "/v1/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchContent asks whether the media plausibly relates to the goal. The
// bar is a lenient category-level match, not proof of task execution.
func (c *Client) MatchContent(ctx context.Context, mediaRef, goal string) (*MediaVerdict, error) {
	req := mediaCheckRequest{
		Model:    c.model,
		MediaRef: mediaRef,
		Prompt:   fmt.Sprintf("Is this image plausibly related to the activity %q? A loose category match is enough.", goal),
	}
	var out MediaVerdict
	if err := c.post(ctx, "/v1/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type evidenceRequest struct {
	Model    string `json:"model"`
	MediaRef string `json:"media_ref"`
	Payee    string `json:"payee"`
	NowRef   string `json:"now_ref"`
}

// PaymentEvidence is what the service reads off a payment screenshot.
type PaymentEvidence struct {
	AmountPaise       int64  `json:"amount_paise"`
	Recipient         string `json:"recipient"`
	TransactionStatus string `json:"transaction_status"`
	Fresh             bool   `json:"fresh"`
}

// ReadPaymentEvidence extracts the amount, recipient, status and
// freshness from a payment screenshot.
func (c *Client) ReadPaymentEvidence(ctx context.Context, mediaRef, payee string, now time.Time) (*PaymentEvidence, error) {
	req := evidenceRequest{Model: c.model, MediaRef: mediaRef, Payee: payee, NowRef: now.Format(time.RFC3339)}
	var out PaymentEvidence
	if err := c.post(ctx, "/v1/payment_evidence", req, &out); err != nil {
		return nil, err
	}
	if out.AmountPaise < 0 {
		return nil, fmt.Errorf("%w: negative amount in evidence", errs.ErrExternalService)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: inference service returned %d: %s", errs.ErrExternalService, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", errs.ErrExternalService, err)
	}
	return nil
}
