package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bettask/backend/internal/errs"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", "test-model", 2*time.Second, zap.NewNop())
}

func TestClassifyText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/classify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Write([]byte(`{"label": "fund_request", "confidence": 0.92}`))
	})

	label, conf, err := c.ClassifyText(context.Background(), "add money please", []string{"fund_request", "unknown"})
	if err != nil {
		t.Fatalf("ClassifyText: %v", err)
	}
	if label != "fund_request" || conf != 0.92 {
		t.Errorf("got (%q, %v)", label, conf)
	}
}

func TestMalformedResponseIsExternalServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	})

	_, _, err := c.ClassifyText(context.Background(), "hello", nil)
	if !errors.Is(err, errs.ErrExternalService) {
		t.Errorf("err = %v, want ErrExternalService", err)
	}
}

func TestServerErrorIsExternalServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.CheckFreshness(context.Background(), "media-1", time.Now())
	if !errors.Is(err, errs.ErrExternalService) {
		t.Errorf("err = %v, want ErrExternalService", err)
	}
}

func TestTimeoutIsExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "", "test-model", 50*time.Millisecond, zap.NewNop())

	_, _, err := c.ClassifyText(context.Background(), "hello", nil)
	if !errors.Is(err, errs.ErrExternalService) {
		t.Errorf("err = %v, want ErrExternalService", err)
	}
}

func TestReadPaymentEvidence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"amount_paise": 50000, "recipient": "bettask@upi", "transaction_status": "success", "fresh": true}`))
	})

	ev, err := c.ReadPaymentEvidence(context.Background(), "media-2", "bettask@upi", time.Now())
	if err != nil {
		t.Fatalf("ReadPaymentEvidence: %v", err)
	}
	if ev.AmountPaise != 50000 || !ev.Fresh || ev.Recipient != "bettask@upi" {
		t.Errorf("evidence = %+v", ev)
	}
}
