package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bettask/backend/internal/errs"
	"go.uber.org/zap"
)

type memStore struct {
	watermarks map[string]time.Time
	seen       map[string]bool
	failReads  bool
}

func newMemStore() *memStore {
	return &memStore{watermarks: map[string]time.Time{}, seen: map[string]bool{}}
}

func (m *memStore) Watermark(_ context.Context, channel string) (time.Time, error) {
	if m.failReads {
		return time.Time{}, errors.New("store down")
	}
	return m.watermarks[channel], nil
}

func (m *memStore) SetWatermark(_ context.Context, channel string, ts time.Time) error {
	m.watermarks[channel] = ts
	return nil
}

func (m *memStore) MarkSeen(_ context.Context, id string, _ time.Duration) (bool, error) {
	if m.failReads {
		return false, errors.New("store down")
	}
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func TestGateDropsDuplicates(t *testing.T) {
	g := New(newMemStore(), time.Hour, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	if err := g.Accept(ctx, "wa", "msg-1", now); err != nil {
		t.Fatalf("first delivery rejected: %v", err)
	}
	if err := g.Accept(ctx, "wa", "msg-1", now); !errors.Is(err, errs.ErrDuplicateMessage) {
		t.Errorf("redelivery accepted, err = %v", err)
	}
	if err := g.Accept(ctx, "wa", "msg-2", now.Add(time.Second)); err != nil {
		t.Errorf("distinct message rejected: %v", err)
	}
}

func TestGateRejectsPreWatermarkReplay(t *testing.T) {
	store := newMemStore()
	g := New(store, time.Hour, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	if err := g.Commit(ctx, "wa", now); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Older than watermark minus the seen window: replay from before the
	// seen-set's horizon, rejected even though the ID was never seen.
	stale := now.Add(-2 * time.Hour)
	if err := g.Accept(ctx, "wa", "old-msg", stale); !errors.Is(err, errs.ErrDuplicateMessage) {
		t.Errorf("pre-watermark replay accepted, err = %v", err)
	}

	// Within the window the seen-set decides.
	recent := now.Add(-time.Minute)
	if err := g.Accept(ctx, "wa", "recent-msg", recent); err != nil {
		t.Errorf("in-window message rejected: %v", err)
	}
}

func TestGateWatermarkOnlyAdvances(t *testing.T) {
	store := newMemStore()
	g := New(store, time.Hour, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	if err := g.Commit(ctx, "wa", now); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := g.Commit(ctx, "wa", now.Add(-time.Minute)); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := store.watermarks["wa"]; !got.Equal(now) {
		t.Errorf("watermark moved backwards to %v", got)
	}
}

func TestGateFailsOpenOnStoreErrors(t *testing.T) {
	store := newMemStore()
	store.failReads = true
	g := New(store, time.Hour, zap.NewNop())

	if err := g.Accept(context.Background(), "wa", "msg-1", time.Now()); err != nil {
		t.Errorf("store failure should not drop traffic, got %v", err)
	}
}
