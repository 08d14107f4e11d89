// Package gate drops duplicate and replayed inbound messages before any
// handler runs. It keeps a per-channel timestamp watermark plus a bounded
// set of recently seen message IDs, so a restart or a transport redelivery
// never processes the same message twice.
package gate

import (
	"context"
	"time"

	"github.com/bettask/backend/internal/errs"
	"go.uber.org/zap"
)

// Store persists the watermark and the seen-set.
type Store interface {
	// Watermark returns the zero time when none has been committed yet.
	Watermark(ctx context.Context, channel string) (time.Time, error)
	SetWatermark(ctx context.Context, channel string, ts time.Time) error
	// MarkSeen returns false when the ID was already present.
	MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

type Gate struct {
	store Store
	// seenTTL bounds the seen-set; IDs older than the watermark minus this
	// window are rejected by the watermark alone.
	seenTTL time.Duration
	log     *zap.Logger
}

func New(store Store, seenTTL time.Duration, log *zap.Logger) *Gate {
	return &Gate{store: store, seenTTL: seenTTL, log: log}
}

// Accept decides whether the message should be processed. It returns
// errs.ErrDuplicateMessage for replays. A store failure fails open: losing
// dedup for one message is better than dropping real traffic.
func (g *Gate) Accept(ctx context.Context, channel, messageID string, ts time.Time) error {
	wm, err := g.store.Watermark(ctx, channel)
	if err != nil {
		g.log.Warn("watermark read failed, accepting message", zap.Error(err))
		return nil
	}

	// Anything older than the watermark minus the seen window predates the
	// seen-set and must be a replay.
	if !wm.IsZero() && ts.Before(wm.Add(-g.seenTTL)) {
		return errs.ErrDuplicateMessage
	}

	fresh, err := g.store.MarkSeen(ctx, messageID, g.seenTTL)
	if err != nil {
		g.log.Warn("seen-set write failed, accepting message", zap.Error(err))
		return nil
	}
	if !fresh {
		return errs.ErrDuplicateMessage
	}
	return nil
}

// Commit advances the watermark after the message has been fully handled.
// The watermark only moves forward.
func (g *Gate) Commit(ctx context.Context, channel string, ts time.Time) error {
	wm, err := g.store.Watermark(ctx, channel)
	if err != nil {
		return err
	}
	if !wm.IsZero() && !ts.After(wm) {
		return nil
	}
	return g.store.SetWatermark(ctx, channel, ts)
}
