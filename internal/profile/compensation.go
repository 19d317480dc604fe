package profile

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jonathan/profile-engine/internal/artifact"
	"github.com/jonathan/profile-engine/internal/db"
)

type outcome int

const (
	committed outcome = iota
	rolledBack
	// unknown means the commit failed without a server answer; it may have landed.
	unknown
)

func (o outcome) String() string {
	switch o {
	case committed:
		return "committed"
	case rolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

func outcomeOf(txErr error) outcome {
	switch {
	case txErr == nil:
		return committed
	case errors.Is(txErr, db.ErrCommitUnknown):
		return unknown
	default:
		return rolledBack
	}
}

// compensator removes artifacts that the transaction outcome left
// unreferenced. Cleanup is best effort and never changes the caller's result.
type compensator struct {
	store    artifact.Store
	log      *zap.Logger
	failures atomic.Int64
}

func newCompensator(store artifact.Store, log *zap.Logger) *compensator {
	return &compensator{store: store, log: log}
}

// settle runs after the transaction outcome is known.
//
//	committed:   delete superseded (the artifact the commit stopped referencing)
//	rolled back: delete written (the orphan); superseded stays referenced
//	unknown:     delete nothing; the reconciliation sweep resolves it
func (c *compensator) settle(ctx context.Context, out outcome, written, superseded string) {
	switch out {
	case committed:
		if superseded != "" && superseded != written {
			c.remove(ctx, superseded, "superseded")
		}
	case rolledBack:
		if written != "" {
			c.remove(ctx, written, "orphan")
		}
	case unknown:
		if written != "" || superseded != "" {
			c.log.Warn("transaction outcome unknown, leaving artifacts for reconciliation",
				zap.String("written", written),
				zap.String("superseded", superseded))
		}
	}
}

func (c *compensator) remove(ctx context.Context, locator, reason string) {
	// The request may already be cancelled; cleanup still has to run.
	err := c.store.Delete(context.WithoutCancel(ctx), locator)
	if err == nil {
		c.log.Debug("artifact removed", zap.String("locator", locator), zap.String("reason", reason))
		return
	}
	c.failures.Add(1)
	if errors.Is(err, artifact.ErrNotFound) {
		c.log.Warn("partial cleanup failure: artifact already missing",
			zap.String("locator", locator), zap.String("reason", reason))
		return
	}
	c.log.Warn("partial cleanup failure",
		zap.String("locator", locator), zap.String("reason", reason), zap.Error(err))
}
