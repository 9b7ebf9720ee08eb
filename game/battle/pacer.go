package battle

import (
	"context"
	"time"
)

// RealtimePacer sleeps for the requested pause, scaled by Speed (1 when
// zero). It returns early with the context's error on cancellation.
type RealtimePacer struct {
	Speed float64
}

func (p RealtimePacer) Pause(ctx context.Context, d time.Duration) error {
	if p.Speed > 0 {
		d = time.Duration(float64(d) / p.Speed)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// InstantPacer skips every pause.
type InstantPacer struct{}

func (InstantPacer) Pause(ctx context.Context, _ time.Duration) error { return ctx.Err() }
