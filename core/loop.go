package core

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventSource reports whether the user asked to quit.
type EventSource interface {
	PollEvents() bool
}

// Drawer draws one frame.
type Drawer interface {
	Draw() error
}

// LoopStats summarises a finished loop.
type LoopStats struct {
	Frames int64
	Failed int64
}

// RunLoop polls events and draws one frame per tick until the user quits
// or ctx is done. A failed frame is logged and the loop goes on, unless
// maxFailures frames failed in a row. A zero maxFailures never aborts.
func RunLoop(ctx context.Context, t *Time, events EventSource, drawer Drawer, maxFailures int) (LoopStats, error) {
	var (
		stats       LoopStats
		consecutive int
		counted     int64
		since       = time.Now()
	)

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-t.FpsTicker().C:
			if events.PollEvents() {
				log.WithField("frames", stats.Frames).Info("quit requested")
				return stats, nil
			}

			if err := drawer.Draw(); err != nil {
				stats.Failed++
				consecutive++
				log.WithError(err).WithField("consecutive", consecutive).Error("frame failed")
				if maxFailures > 0 && consecutive >= maxFailures {
					return stats, fmt.Errorf("%d frames failed in a row: %w", consecutive, err)
				}
				continue
			}
			consecutive = 0
			stats.Frames++
			counted++

			if elapsed := time.Since(since); elapsed >= time.Second {
				log.WithField("fps", float64(counted)/elapsed.Seconds()).Debug("frame rate")
				counted = 0
				since = time.Now()
			}
		}
	}
}
