package core

import (
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

type events struct {
	polls  int
	quitAt int
}

func (e *events) PollEvents() bool {
	e.polls++
	return e.quitAt > 0 && e.polls >= e.quitAt
}

type drawer struct {
	draws int
	fail  func(n int) error
}

func (d *drawer) Draw() error {
	d.draws++
	if d.fail != nil {
		return d.fail(d.draws)
	}
	return nil
}

var errFrame = errors.New("frame failed")

func fastTime() *Time {
	return NewTime(TimeConfiguration{FramesPerSecond: 0})
}

func TestRunLoopQuit(t *testing.T) {
	c := qt.New(t)
	tm := fastTime()
	defer tm.Stop()

	ev := &events{quitAt: 4}
	d := &drawer{}
	stats, err := RunLoop(context.Background(), tm, ev, d, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(d.draws, qt.Equals, 3)
	c.Assert(stats, qt.Equals, LoopStats{Frames: 3})
}

func TestRunLoopToleratesFailures(t *testing.T) {
	c := qt.New(t)
	tm := fastTime()
	defer tm.Stop()

	// every other frame fails, never twice in a row
	ev := &events{quitAt: 11}
	d := &drawer{fail: func(n int) error {
		if n%2 == 0 {
			return errFrame
		}
		return nil
	}}
	stats, err := RunLoop(context.Background(), tm, ev, d, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(stats, qt.Equals, LoopStats{Frames: 5, Failed: 5})
}

func TestRunLoopAborts(t *testing.T) {
	c := qt.New(t)
	tm := fastTime()
	defer tm.Stop()

	d := &drawer{fail: func(n int) error {
		if n > 2 {
			return errFrame
		}
		return nil
	}}
	stats, err := RunLoop(context.Background(), tm, &events{}, d, 3)
	c.Assert(errors.Is(err, errFrame), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, "3 frames failed in a row: frame failed")
	c.Assert(stats, qt.Equals, LoopStats{Frames: 2, Failed: 3})
}

func TestRunLoopNeverAborts(t *testing.T) {
	c := qt.New(t)
	tm := fastTime()
	defer tm.Stop()

	ev := &events{quitAt: 51}
	d := &drawer{fail: func(int) error { return errFrame }}
	stats, err := RunLoop(context.Background(), tm, ev, d, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(stats.Failed, qt.Equals, int64(50))
}

func TestRunLoopContext(t *testing.T) {
	c := qt.New(t)
	tm := NewTime(TimeConfiguration{FramesPerSecond: 1})
	defer tm.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := RunLoop(ctx, tm, &events{}, &drawer{}, 0)
	c.Assert(err, qt.Equals, context.DeadlineExceeded)
}

func TestTime(t *testing.T) {
	c := qt.New(t)
	tm := NewTime(TimeConfiguration{FramesPerSecond: 50})
	defer tm.Stop()
	c.Assert(tm.Fps(), qt.Equals, 50)
	c.Assert(tm.Interval(), qt.Equals, 20*time.Millisecond)

	unlimited := NewTime(TimeConfiguration{})
	defer unlimited.Stop()
	c.Assert(unlimited.Interval(), qt.Equals, time.Nanosecond)
}
