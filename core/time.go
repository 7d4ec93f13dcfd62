package core

import (
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) Time {
	var interval time.Duration
	if cfg.FramesPerSecond > 0 {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}
	if interval <= 0 {
		interval = time.Nanosecond
	}

	return Time{
		fps:            cfg.FramesPerSecond,
		frameInterval:  interval,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: time.Duration(cfg.EventPollDelay) * time.Millisecond,
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps           int
	frameInterval time.Duration
	fpsTicker     *time.Ticker

	eventPollDelay time.Duration
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FrameInterval gets the time between two frames
func (t *Time) FrameInterval() time.Duration {
	return t.frameInterval
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventPollDelay gets how long to wait for events while loading
func (t *Time) EventPollDelay() time.Duration {
	return t.eventPollDelay
}

// Stop stops the tickers
func (t *Time) Stop() {
	t.fpsTicker.Stop()
}
