// Package schedule assigns send-times to queue entries. A single pacing
// cursor threads through calls as an explicit value so the whole queue obeys
// one global spacing guarantee and tests can drive it with an injected clock.
package schedule

import (
	"sort"
	"time"
)

// Config bounds the submission pace.
type Config struct {
	MinGap       time.Duration `mapstructure:"min-gap"`
	MaxPerWindow int           `mapstructure:"max-per-window"`
	Window       time.Duration `mapstructure:"window"`
	RetryDelay   time.Duration `mapstructure:"retry-delay"`
	MaxRetries   int           `mapstructure:"max-retries"`
}

// DefaultConfig paces at most twenty submissions a day, ten minutes apart.
func DefaultConfig() Config {
	return Config{
		MinGap:       10 * time.Minute,
		MaxPerWindow: 20,
		Window:       24 * time.Hour,
		RetryDelay:   45 * time.Minute,
		MaxRetries:   2,
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MinGap <= 0 {
		c.MinGap = d.MinGap
	}
	if c.MaxPerWindow <= 0 {
		c.MaxPerWindow = d.MaxPerWindow
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	return c
}

// State is the pacing cursor persisted between runs. The zero value seeds
// the cursor at the current time on first use.
type State struct {
	Cursor      time.Time `yaml:"cursor"`
	WindowStart time.Time `yaml:"window_start"`
	WindowCount int       `yaml:"window_count"`
}

// NextSlot returns the next allowed send-time and the advanced cursor state.
// Consecutive slots are never closer than MinGap and never exceed
// MaxPerWindow per pacing window.
func NextSlot(state State, cfg Config, now time.Time) (time.Time, State) {
	cfg = cfg.WithDefaults()

	candidate := now
	if !state.Cursor.IsZero() {
		next := state.Cursor.Add(cfg.MinGap)
		if next.After(candidate) {
			candidate = next
		}
	}

	windowStart := candidate.Truncate(cfg.Window)
	count := state.WindowCount
	if !windowStart.Equal(state.WindowStart) {
		count = 0
	}
	if count >= cfg.MaxPerWindow {
		candidate = windowStart.Add(cfg.Window)
		if floor := state.Cursor.Add(cfg.MinGap); !state.Cursor.IsZero() && floor.After(candidate) {
			candidate = floor
		}
		windowStart = candidate.Truncate(cfg.Window)
		count = 0
	}

	return candidate, State{
		Cursor:      candidate,
		WindowStart: windowStart,
		WindowCount: count + 1,
	}
}

// RetrySlot finds a send-time for a retry near the desired instant without
// consuming a pacing slot, pushed forward as needed to keep MinGap clearance
// from every other scheduled entry.
func RetrySlot(desired time.Time, scheduled []time.Time, cfg Config) time.Time {
	cfg = cfg.WithDefaults()

	times := make([]time.Time, len(scheduled))
	copy(times, scheduled)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	slot := desired
	for _, t := range times {
		gap := slot.Sub(t)
		if gap < 0 {
			gap = -gap
		}
		if gap < cfg.MinGap {
			slot = t.Add(cfg.MinGap)
		}
	}
	return slot
}
