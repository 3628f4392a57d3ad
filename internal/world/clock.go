package world

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type TimeOfDay string

const (
	Dawn      TimeOfDay = "dawn"      // 05:00-07:00
	Morning   TimeOfDay = "morning"   // 07:00-12:00
	Noon      TimeOfDay = "noon"      // 12:00-14:00
	Afternoon TimeOfDay = "afternoon" // 14:00-18:00
	Evening   TimeOfDay = "evening"   // 18:00-20:00
	Night     TimeOfDay = "night"     // 20:00-05:00
)

// TimeInfo is a one-shot snapshot of in-world time.
type TimeInfo struct {
	Time      time.Time `json:"time"`
	Day       int       `json:"day"`
	TimeOfDay TimeOfDay `json:"time_of_day"`
	IsDaytime bool      `json:"is_daytime"`
	Clock     string    `json:"clock"` // "HH:MM"
}

// Clock maps wall time onto accelerated in-world time. One real minute is
// timeScale in-world minutes. Pausing freezes in-world time; the paused
// span is subtracted once the clock resumes.
type Clock struct {
	mu               sync.Mutex
	timeScale        float64
	startReal        time.Time
	startWorld       time.Time
	genesis          time.Time // day 1 reference, never rebased
	paused           bool
	pausedAt         time.Time
	accumulatedPause time.Duration
	nowFn            func() time.Time
}

func NewClock(timeScale float64, startWorld time.Time) *Clock {
	c := &Clock{
		timeScale:  timeScale,
		startWorld: startWorld,
		genesis:    startWorld,
		nowFn:      time.Now,
	}
	c.startReal = c.nowFn()
	return c
}

// Now returns the current in-world time. While paused it keeps returning
// the time at which the clock was paused.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() time.Time {
	var realDelta time.Duration
	if c.paused {
		realDelta = c.pausedAt.Sub(c.startReal) - c.accumulatedPause
	} else {
		realDelta = c.nowFn().Sub(c.startReal) - c.accumulatedPause
	}
	worldDelta := time.Duration(float64(realDelta) * c.timeScale)
	return c.startWorld.Add(worldDelta)
}

// Snapshot returns the full time info in one locked read.
func (c *Clock) Snapshot() TimeInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowLocked()
	day := int(now.Sub(c.genesis).Hours()/24) + 1
	return TimeInfo{
		Time:      now,
		Day:       day,
		TimeOfDay: timeOfDay(now.Hour()),
		IsDaytime: now.Hour() >= 6 && now.Hour() < 22,
		Clock:     now.Format("15:04"),
	}
}

func timeOfDay(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 7:
		return Dawn
	case hour >= 7 && hour < 12:
		return Morning
	case hour >= 12 && hour < 14:
		return Noon
	case hour >= 14 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 20:
		return Evening
	default:
		return Night
	}
}

func (c *Clock) IsDaytime() bool {
	h := c.Now().Hour()
	return h >= 6 && h < 22
}

func (c *Clock) IsWorkingHours() bool {
	h := c.Now().Hour()
	return h >= 9 && h < 18
}

func (c *Clock) IsSleepingHours() bool {
	h := c.Now().Hour()
	return h >= 23 || h < 6
}

func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.pausedAt = c.nowFn()
	slog.Info("world clock paused")
}

func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	pauseSpan := c.nowFn().Sub(c.pausedAt)
	c.accumulatedPause += pauseSpan
	c.paused = false
	slog.Info("world clock resumed", "paused_for", pauseSpan)
}

func (c *Clock) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Clock) TimeScale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeScale
}

// SetTimeScale rebases the clock so the current in-world time is preserved
// across the scale change.
func (c *Clock) SetTimeScale(scale float64) error {
	if scale < 1 || scale > 100 {
		return fmt.Errorf("time scale must be 1-100, got %g", scale)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowLocked()
	c.startWorld = now
	c.startReal = c.nowFn()
	c.accumulatedPause = 0
	if c.paused {
		c.pausedAt = c.startReal
	}
	old := c.timeScale
	c.timeScale = scale
	slog.Info("time scale changed", "old", old, "new", scale)
	return nil
}
