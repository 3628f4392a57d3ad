package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var worldStart = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

// fakeClock returns a Clock whose wall time is controlled by the returned
// setter.
func fakeClock(t *testing.T, scale float64) (*Clock, func(d time.Duration)) {
	t.Helper()
	real := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Clock{
		timeScale:  scale,
		startWorld: worldStart,
		genesis:    worldStart,
		nowFn:      func() time.Time { return real },
	}
	c.startReal = real
	return c, func(d time.Duration) { real = real.Add(d) }
}

func TestClock_ScaledTime(t *testing.T) {
	c, advance := fakeClock(t, 10)

	assert.Equal(t, worldStart, c.Now())

	// One real minute is ten world minutes
	advance(time.Minute)
	assert.Equal(t, worldStart.Add(10*time.Minute), c.Now())
}

func TestClock_PauseFreezesTime(t *testing.T) {
	c, advance := fakeClock(t, 10)

	advance(time.Minute)
	c.Pause()
	frozen := c.Now()

	advance(time.Hour)
	assert.Equal(t, frozen, c.Now())

	c.Resume()
	advance(time.Minute)
	assert.Equal(t, frozen.Add(10*time.Minute), c.Now())
}

func TestClock_DayNumber(t *testing.T) {
	c, advance := fakeClock(t, 10)

	assert.Equal(t, 1, c.Snapshot().Day)

	// 144 real minutes = 1440 world minutes = 1 day
	advance(144 * time.Minute)
	assert.Equal(t, 2, c.Snapshot().Day)
}

func TestClock_SetTimeScalePreservesNow(t *testing.T) {
	c, advance := fakeClock(t, 10)

	advance(30 * time.Minute)
	before := c.Now()

	require.NoError(t, c.SetTimeScale(50))
	assert.WithinDuration(t, before, c.Now(), time.Second)

	advance(time.Minute)
	assert.Equal(t, before.Add(50*time.Minute), c.Now())
}

func TestClock_SetTimeScaleRange(t *testing.T) {
	c, _ := fakeClock(t, 10)
	assert.Error(t, c.SetTimeScale(0))
	assert.Error(t, c.SetTimeScale(101))
	assert.NoError(t, c.SetTimeScale(1))
}

func TestTimeOfDay(t *testing.T) {
	cases := []struct {
		hour int
		want TimeOfDay
	}{
		{5, Dawn}, {6, Dawn},
		{7, Morning}, {11, Morning},
		{12, Noon}, {13, Noon},
		{14, Afternoon}, {17, Afternoon},
		{18, Evening}, {19, Evening},
		{20, Night}, {23, Night}, {0, Night}, {4, Night},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, timeOfDay(tc.hour), "hour %d", tc.hour)
	}
}

func TestClock_HourWindows(t *testing.T) {
	c, advance := fakeClock(t, 1)

	// Starts at 08:00: daytime, not working-sleep boundaries
	assert.True(t, c.IsDaytime())
	assert.False(t, c.IsWorkingHours())
	assert.False(t, c.IsSleepingHours())

	advance(2 * time.Hour) // 10:00
	assert.True(t, c.IsWorkingHours())

	advance(13 * time.Hour) // 23:00
	assert.True(t, c.IsSleepingHours())
	assert.False(t, c.IsDaytime())
}
