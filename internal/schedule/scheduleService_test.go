package schedule_test

import (
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3axap4eHko/litra/internal/schedule"
)

func fixedPattern() map[string]any {
	return map[string]any{
		"type": "fixed",
		"default": map[string]any{
			"temperature": 2700,
			"brightness":  40,
		},
		"pattern": []map[string]any{
			{"time": "08:00", "temperature": 4000, "brightness": 60},
			{"time": "12:00", "temperature": 6500, "brightness": 100},
			{"time": "20:00", "temperature": 2700, "brightness": 40},
		},
	}
}

func newService(t *testing.T, pattern map[string]any) *schedule.ScheduleService {
	t.Helper()
	viper.Reset()
	viper.Set("dayPattern", pattern)
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	return schedule.NewScheduleService(logger)
}

func Test_GetIntervalForTime(t *testing.T) {

	t.Run("before the first step: interval runs from start of day at default values", func(t *testing.T) {
		s := newService(t, fixedPattern())

		interval, err := s.GetIntervalForTime(time.Date(2023, 6, 1, 6, 0, 0, 0, time.Local))

		require.NoError(t, err)
		assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.Local), interval.Start.Time)
		assert.Equal(t, 2700, interval.Start.TemperatureKelvin)
		assert.Equal(t, time.Date(2023, 6, 1, 8, 0, 0, 0, time.Local), interval.End.Time)
		assert.Equal(t, 4000, interval.End.TemperatureKelvin)
	})

	t.Run("mid pattern: interval spans the surrounding steps", func(t *testing.T) {
		s := newService(t, fixedPattern())

		interval, err := s.GetIntervalForTime(time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local))

		require.NoError(t, err)
		assert.Equal(t, time.Date(2023, 6, 1, 8, 0, 0, 0, time.Local), interval.Start.Time)
		assert.Equal(t, time.Date(2023, 6, 1, 12, 0, 0, 0, time.Local), interval.End.Time)
		assert.Equal(t, 6500, interval.End.TemperatureKelvin)
	})

	t.Run("after the last step: interval runs to end of day at default values", func(t *testing.T) {
		s := newService(t, fixedPattern())

		interval, err := s.GetIntervalForTime(time.Date(2023, 6, 1, 22, 0, 0, 0, time.Local))

		require.NoError(t, err)
		assert.Equal(t, time.Date(2023, 6, 1, 20, 0, 0, 0, time.Local), interval.Start.Time)
		assert.Equal(t, 2700, interval.End.TemperatureKelvin)
		assert.Equal(t, 40, interval.End.Brightness)
	})

	t.Run("empty pattern is an error", func(t *testing.T) {
		s := newService(t, map[string]any{"type": "fixed"})

		_, err := s.GetIntervalForTime(time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local))

		assert.Error(t, err)
	})

	t.Run("dynamic pattern without a geo location is an error", func(t *testing.T) {
		pattern := fixedPattern()
		pattern["type"] = "dynamic"
		s := newService(t, pattern)

		_, err := s.GetIntervalForTime(time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local))

		assert.Error(t, err)
	})
}

func Test_GetTargetForTime(t *testing.T) {

	t.Run("interpolates between the surrounding steps", func(t *testing.T) {
		s := newService(t, fixedPattern())

		target, err := s.GetTargetForTime(time.Date(2023, 6, 1, 10, 0, 0, 0, time.Local))

		require.NoError(t, err)
		assert.Equal(t, 5250, target.Temperature)
		assert.Equal(t, 80, target.Brightness)
	})
}

func Test_TimeFromPattern(t *testing.T) {

	baseDate := time.Date(2023, 6, 1, 0, 0, 0, 0, time.Local)
	rise := time.Date(2023, 6, 1, 4, 45, 0, 0, time.Local)
	set := time.Date(2023, 6, 1, 21, 30, 0, 0, time.Local)

	tests := []struct {
		patternTime string
		expected    time.Time
	}{
		{patternTime: "sunrise", expected: rise},
		{patternTime: "sunrise+2h", expected: rise.Add(2 * time.Hour)},
		{patternTime: "sunset", expected: set},
		{patternTime: "sunset-1h30m", expected: set.Add(-90 * time.Minute)},
		{patternTime: "startofday", expected: time.Date(2023, 6, 1, 0, 0, 0, 0, time.Local)},
		{patternTime: "19:30", expected: time.Date(2023, 6, 1, 19, 30, 0, 0, time.Local)},
	}

	for _, test := range tests {
		t.Run(test.patternTime, func(t *testing.T) {
			assert.Equal(t, test.expected, schedule.TimeFromPattern(test.patternTime, rise, set, baseDate))
		})
	}
}
