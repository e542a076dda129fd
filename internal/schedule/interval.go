package schedule

import (
	"time"
)

type IntervalStep struct {
	Time              time.Time
	Brightness        int
	TemperatureKelvin int
	// when this step should begin transitioning to the next step (percentage value for now)
	TransitionAt int
	Off          bool
}

// Interval is one slice of the day pattern; the lamp target is a linear
// interpolation between its two steps.
type Interval struct {
	Start IntervalStep
	End   IntervalStep
}

type LampTarget struct {
	Brightness  int
	Temperature int
	Off         bool
}

func (i Interval) CalculateTarget(timestamp time.Time) LampTarget {

	intervalDuration := i.End.Time.Sub(i.Start.Time)
	intervalProgress := timestamp.Sub(i.Start.Time)
	percentProgress := intervalProgress.Seconds() / intervalDuration.Seconds()

	if percentProgress < (float64(i.Start.TransitionAt) / 100) {
		percentProgress = 0
	}

	temperatureDiff := i.End.TemperatureKelvin - i.Start.TemperatureKelvin
	temperaturePercentageValue := float64(temperatureDiff) * percentProgress
	targetTemperature := i.Start.TemperatureKelvin + int(temperaturePercentageValue)

	brightnessDiff := i.End.Brightness - i.Start.Brightness
	brightnessPercentageValue := float64(brightnessDiff) * percentProgress
	targetBrightness := i.Start.Brightness + int(brightnessPercentageValue)

	return LampTarget{
		Brightness:  targetBrightness,
		Temperature: targetTemperature,
		Off:         i.Start.Off,
	}
}
