package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nathan-osman/go-sunrise"
	"github.com/spf13/viper"

	"github.com/3axap4eHko/litra/internal/models"
)

type ScheduleService struct {
	logger *log.Logger
}

func NewScheduleService(logger *log.Logger) *ScheduleService {
	return &ScheduleService{logger: logger}
}

func (s *ScheduleService) getDayPattern() models.DayPattern {
	var dayPattern models.DayPattern
	if err := viper.UnmarshalKey("dayPattern", &dayPattern); err != nil {
		s.logger.Errorf("error reading day pattern from config: %v", err)
	}
	return dayPattern
}

// CalculateSunriseSunset computes the local sunrise and sunset for the
// configured geo location, clamped to the pattern's min/max bounds.
func (s *ScheduleService) CalculateSunriseSunset(pattern models.DayPattern, baseDate time.Time) (time.Time, time.Time, error) {
	latLng := strings.Split(viper.GetString("geoLocation"), ",")
	if len(latLng) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid geoLocation %q, expected \"lat,lng\"", viper.GetString("geoLocation"))
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(latLng[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(latLng[1]), 64)
	if errLat != nil || errLng != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid geoLocation %q, expected \"lat,lng\"", viper.GetString("geoLocation"))
	}

	rise, set := sunrise.SunriseSunset(
		lat, lng,
		baseDate.Year(), baseDate.Month(), baseDate.Day(),
	)
	s.logger.Debug("Calculated local sunrise and sunset",
		"sunrise", rise.Local().Format("15:04"),
		"sunset", set.Local().Format("15:04"),
	)

	if pattern.SunriseMin != "" {
		if m := TimeFromConfigTimeString(pattern.SunriseMin, baseDate); rise.Before(m) {
			rise = m
		}
	}
	if pattern.SunriseMax != "" {
		if m := TimeFromConfigTimeString(pattern.SunriseMax, baseDate); rise.After(m) {
			rise = m
		}
	}
	if pattern.SunsetMin != "" {
		if m := TimeFromConfigTimeString(pattern.SunsetMin, baseDate); set.Before(m) {
			set = m
		}
	}
	if pattern.SunsetMax != "" {
		if m := TimeFromConfigTimeString(pattern.SunsetMax, baseDate); set.After(m) {
			set = m
		}
	}

	return rise, set, nil
}

// GetTargetForTime resolves the configured day pattern to the lamp state
// the adaptive mode wants at time t.
func (s *ScheduleService) GetTargetForTime(t time.Time) (LampTarget, error) {
	interval, err := s.GetIntervalForTime(t)
	if err != nil {
		return LampTarget{}, err
	}
	return interval.CalculateTarget(t), nil
}

func (s *ScheduleService) GetIntervalForTime(t time.Time) (*Interval, error) {

	pattern := s.getDayPattern()
	if len(pattern.Pattern) == 0 {
		return nil, fmt.Errorf("day pattern has no steps")
	}

	// insert midnight->firstStep
	if pattern.Pattern[0].Time != "startofday" {
		pattern.Pattern = append([]models.DayPatternStep{
			{
				Time:        "startofday",
				Temperature: pattern.Default.Temperature,
				Brightness:  pattern.Default.Brightness,
			},
		}, pattern.Pattern...)
	}

	// append lastStep->end of day
	if pattern.Pattern[len(pattern.Pattern)-1].Time != "endofday" {
		pattern.Pattern = append(pattern.Pattern, models.DayPatternStep{
			Time:        "endofday",
			Temperature: pattern.Default.Temperature,
			Brightness:  pattern.Default.Brightness,
		})
	}

	var rise, set time.Time
	if pattern.Type == "dynamic" {
		var err error
		rise, set, err = s.CalculateSunriseSunset(pattern, t)
		if err != nil {
			return nil, fmt.Errorf("error calculating sunrise and sunset: %w", err)
		}
	}

	for i, startStep := range pattern.Pattern {

		if i == len(pattern.Pattern)-1 {
			break
		}

		startTime := TimeFromPattern(startStep.Time, rise, set, t)

		endStep := pattern.Pattern[i+1]
		endTime := TimeFromPattern(endStep.Time, rise, set, t)

		if t.Compare(startTime) > -1 && t.Before(endTime) {
			// we are in this day pattern interval
			currentInterval := Interval{
				Start: IntervalStep{
					Time:              startTime,
					Brightness:        startStep.Brightness,
					TemperatureKelvin: startStep.Temperature,
					TransitionAt:      startStep.TransitionAt,
					Off:               startStep.Off,
				},
				End: IntervalStep{
					Time:              endTime,
					Brightness:        endStep.Brightness,
					TemperatureKelvin: endStep.Temperature,
					TransitionAt:      startStep.TransitionAt,
					Off:               endStep.Off,
				},
			}
			s.logger.Debug("The currently active pattern interval is", "from", currentInterval.Start, "to", currentInterval.End)

			return &currentInterval, nil
		}
	}

	return nil, fmt.Errorf("no interval covers %s, invalid day pattern", t.Format("15:04"))
}

func TimeFromPattern(patternTime string, rise time.Time, set time.Time, baseDate time.Time) time.Time {

	// sunrise or sunrise offset
	if strings.Contains(patternTime, "sunrise") {
		return timeFromAstronomicalPatternTime(patternTime, "sunrise", rise)
	}

	// sunset or sunset offset
	if strings.Contains(patternTime, "sunset") {
		return timeFromAstronomicalPatternTime(patternTime, "sunset", set)
	}

	if patternTime == "startofday" {
		return time.Date(baseDate.Year(), baseDate.Month(), baseDate.Day(), 0, 0, 0, 0, time.Local)
	}

	if patternTime == "endofday" {
		return time.Date(baseDate.Year(), baseDate.Month(), baseDate.Day(), 23, 59, 59, 999999000, time.Local)
	}

	// time e.g 19:30
	return TimeFromConfigTimeString(patternTime, baseDate)
}

// returns a Time object built from the supplied time string (e.g. "06:30") and a base date
func TimeFromConfigTimeString(timeString string, baseDate time.Time) time.Time {
	timeHM := strings.Split(timeString, ":")
	hour, _ := strconv.Atoi(timeHM[0])
	mins := 0
	if len(timeHM) > 1 {
		mins, _ = strconv.Atoi(timeHM[1])
	}
	return time.Date(baseDate.Year(), baseDate.Month(), baseDate.Day(), hour, mins, 0, 0, time.Local)
}

// returns an adjusted eventTime e.g ("sunset-1h", "sunset", 2023-06-27 21:43:18) -> 2023-06-27 20:43:18
func timeFromAstronomicalPatternTime(patternTime string, event string, eventTime time.Time) time.Time {
	if patternTime == event {
		return eventTime
	}
	offset, _ := time.ParseDuration(patternTime[len(event):])
	return eventTime.Add(offset)
}
