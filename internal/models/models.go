package models

// DeviceState is the lamp state mirrored by the application: power,
// brightness as a percentage and colour temperature in Kelvin.
// Its JSON form is the --status output schema.
type DeviceState struct {
	Power       bool `json:"power"`
	Brightness  int  `json:"brightness"`
	Temperature int  `json:"temperature"`
}

// DefaultState is what the mirror starts from before the lamp has ever
// been seen: off, mid brightness, mid temperature.
func DefaultState() DeviceState {
	return DeviceState{Power: false, Brightness: 50, Temperature: 4600}
}

// a single step in an adaptive day pattern, e.g. {Time: "sunrise+2h"}
type DayPatternStep struct {
	Time        string `json:"time"`
	Temperature int    `json:"temperature"`
	Brightness  int    `json:"brightness"`
	// when this step should begin transitioning to the next step (percentage value for now)
	TransitionAt int  `json:"transitionAt"`
	Off          bool `json:"off"`
}

type DayPattern struct {
	Type       string `json:"type"`
	SunriseMin string `json:"sunriseMin"`
	SunriseMax string `json:"sunriseMax"`
	SunsetMin  string `json:"sunsetMin"`
	SunsetMax  string `json:"sunsetMax"`

	Default DayPatternStep   `json:"default"`
	Pattern []DayPatternStep `json:"pattern"`
}
