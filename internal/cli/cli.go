package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/3axap4eHko/litra/internal/concurrency"
	"github.com/3axap4eHko/litra/internal/constants"
	"github.com/3axap4eHko/litra/internal/device"
	"github.com/3axap4eHko/litra/internal/models"
	"github.com/3axap4eHko/litra/internal/protocol"
	"github.com/3axap4eHko/litra/internal/schedule"
)

// process exit codes for headless mode
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

type Flags struct {
	On          bool
	Off         bool
	Toggle      bool
	Brightness  int
	Temperature int
	Adaptive    bool
	Status      bool
	Help        bool

	brightnessSet  bool
	temperatureSet bool
	order          []string
}

// Parse reads the command line. Mutating flags are remembered in argument
// order so combined commands apply left to right.
func Parse(args []string, usageOut io.Writer) (*Flags, error) {
	f := &Flags{}

	fs := pflag.NewFlagSet("litra", pflag.ContinueOnError)
	fs.SetOutput(usageOut)
	fs.BoolVar(&f.On, "on", false, "Turn the lamp on")
	fs.BoolVar(&f.Off, "off", false, "Turn the lamp off")
	fs.BoolVar(&f.Toggle, "toggle", false, "Toggle lamp power")
	fs.IntVar(&f.Brightness, "brightness", 0, "Set brightness (0-100)")
	fs.IntVar(&f.Temperature, "temperature", 0, "Set color temperature (2700-6500)")
	fs.BoolVar(&f.Adaptive, "adaptive", false, "Apply the daylight-adaptive target for the current time")
	fs.BoolVar(&f.Status, "status", false, "Show current lamp status as JSON")
	fs.BoolVarP(&f.Help, "help", "h", false, "Show this help")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	f.brightnessSet = fs.Changed("brightness")
	f.temperatureSet = fs.Changed("temperature")
	f.order = mutatingFlagOrder(args)
	return f, nil
}

// HasCommands reports whether any flag was given; no flags means GUI mode.
func (f *Flags) HasCommands() bool {
	return f.On || f.Off || f.Toggle || f.brightnessSet || f.temperatureSet || f.Adaptive || f.Status || f.Help
}

func Usage(out io.Writer) {
	fmt.Fprintln(out, "Usage: litra [flags]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Controls a Logitech Litra Glow. Without flags a GUI is shown.")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "  --on                   Turn the lamp on")
	fmt.Fprintln(out, "  --off                  Turn the lamp off")
	fmt.Fprintln(out, "  --toggle               Toggle lamp power")
	fmt.Fprintln(out, "  --brightness <0-100>   Set brightness (percentage)")
	fmt.Fprintln(out, "  --temperature <K>      Set color temperature (2700-6500)")
	fmt.Fprintln(out, "  --adaptive             Apply the daylight-adaptive target for now")
	fmt.Fprintln(out, "  --status               Show current lamp status as JSON")
	fmt.Fprintln(out, "  --help                 Show this help")
}

func mutatingFlagOrder(args []string) []string {
	known := []string{"on", "off", "toggle", "brightness", "temperature", "adaptive"}
	order := []string{}
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if lo.Contains(known, name) && !lo.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}

type settingsStore interface {
	Load() (models.DeviceState, bool, error)
	Save(models.DeviceState) error
}

type targetGetter interface {
	GetTargetForTime(t time.Time) (schedule.LampTarget, error)
}

// Runner executes one headless invocation against the lamp and exits.
type Runner struct {
	logger *log.Logger
	open   device.OpenFunc
	store  settingsStore
	sched  targetGetter
	stdout io.Writer
}

func NewRunner(logger *log.Logger, open device.OpenFunc, store settingsStore, sched targetGetter, stdout io.Writer) *Runner {
	return &Runner{logger: logger, open: open, store: store, sched: sched, stdout: stdout}
}

// Run applies the mutating flags in argument order, then answers --status,
// and returns the process exit code.
func (r *Runner) Run(flags *Flags) int {
	if flags.Help {
		Usage(r.stdout)
		return ExitOK
	}

	lamp, err := r.open()
	if err != nil {
		r.logger.Errorf("failed to open device: %v", err)
		return ExitError
	}
	defer lamp.Close()

	mirror, found, err := r.store.Load()
	if err != nil {
		r.logger.Error(err)
	}
	if !found {
		mirror = models.DefaultState()
	}

	mutated := false
	for _, op := range flags.order {
		if err := r.applyOp(lamp, op, flags, &mirror); err != nil {
			r.logger.Error(err)
			return ExitError
		}
		mutated = true
	}
	if mutated {
		if err := r.store.Save(mirror); err != nil {
			r.logger.Error(err)
		}
	}

	if flags.Status {
		if err := r.printStatus(lamp); err != nil {
			r.logger.Error(err)
			return ExitError
		}
	}

	return ExitOK
}

func (r *Runner) applyOp(lamp device.Lamp, op string, flags *Flags, mirror *models.DeviceState) error {
	switch op {
	case "on":
		mirror.Power = true
		return lamp.Send(protocol.SetPower(true))

	case "off":
		mirror.Power = false
		return lamp.Send(protocol.SetPower(false))

	case "toggle":
		on, ok, err := r.queryPower(lamp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no power report received from lamp")
		}
		mirror.Power = !on
		return lamp.Send(protocol.SetPower(!on))

	case "brightness":
		pct := lo.Clamp(flags.Brightness, 0, 100)
		mirror.Brightness = pct
		return lamp.Send(protocol.SetBrightness(protocol.BrightnessFromPercent(pct)))

	case "temperature":
		kelvin := protocol.ClampTemperature(flags.Temperature)
		mirror.Temperature = int(kelvin)
		return lamp.Send(protocol.SetTemperature(kelvin))

	case "adaptive":
		target, err := r.sched.GetTargetForTime(time.Now())
		if err != nil {
			return err
		}
		if target.Off {
			mirror.Power = false
			return lamp.Send(protocol.SetPower(false))
		}
		pct := lo.Clamp(target.Brightness, 0, 100)
		kelvin := protocol.ClampTemperature(target.Temperature)
		mirror.Brightness = pct
		mirror.Temperature = int(kelvin)
		if err := lamp.Send(protocol.SetBrightness(protocol.BrightnessFromPercent(pct))); err != nil {
			return err
		}
		time.Sleep(constants.CommandSpacing)
		return lamp.Send(protocol.SetTemperature(kelvin))
	}
	return nil
}

func (r *Runner) queryPower(lamp device.Lamp) (bool, bool, error) {
	if err := lamp.Send(protocol.GetPower()); err != nil {
		return false, false, err
	}
	for round := 0; round < constants.StatusPollRounds; round++ {
		time.Sleep(constants.ReadTimeout)
		resp, ok, err := lamp.TryRead()
		if err != nil {
			return false, false, err
		}
		if ok && resp.Kind == protocol.RespPower {
			return resp.On, true, nil
		}
	}
	return false, false, nil
}

// statusPayload keeps the three-key JSON schema while allowing null for
// values the lamp never reported.
type statusPayload struct {
	Power       *bool `json:"power"`
	Brightness  *int  `json:"brightness"`
	Temperature *int  `json:"temperature"`
}

func (r *Runner) printStatus(lamp device.Lamp) error {
	tw := concurrency.NewThrottledWorker(constants.CommandSpacing, lamp.Send)
	err := tw.Run([]protocol.Command{
		protocol.GetPower(),
		protocol.GetBrightness(),
		protocol.GetTemperature(),
	})
	if err != nil {
		return err
	}

	var payload statusPayload
	for round := 0; round < constants.StatusPollRounds; round++ {
		time.Sleep(constants.ReadTimeout)
		for {
			resp, ok, err := lamp.TryRead()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			switch resp.Kind {
			case protocol.RespPower:
				payload.Power = lo.ToPtr(resp.On)
			case protocol.RespBrightness:
				payload.Brightness = lo.ToPtr(protocol.BrightnessToPercent(resp.Value))
			case protocol.RespTemperature:
				payload.Temperature = lo.ToPtr(int(resp.Value))
			}
		}
		if payload.Power != nil && payload.Brightness != nil && payload.Temperature != nil {
			break
		}
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.stdout, string(out))
	return nil
}
