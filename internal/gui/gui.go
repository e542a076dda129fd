package gui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"github.com/3axap4eHko/litra/internal/config"
	"github.com/3axap4eHko/litra/internal/constants"
	"github.com/3axap4eHko/litra/internal/litra"
	"github.com/3axap4eHko/litra/internal/protocol"
	"github.com/3axap4eHko/litra/internal/schedule"
	"github.com/3axap4eHko/litra/internal/state"
)

const windowWidth = 360
const windowHeight = 240

type targetGetter interface {
	GetTargetForTime(t time.Time) (schedule.LampTarget, error)
}

// Shell is the windowed front end: it renders the mirrored lamp state,
// forwards slider/switch input to the controller and lives in the system
// tray between uses.
type Shell struct {
	logger *log.Logger
	cfg    *config.Config
	ctrl   *litra.Controller
	cell   *state.Cell
	sched  targetGetter

	app fyne.App
	win fyne.Window

	power       *widget.Check
	brightness  *widget.Slider
	temperature *widget.Slider
	status      *widget.Label
	adaptive    *widget.Check

	// user input is ignored until the lamp has reported its state once
	initialized atomic.Bool
	// guards against change callbacks fired by programmatic updates
	updating        atomic.Bool
	adaptiveEnabled atomic.Bool
	initEvents      int
}

func NewShell(logger *log.Logger, cfg *config.Config, ctrl *litra.Controller, cell *state.Cell, sched targetGetter) *Shell {
	return &Shell{logger: logger, cfg: cfg, ctrl: ctrl, cell: cell, sched: sched}
}

// Run builds the window and tray and blocks until the app quits.
func (s *Shell) Run(ctx context.Context) {
	s.app = app.NewWithID("com.3axap4eHko.litra")
	s.win = s.app.NewWindow("Litra Glow")
	s.win.Resize(fyne.NewSize(windowWidth, windowHeight))
	s.win.SetFixedSize(true)

	s.buildContent()
	s.setupTray()

	s.win.SetCloseIntercept(func() {
		s.win.Hide()
	})

	go s.pumpEvents(ctx)
	go s.runAdaptive(ctx)

	// fyne offers no window-positioning API, so centering on the active
	// screen is the only placement available
	s.win.CenterOnScreen()
	s.win.ShowAndRun()
}

func (s *Shell) buildContent() {
	initial := s.cell.Get()

	s.status = widget.NewLabel("Connecting...")

	s.power = widget.NewCheck("On", func(on bool) {
		if !s.initialized.Load() || s.updating.Load() {
			return
		}
		s.logger.Debug("power toggled", "on", on)
		s.disableAdaptive()
		s.ctrl.SetPower(on)
	})
	s.power.SetChecked(initial.Power)

	s.brightness = widget.NewSlider(0, 100)
	s.brightness.Step = 1
	s.brightness.Value = float64(initial.Brightness)
	s.brightness.OnChangeEnded = func(v float64) {
		if !s.initialized.Load() || s.updating.Load() {
			return
		}
		s.logger.Debug("brightness changed", "value", v)
		s.disableAdaptive()
		s.ctrl.SetBrightness(int(v))
	}

	s.temperature = widget.NewSlider(protocol.MinTemperature, protocol.MaxTemperature)
	s.temperature.Step = protocol.TemperatureStep
	s.temperature.Value = float64(initial.Temperature)
	s.temperature.OnChangeEnded = func(v float64) {
		if !s.initialized.Load() || s.updating.Load() {
			return
		}
		s.logger.Debug("temperature changed", "value", v)
		s.disableAdaptive()
		s.ctrl.SetTemperature(int(v))
	}

	s.adaptive = widget.NewCheck("Follow daylight", func(on bool) {
		if s.updating.Load() {
			return
		}
		s.adaptiveEnabled.Store(on)
		if on {
			go s.applyAdaptiveTarget()
		}
	})
	s.adaptiveEnabled.Store(s.cfg.Adaptive.Enabled)
	s.adaptive.SetChecked(s.cfg.Adaptive.Enabled)

	s.win.SetContent(container.NewVBox(
		s.status,
		s.power,
		widget.NewLabel("Brightness"),
		s.brightness,
		widget.NewLabel("Temperature"),
		s.temperature,
		s.adaptive,
	))
}

func (s *Shell) setupTray() {
	desk, ok := s.app.(desktop.App)
	if !ok {
		s.logger.Debug("no system tray support on this platform")
		return
	}

	menuShow := fyne.NewMenuItem("Show", func() {
		s.win.Show()
		s.win.RequestFocus()
		s.win.CenterOnScreen()
		s.ctrl.Requery()
	})
	menuHide := fyne.NewMenuItem("Hide", func() {
		s.win.Hide()
	})
	menuQuit := fyne.NewMenuItem("Quit", func() {
		s.app.Quit()
	})
	desk.SetSystemTrayMenu(fyne.NewMenu("Litra Glow", menuShow, menuHide, menuQuit))
	desk.SetSystemTrayIcon(theme.ColorChromaticIcon())
	s.logger.Debug("tray icon created")
}

// pumpEvents mirrors controller events into the widgets.
func (s *Shell) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.ctrl.Events():
			s.handleEvent(e)
		}
	}
}

func (s *Shell) handleEvent(e litra.Event) {
	fyne.Do(func() {
		s.updating.Store(true)
		defer s.updating.Store(false)

		switch e.Type {
		case litra.EventConnected:
			s.status.SetText("")

		case litra.EventPower:
			s.power.SetChecked(e.On)
			s.countInitEvent()

		case litra.EventBrightness:
			s.brightness.SetValue(float64(e.Value))
			s.countInitEvent()

		case litra.EventTemperature:
			s.temperature.SetValue(float64(e.Value))
			s.countInitEvent()

		case litra.EventError:
			s.status.SetText(e.Message)
		}
	})
}

func (s *Shell) countInitEvent() {
	if s.initialized.Load() {
		return
	}
	s.initEvents++
	if s.initEvents >= 2 {
		s.logger.Debug("initial lamp state received")
		s.initialized.Store(true)
	}
}

// runAdaptive nudges the lamp toward the daylight target once a minute
// while the mode is enabled.
func (s *Shell) runAdaptive(ctx context.Context) {
	ticker := time.NewTicker(constants.AdaptiveUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.adaptiveEnabled.Load() {
				s.applyAdaptiveTarget()
			}
		}
	}
}

func (s *Shell) applyAdaptiveTarget() {
	target, err := s.sched.GetTargetForTime(time.Now())
	if err != nil {
		s.logger.Errorf("adaptive target: %v", err)
		fyne.Do(func() {
			s.status.SetText(fmt.Sprintf("Adaptive mode: %v", err))
		})
		return
	}

	s.logger.Debug("applying adaptive target", "brightness", target.Brightness, "temperature", target.Temperature, "off", target.Off)
	if target.Off {
		s.ctrl.SetPower(false)
		return
	}
	s.ctrl.SetBrightness(target.Brightness)
	s.ctrl.SetTemperature(target.Temperature)
}

// disableAdaptive runs on the UI goroutine, from the widget callbacks.
func (s *Shell) disableAdaptive() {
	if s.adaptiveEnabled.CompareAndSwap(true, false) {
		s.logger.Debug("manual change, disabling adaptive mode")
		s.updating.Store(true)
		defer s.updating.Store(false)
		s.adaptive.SetChecked(false)
	}
}
