package litra

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/3axap4eHko/litra/internal/concurrency"
	"github.com/3axap4eHko/litra/internal/constants"
	"github.com/3axap4eHko/litra/internal/device"
	"github.com/3axap4eHko/litra/internal/models"
	"github.com/3axap4eHko/litra/internal/protocol"
	"github.com/3axap4eHko/litra/internal/state"
)

type EventType int

const (
	EventConnected EventType = iota
	EventPower
	EventBrightness
	EventTemperature
	EventError
)

// Event is pushed to the UI whenever the lamp (or its connection) changes.
// Value carries a brightness percentage or a temperature in Kelvin.
type Event struct {
	Type    EventType
	On      bool
	Value   int
	Message string
}

type settingsStore interface {
	Load() (models.DeviceState, bool, error)
	Save(models.DeviceState) error
}

type commandKind int

const (
	cmdSetPower commandKind = iota
	cmdSetBrightness
	cmdSetTemperature
	cmdSync
)

type command struct {
	kind  commandKind
	on    bool
	value int
}

// Controller owns the background device loop: it keeps trying to open the
// lamp while it is unplugged, mirrors every command into the shared state
// cell and the settings store, and forwards lamp reports to the UI. The
// device is only ever touched from the loop goroutine.
type Controller struct {
	logger *log.Logger
	open   device.OpenFunc
	store  settingsStore
	cell   *state.Cell

	reconnectInterval time.Duration

	cmds   chan command
	events chan Event

	// write echoes still in flight, keyed off their send time
	pendingBrightness  time.Time
	pendingTemperature time.Time
}

func NewController(logger *log.Logger, open device.OpenFunc, store settingsStore, cell *state.Cell, reconnectInterval time.Duration) *Controller {
	if reconnectInterval <= 0 {
		reconnectInterval = constants.DefaultReconnectInterval
	}
	return &Controller{
		logger:            logger,
		open:              open,
		store:             store,
		cell:              cell,
		reconnectInterval: reconnectInterval,
		cmds:              make(chan command, 16),
		events:            make(chan Event, 16),
	}
}

func (c *Controller) Events() <-chan Event {
	return c.events
}

// SetPower mirrors the change immediately; the lamp write happens on the
// loop goroutine (or on reconnect if the lamp is unplugged).
func (c *Controller) SetPower(on bool) {
	c.persist(c.cell.SetPower(on))
	c.enqueue(command{kind: cmdSetPower, on: on})
}

func (c *Controller) SetBrightness(pct int) {
	pct = lo.Clamp(pct, 0, 100)
	c.persist(c.cell.SetBrightness(pct))
	c.enqueue(command{kind: cmdSetBrightness, value: pct})
}

func (c *Controller) SetTemperature(kelvin int) {
	kelvin = int(protocol.ClampTemperature(kelvin))
	c.persist(c.cell.SetTemperature(kelvin))
	c.enqueue(command{kind: cmdSetTemperature, value: kelvin})
}

// Requery asks the lamp for its full state again.
func (c *Controller) Requery() {
	c.enqueue(command{kind: cmdSync})
}

func (c *Controller) persist(s models.DeviceState) {
	if err := c.store.Save(s); err != nil {
		c.logger.Error(err)
	}
}

func (c *Controller) enqueue(cmd command) {
	select {
	case c.cmds <- cmd:
	default:
		c.logger.Warn("command queue full, dropping command")
	}
}

func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.logger.Debug("event channel full, dropping event")
	}
}

// Run drives the device loop until the context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Debug("device loop started")

	var lamp device.Lamp
	var lastError string
	defer func() {
		if lamp != nil {
			lamp.Close()
		}
	}()

	poll := time.NewTicker(constants.DevicePollInterval)
	defer poll.Stop()

	for {
		if lamp == nil {
			l, err := c.open()
			if err != nil {
				if msg := err.Error(); msg != lastError {
					c.logger.Warnf("device error: %s", msg)
					c.emit(Event{Type: EventError, Message: msg})
					lastError = msg
				}
				select {
				case <-ctx.Done():
					return
				case cmd := <-c.cmds:
					// the setters already mirrored the change; it will be
					// replayed on reconnect
					c.logger.Debugf("command while disconnected: %v", cmd)
				case <-time.After(c.reconnectInterval):
				}
				continue
			}

			c.logger.Info("device connected")
			lamp = l
			lastError = ""
			c.cell.SetConnected(true)
			c.emit(Event{Type: EventConnected})

			if err := c.syncOnConnect(lamp); err != nil {
				c.logger.Errorf("initial sync failed: %v", err)
				lamp = c.dropLamp(lamp)
				continue
			}
		}

		select {
		case <-ctx.Done():
			return

		case cmd := <-c.cmds:
			c.logger.Debugf("received command: %v", cmd)
			if err := c.apply(lamp, cmd); err != nil {
				c.logger.Errorf("command failed, device disconnected: %v", err)
				lamp = c.dropLamp(lamp)
			}

		case <-poll.C:
			resp, ok, err := lamp.TryRead()
			if err != nil {
				c.logger.Errorf("read error: %v", err)
				lamp = c.dropLamp(lamp)
				continue
			}
			if ok {
				c.handleResponse(resp)
			}
		}
	}
}

func (c *Controller) dropLamp(lamp device.Lamp) device.Lamp {
	lamp.Close()
	c.cell.SetConnected(false)
	c.emit(Event{Type: EventError, Message: "device disconnected"})
	return nil
}

// syncOnConnect replays the mirrored settings and then queries the lamp so
// state survives a plug/unplug cycle.
func (c *Controller) syncOnConnect(lamp device.Lamp) error {
	s := c.cell.Get()

	cmds := []protocol.Command{}
	if _, found, err := c.store.Load(); err != nil {
		c.logger.Error(err)
	} else if found {
		c.pendingBrightness = time.Now()
		c.pendingTemperature = time.Now()
		cmds = append(cmds,
			protocol.SetPower(s.Power),
			protocol.SetBrightness(protocol.BrightnessFromPercent(s.Brightness)),
			protocol.SetTemperature(protocol.ClampTemperature(s.Temperature)),
		)
	}
	cmds = append(cmds,
		protocol.GetPower(),
		protocol.GetBrightness(),
		protocol.GetTemperature(),
	)

	tw := concurrency.NewThrottledWorker(constants.CommandSpacing, lamp.Send)
	return tw.Run(cmds)
}

func (c *Controller) apply(lamp device.Lamp, cmd command) error {
	switch cmd.kind {
	case cmdSetPower:
		return lamp.Send(protocol.SetPower(cmd.on))
	case cmdSetBrightness:
		c.pendingBrightness = time.Now()
		return lamp.Send(protocol.SetBrightness(protocol.BrightnessFromPercent(cmd.value)))
	case cmdSetTemperature:
		c.pendingTemperature = time.Now()
		return lamp.Send(protocol.SetTemperature(protocol.ClampTemperature(cmd.value)))
	case cmdSync:
		tw := concurrency.NewThrottledWorker(constants.CommandSpacing, lamp.Send)
		return tw.Run([]protocol.Command{
			protocol.GetPower(),
			protocol.GetBrightness(),
			protocol.GetTemperature(),
		})
	}
	return nil
}

func (c *Controller) handleResponse(resp protocol.Response) {
	switch resp.Kind {
	case protocol.RespPower:
		c.persist(c.cell.SetPower(resp.On))
		c.emit(Event{Type: EventPower, On: resp.On})

	case protocol.RespBrightness:
		if resp.Hardware || c.acceptPending(&c.pendingBrightness) {
			pct := protocol.BrightnessToPercent(resp.Value)
			c.persist(c.cell.SetBrightness(pct))
			c.emit(Event{Type: EventBrightness, Value: pct})
		}

	case protocol.RespTemperature:
		if resp.Hardware || c.acceptPending(&c.pendingTemperature) {
			c.persist(c.cell.SetTemperature(int(resp.Value)))
			c.emit(Event{Type: EventTemperature, Value: int(resp.Value)})
		}
	}
}

// acceptPending reports whether a software ack should update state: echoes
// inside the pending window belong to a local write that already did.
func (c *Controller) acceptPending(pending *time.Time) bool {
	if pending.IsZero() {
		return true
	}
	if time.Since(*pending) < constants.PendingEchoWindow {
		return false
	}
	*pending = time.Time{}
	return true
}
