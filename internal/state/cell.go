package state

import (
	"sync"

	"github.com/3axap4eHko/litra/internal/models"
)

// Cell is the process-wide last-known device state, written by the device
// watcher and read by the UI.
type Cell struct {
	mu        sync.RWMutex
	state     models.DeviceState
	connected bool
}

func NewCell(initial models.DeviceState) *Cell {
	return &Cell{state: initial}
}

func (c *Cell) Get() models.DeviceState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Cell) SetPower(on bool) models.DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Power = on
	return c.state
}

func (c *Cell) SetBrightness(pct int) models.DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Brightness = pct
	return c.state
}

func (c *Cell) SetTemperature(kelvin int) models.DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Temperature = kelvin
	return c.state
}

func (c *Cell) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

func (c *Cell) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
