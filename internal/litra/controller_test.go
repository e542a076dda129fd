package litra_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/3axap4eHko/litra/internal/device"
	"github.com/3axap4eHko/litra/internal/litra"
	"github.com/3axap4eHko/litra/internal/models"
	"github.com/3axap4eHko/litra/internal/protocol"
	"github.com/3axap4eHko/litra/internal/state"
	"github.com/3axap4eHko/litra/mocks"
)

// fakeLamp is a scripted lamp for driving the device loop: it records every
// sent command and hands out queued responses one per poll.
type fakeLamp struct {
	mu        sync.Mutex
	sent      []protocol.Command
	responses []protocol.Response
	readErr   error
}

func (f *fakeLamp) Send(cmd protocol.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeLamp) TryRead() (protocol.Response, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return protocol.Response{}, false, f.readErr
	}
	if len(f.responses) == 0 {
		return protocol.Response{}, false, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, true, nil
}

func (f *fakeLamp) Close() error { return nil }

func (f *fakeLamp) sentCommands() []protocol.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Command{}, f.sent...)
}

func (f *fakeLamp) queue(resp protocol.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
}

func (f *fakeLamp) setReadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

type eventLog struct {
	mu     sync.Mutex
	events []litra.Event
}

func (l *eventLog) consume(ch <-chan litra.Event) {
	for e := range ch {
		l.mu.Lock()
		l.events = append(l.events, e)
		l.mu.Unlock()
	}
}

func (l *eventLog) has(t litra.EventType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Type == t {
			return true
		}
	}
	return false
}

func testLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
}

func sentContains(cmds []protocol.Command, want protocol.Command) bool {
	for _, c := range cmds {
		if c == want {
			return true
		}
	}
	return false
}

func Test_Controller_MirrorsCommandsWhileDisconnected(t *testing.T) {

	lamp := &fakeLamp{}
	var mu sync.Mutex
	connected := false
	open := device.OpenFunc(func() (device.Lamp, error) {
		mu.Lock()
		defer mu.Unlock()
		if !connected {
			return nil, device.ErrNotFound
		}
		return lamp, nil
	})

	store := mocks.NewSettingsStore(t)
	store.On("Save", mock.Anything).Return(nil)
	store.On("Load").Return(models.DeviceState{}, true, nil).Maybe()

	cell := state.NewCell(models.DefaultState())
	ctrl := litra.NewController(testLogger(), open, store, cell, 10*time.Millisecond)

	events := &eventLog{}
	go events.consume(ctrl.Events())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	// commands while unplugged update the mirror immediately
	ctrl.SetPower(true)
	ctrl.SetBrightness(75)
	assert.Eventually(t, func() bool {
		s := cell.Get()
		return s.Power && s.Brightness == 75
	}, time.Second, 10*time.Millisecond)
	assert.False(t, cell.Connected())

	// plug the lamp in: the loop connects and replays the mirrored settings
	mu.Lock()
	connected = true
	mu.Unlock()

	assert.Eventually(t, func() bool { return events.has(litra.EventConnected) }, 3*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		sent := lamp.sentCommands()
		return sentContains(sent, protocol.SetPower(true)) &&
			sentContains(sent, protocol.SetBrightness(protocol.BrightnessFromPercent(75))) &&
			sentContains(sent, protocol.GetTemperature())
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, cell.Connected())
}

func Test_Controller_HardwareReportsUpdateState(t *testing.T) {

	lamp := &fakeLamp{}
	open := device.OpenFunc(func() (device.Lamp, error) { return lamp, nil })

	store := mocks.NewSettingsStore(t)
	store.On("Save", mock.Anything).Return(nil).Maybe()
	store.On("Load").Return(models.DeviceState{}, false, nil)

	cell := state.NewCell(models.DefaultState())
	ctrl := litra.NewController(testLogger(), open, store, cell, 10*time.Millisecond)

	events := &eventLog{}
	go events.consume(ctrl.Events())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	assert.Eventually(t, func() bool { return events.has(litra.EventConnected) }, 3*time.Second, 10*time.Millisecond)

	// the lamp's own button was pressed
	lamp.queue(protocol.Response{Kind: protocol.RespPower, On: true, Hardware: true})
	lamp.queue(protocol.Response{Kind: protocol.RespBrightness, Value: protocol.BrightnessFromPercent(30), Hardware: true})

	assert.Eventually(t, func() bool {
		s := cell.Get()
		return s.Power && s.Brightness == 30
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, events.has(litra.EventPower))
	assert.True(t, events.has(litra.EventBrightness))
}

func Test_Controller_SuppressesSoftwareEchoes(t *testing.T) {

	lamp := &fakeLamp{}
	open := device.OpenFunc(func() (device.Lamp, error) { return lamp, nil })

	store := mocks.NewSettingsStore(t)
	store.On("Save", mock.Anything).Return(nil)
	store.On("Load").Return(models.DeviceState{}, false, nil)

	cell := state.NewCell(models.DefaultState())
	ctrl := litra.NewController(testLogger(), open, store, cell, 10*time.Millisecond)

	events := &eventLog{}
	go events.consume(ctrl.Events())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	assert.Eventually(t, func() bool { return events.has(litra.EventConnected) }, 3*time.Second, 10*time.Millisecond)

	ctrl.SetBrightness(30)
	assert.Eventually(t, func() bool {
		return sentContains(lamp.sentCommands(), protocol.SetBrightness(protocol.BrightnessFromPercent(30)))
	}, 3*time.Second, 10*time.Millisecond)

	// a stale ack for the write in flight must not yank the mirror back
	lamp.queue(protocol.Response{Kind: protocol.RespBrightness, Value: protocol.BrightnessFromPercent(99), Hardware: false})
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 30, cell.Get().Brightness)

	// a hardware report always wins
	lamp.queue(protocol.Response{Kind: protocol.RespBrightness, Value: protocol.BrightnessFromPercent(60), Hardware: true})
	assert.Eventually(t, func() bool { return cell.Get().Brightness == 60 }, 3*time.Second, 10*time.Millisecond)
}

func Test_Controller_ReconnectsAfterReadError(t *testing.T) {

	var mu sync.Mutex
	opens := 0
	lamp := &fakeLamp{}
	open := device.OpenFunc(func() (device.Lamp, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		return lamp, nil
	})

	store := mocks.NewSettingsStore(t)
	store.On("Save", mock.Anything).Return(nil).Maybe()
	store.On("Load").Return(models.DeviceState{}, false, nil)

	cell := state.NewCell(models.DefaultState())
	ctrl := litra.NewController(testLogger(), open, store, cell, 10*time.Millisecond)

	events := &eventLog{}
	go events.consume(ctrl.Events())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	assert.Eventually(t, func() bool { return events.has(litra.EventConnected) }, 3*time.Second, 10*time.Millisecond)

	lamp.setReadErr(assert.AnError)
	assert.Eventually(t, func() bool { return events.has(litra.EventError) }, 3*time.Second, 10*time.Millisecond)

	lamp.setReadErr(nil)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return opens >= 2
	}, 3*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return cell.Connected() }, 3*time.Second, 10*time.Millisecond)
}
