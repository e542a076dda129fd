package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/3axap4eHko/litra/internal/protocol"
)

// Lamp is a mock implementation of device.Lamp.
type Lamp struct {
	mock.Mock
}

func NewLamp(t interface {
	mock.TestingT
	Cleanup(func())
}) *Lamp {
	m := &Lamp{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Lamp) Send(cmd protocol.Command) error {
	args := m.Called(cmd)
	return args.Error(0)
}

func (m *Lamp) TryRead() (protocol.Response, bool, error) {
	args := m.Called()
	return args.Get(0).(protocol.Response), args.Bool(1), args.Error(2)
}

func (m *Lamp) Close() error {
	args := m.Called()
	return args.Error(0)
}
