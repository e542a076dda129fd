package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/3axap4eHko/litra/internal/models"
)

// SettingsStore is a mock implementation of the settings persistence seam.
type SettingsStore struct {
	mock.Mock
}

func NewSettingsStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *SettingsStore {
	m := &SettingsStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SettingsStore) Load() (models.DeviceState, bool, error) {
	args := m.Called()
	return args.Get(0).(models.DeviceState), args.Bool(1), args.Error(2)
}

func (m *SettingsStore) Save(s models.DeviceState) error {
	args := m.Called(s)
	return args.Error(0)
}
