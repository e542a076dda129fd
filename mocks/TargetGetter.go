package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/3axap4eHko/litra/internal/schedule"
)

// TargetGetter is a mock implementation of the adaptive schedule seam.
type TargetGetter struct {
	mock.Mock
}

func NewTargetGetter(t interface {
	mock.TestingT
	Cleanup(func())
}) *TargetGetter {
	m := &TargetGetter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TargetGetter) GetTargetForTime(t time.Time) (schedule.LampTarget, error) {
	args := m.Called(t)
	return args.Get(0).(schedule.LampTarget), args.Error(1)
}
