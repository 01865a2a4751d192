// Package testutils holds helpers shared by the package tests.
package testutils

import (
	"time"

	"github.com/benbjohnson/clock"
)

// StepClock is a mock clock whose Sleep advances mock time instead of blocking, so code that
// sleeps runs straight through while the timeline still shows the delays.
type StepClock struct {
	*clock.Mock
}

// NewStepClock returns a StepClock at the mock epoch.
func NewStepClock() *StepClock {
	return &StepClock{clock.NewMock()}
}

// Sleep advances the mock clock by d.
func (c *StepClock) Sleep(d time.Duration) {
	c.Add(d)
}
