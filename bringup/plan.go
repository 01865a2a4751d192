package bringup

import (
	"context"
	"fmt"
	"time"

	"go.viam.com/bringup/retry"
	"go.viam.com/bringup/sequence"
)

// An Action is one step of a power sequence.
type Action struct {
	Desc string
	Run  func(ctx context.Context, env *Env) error
}

// RailOn enables a rail and then waits settle.
func RailOn(name string, settle time.Duration) Action {
	return Action{
		Desc: fmt.Sprintf("enable rail %s", name),
		Run: func(ctx context.Context, env *Env) error {
			if err := env.RailOn(ctx, name); err != nil {
				return err
			}
			return env.Sleep(ctx, settle)
		},
	}
}

// RailOff disables a rail and then waits settle.
func RailOff(name string, settle time.Duration) Action {
	return Action{
		Desc: fmt.Sprintf("disable rail %s", name),
		Run: func(ctx context.Context, env *Env) error {
			if err := env.RailOff(ctx, name); err != nil {
				return err
			}
			return env.Sleep(ctx, settle)
		},
	}
}

// SetPin drives a line and then waits settle.
func SetPin(name string, high bool, settle time.Duration) Action {
	return Action{
		Desc: fmt.Sprintf("set %s=%v", name, high),
		Run: func(ctx context.Context, env *Env) error {
			if err := env.SetPin(ctx, name, high); err != nil {
				return err
			}
			return env.Sleep(ctx, settle)
		},
	}
}

// Wait sleeps d.
func Wait(d time.Duration) Action {
	return Action{
		Desc: fmt.Sprintf("wait %v", d),
		Run: func(ctx context.Context, env *Env) error {
			return env.Sleep(ctx, d)
		},
	}
}

// Func wraps fn as an action.
func Func(desc string, fn func(ctx context.Context, env *Env) error) Action {
	return Action{Desc: desc, Run: fn}
}

// Reset describes an active-low reset line. The line is pulled low for Hold, released, and the
// device is given Wake to come up.
type Reset struct {
	Pin  string
	Hold time.Duration
	Wake time.Duration
}

// Probe is a single un-retried presence check.
type Probe struct {
	Payload []byte
	// ReadLen bytes are read back after the write when positive.
	ReadLen int
	// Backoff is waited after a failed probe before the reset line is pulsed again.
	Backoff time.Duration
}

// Pass tells a TableSelector why a table is being run.
type Pass int

const (
	// PassInitial is the configure step of Enable.
	PassInitial Pass = iota
	// PassReconfigure is a Reconfigure of a running device.
	PassReconfigure
)

// A TableSelector picks the register table to write. It is called with the device lock held.
type TableSelector interface {
	SelectTable(ctx context.Context, pass Pass) (sequence.Table, error)
}

// TableSelectorFunc adapts a function to TableSelector.
type TableSelectorFunc func(ctx context.Context, pass Pass) (sequence.Table, error)

// SelectTable calls f.
func (f TableSelectorFunc) SelectTable(ctx context.Context, pass Pass) (sequence.Table, error) {
	return f(ctx, pass)
}

// StaticTable always selects t.
func StaticTable(t sequence.Table) TableSelector {
	return TableSelectorFunc(func(context.Context, Pass) (sequence.Table, error) {
		return t, nil
	})
}

// Plan is everything a Device runs, in order: PowerOn, Reset, Wake, Probe, BeforeConfigure, the
// selected table, AfterConfigure. Disable runs PowerOff. Reconfigure runs Wake, BeforeConfigure,
// the table and AfterConfigure.
type Plan struct {
	PowerOn         []Action
	Reset           *Reset
	Wake            []Action
	Probe           *Probe
	BeforeConfigure []Action
	Selector        TableSelector
	AfterConfigure  []Action
	PowerOff        []Action

	// Encode defaults to sequence.EncodeBE16.
	Encode sequence.Encoder
	Retry  retry.Policy
	Latch  Latch
}

func (p *Plan) usesBus() bool {
	return p.Probe != nil || p.Selector != nil
}
