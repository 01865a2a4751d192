package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
)

// Event kinds.
const (
	EventGPIO     = "gpio"
	EventRail     = "rail"
	EventI2CWrite = "i2c_write"
	EventI2CRead  = "i2c_read"
	// EventI2CTx is a write followed by a read in one transfer.
	EventI2CTx = "i2c_tx"
)

// Event is one observable action on the board.
type Event struct {
	// Offset is the time since the timeline was created.
	Offset time.Duration
	Kind   string
	Name   string
	High   bool
	Addr   byte
	Data   []byte
	// Read holds the bytes read back by an EventI2CTx.
	Read []byte
	Err  error
}

func (e Event) String() string {
	switch e.Kind {
	case EventGPIO, EventRail:
		return fmt.Sprintf("%v %s %s=%v", e.Offset, e.Kind, e.Name, e.High)
	case EventI2CTx:
		return fmt.Sprintf("%v %s %#x % x -> % x err=%v", e.Offset, e.Kind, e.Addr, e.Data, e.Read, e.Err)
	default:
		return fmt.Sprintf("%v %s %#x % x err=%v", e.Offset, e.Kind, e.Addr, e.Data, e.Err)
	}
}

// Timeline is an ordered log of board events.
type Timeline struct {
	clock clock.Clock
	start time.Time

	mu     sync.Mutex
	events []Event
}

// NewTimeline returns an empty timeline stamped with clk.
func NewTimeline(clk clock.Clock) *Timeline {
	return &Timeline{clock: clk, start: clk.Now()}
}

func (tl *Timeline) record(e Event) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	e.Offset = tl.clock.Since(tl.start)
	tl.events = append(tl.events, e)
}

// RecordRail adds a rail on/off event.
func (tl *Timeline) RecordRail(name string, on bool) {
	tl.record(Event{Kind: EventRail, Name: name, High: on})
}

// Events returns a copy of all recorded events.
func (tl *Timeline) Events() []Event {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return append([]Event(nil), tl.events...)
}

// Reset drops all recorded events.
func (tl *Timeline) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.events = nil
}

// Kinds returns the events whose kind is one of kinds.
func (tl *Timeline) Kinds(kinds ...string) []Event {
	return lo.Filter(tl.Events(), func(e Event, _ int) bool {
		return lo.Contains(kinds, e.Kind)
	})
}

// Writes returns the payloads of successful writes to addr, in order.
func (tl *Timeline) Writes(addr byte) [][]byte {
	return lo.FilterMap(tl.Events(), func(e Event, _ int) ([]byte, bool) {
		return e.Data, e.Kind == EventI2CWrite && e.Addr == addr && e.Err == nil
	})
}

// Transfers returns the combined write-read transfers to addr, in order.
func (tl *Timeline) Transfers(addr byte) []Event {
	return lo.Filter(tl.Events(), func(e Event, _ int) bool {
		return e.Kind == EventI2CTx && e.Addr == addr
	})
}

// Attempts returns every write to addr including failed ones.
func (tl *Timeline) Attempts(addr byte) []Event {
	return lo.Filter(tl.Events(), func(e Event, _ int) bool {
		return e.Kind == EventI2CWrite && e.Addr == addr
	})
}

// Steps renders the power events (gpio and rail) as "name=bool" strings.
func (tl *Timeline) Steps() []string {
	return lo.Map(tl.Kinds(EventGPIO, EventRail), func(e Event, _ int) string {
		return fmt.Sprintf("%s=%v", e.Name, e.High)
	})
}
