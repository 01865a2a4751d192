// Package fake implements a regulator supplier that records rail changes on a fake board
// timeline.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	fakeboard "go.viam.com/bringup/components/board/fake"
	"go.viam.com/bringup/components/regulator"
)

// Supplier hands out fake rails. Any name is valid unless marked failing.
type Supplier struct {
	timeline *fakeboard.Timeline

	mu        sync.Mutex
	getErr    map[string]error
	enableErr map[string]error
	on        map[string]bool
	held      map[string]int
}

var _ = regulator.Supplier(&Supplier{})

// NewSupplier returns a supplier recording onto timeline.
func NewSupplier(timeline *fakeboard.Timeline) *Supplier {
	return &Supplier{
		timeline:  timeline,
		getErr:    map[string]error{},
		enableErr: map[string]error{},
		on:        map[string]bool{},
		held:      map[string]int{},
	}
}

// FailGet makes Get of name fail with err. A nil err clears it.
func (s *Supplier) FailGet(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr(s.getErr, name, err)
}

// FailEnable makes Enable of name fail with err. A nil err clears it.
func (s *Supplier) FailEnable(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr(s.enableErr, name, err)
}

func (s *Supplier) setErr(m map[string]error, name string, err error) {
	if err == nil {
		delete(m, name)
		return
	}
	m[name] = err
}

// IsOn reports whether name is enabled.
func (s *Supplier) IsOn(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on[name]
}

// Held returns how many acquired, unreleased handles exist for name.
func (s *Supplier) Held(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held[name]
}

// Get acquires name.
func (s *Supplier) Get(ctx context.Context, name string) (regulator.Regulator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.getErr[name]; err != nil {
		return nil, err
	}
	s.held[name]++
	return &rail{supplier: s, name: name}, nil
}

type rail struct {
	supplier *Supplier
	name     string
	closed   bool
}

func (r *rail) Enable(ctx context.Context) error {
	s := r.supplier
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.closed {
		return errors.Errorf("rail %s released", r.name)
	}
	if err := s.enableErr[r.name]; err != nil {
		return err
	}
	s.on[r.name] = true
	s.timeline.RecordRail(r.name, true)
	return nil
}

func (r *rail) Disable(ctx context.Context) error {
	s := r.supplier
	s.mu.Lock()
	defer s.mu.Unlock()
	s.on[r.name] = false
	s.timeline.RecordRail(r.name, false)
	return nil
}

func (r *rail) Close() error {
	s := r.supplier
	s.mu.Lock()
	defer s.mu.Unlock()
	if !r.closed {
		r.closed = true
		s.held[r.name]--
	}
	return nil
}
