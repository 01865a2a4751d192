package utils

import "sync"

// Guard undoes a partially completed bring-up. Arm it with the teardown for what has been done so
// far, defer OnFail, and call Success once the last step has passed:
//
//	guard := NewGuard(func() { rail.Disable(ctx) })
//	defer guard.OnFail()
//	if err := nextStep(); err != nil { return err }
//	guard.Success()
type Guard struct {
	undo func()
	once sync.Once
	done bool
}

// NewGuard arms a guard with undo.
func NewGuard(undo func()) *Guard {
	return &Guard{undo: undo}
}

// OnFail runs the undo function at most once, and only if Success was never called.
func (g *Guard) OnFail() {
	if g.done || g.undo == nil {
		return
	}
	g.once.Do(g.undo)
}

// Success disarms the guard.
func (g *Guard) Success() {
	g.done = true
}
