package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// StoppableWorkers runs background loops, such as a device's first enable or a config file
// watch, that share one cancellation.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
}

type workerGroup struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// NewStoppableWorkers starts each of loops on its own goroutine.
func NewStoppableWorkers(loops ...func(context.Context)) StoppableWorkers {
	ctx, cancel := context.WithCancel(context.Background())
	g := &workerGroup{ctx: ctx, cancel: cancel}
	g.AddWorkers(loops...)
	return g
}

// AddWorkers starts more loops. Once Stop has been called it does nothing.
func (g *workerGroup) AddWorkers(loops ...func(context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx.Err() != nil {
		return
	}
	for _, loop := range loops {
		g.running.Add(1)
		loop := loop
		goutils.PanicCapturingGo(func() {
			defer g.running.Done()
			loop(g.ctx)
		})
	}
}

// Stop cancels the loops and blocks until all of them have returned.
func (g *workerGroup) Stop() {
	g.mu.Lock()
	g.cancel()
	g.mu.Unlock()
	g.running.Wait()
}

// Context is the context handed to every loop.
func (g *workerGroup) Context() context.Context {
	return g.ctx
}
