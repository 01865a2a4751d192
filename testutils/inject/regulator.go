package inject

import (
	"context"

	"go.viam.com/bringup/components/regulator"
)

// Regulator is an injected Regulator.
type Regulator struct {
	regulator.Regulator
	EnableFunc  func(ctx context.Context) error
	DisableFunc func(ctx context.Context) error
	CloseFunc   func() error
}

// Enable calls the injected Enable or the real version.
func (r *Regulator) Enable(ctx context.Context) error {
	if r.EnableFunc == nil {
		return r.Regulator.Enable(ctx)
	}
	return r.EnableFunc(ctx)
}

// Disable calls the injected Disable or the real version.
func (r *Regulator) Disable(ctx context.Context) error {
	if r.DisableFunc == nil {
		return r.Regulator.Disable(ctx)
	}
	return r.DisableFunc(ctx)
}

// Close calls the injected Close or the real version.
func (r *Regulator) Close() error {
	if r.CloseFunc == nil {
		if r.Regulator == nil {
			return nil
		}
		return r.Regulator.Close()
	}
	return r.CloseFunc()
}

// Supplier is an injected regulator.Supplier.
type Supplier struct {
	regulator.Supplier
	GetFunc func(ctx context.Context, name string) (regulator.Regulator, error)
}

// Get calls the injected Get or the real version.
func (s *Supplier) Get(ctx context.Context, name string) (regulator.Regulator, error) {
	if s.GetFunc == nil {
		return s.Supplier.Get(ctx, name)
	}
	return s.GetFunc(ctx, name)
}
