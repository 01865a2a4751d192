package regulator

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/bringup/utils"
)

type railSlot struct {
	reg utils.Optional[Regulator]
}

// Enable acquires and enables name. Enabling a rail that is already on is a no-op. If the rail
// cannot be acquired or enabled it is left absent.
func (r *Rails) Enable(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.rails[name]
	if !ok {
		slot = &railSlot{}
		r.rails[name] = slot
	}
	if slot.reg.IsSome() {
		return nil
	}

	reg, err := r.supplier.Get(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "acquiring %s", name)
	}
	if err := reg.Enable(ctx); err != nil {
		return multierr.Combine(errors.Wrapf(err, "enabling %s", name), reg.Close())
	}
	slot.reg = utils.Some(reg)
	return nil
}

// Disable disables and releases name. Disabling an absent rail is a no-op.
func (r *Rails) Disable(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disableLocked(ctx, name)
}

func (r *Rails) disableLocked(ctx context.Context, name string) error {
	slot, ok := r.rails[name]
	if !ok {
		return nil
	}
	reg, ok := slot.reg.Take()
	if !ok {
		return nil
	}
	return multierr.Combine(errors.Wrapf(reg.Disable(ctx), "disabling %s", name), reg.Close())
}

// DisableAll releases every rail that is on, in name order.
func (r *Rails) DisableAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for _, name := range r.onLocked() {
		err = multierr.Combine(err, r.disableLocked(ctx, name))
	}
	return err
}

// IsOn reports whether name is currently enabled.
func (r *Rails) IsOn(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.rails[name]
	return ok && slot.reg.IsSome()
}

// On returns the names of the enabled rails, sorted.
func (r *Rails) On() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onLocked()
}

func (r *Rails) onLocked() []string {
	var names []string
	for name, slot := range r.rails {
		if slot.reg.IsSome() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
