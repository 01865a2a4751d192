package board

import "context"

// A GPIOPin is one control line of the board: a reset, an enable, a bypass select or an ID
// strap. extra is passed through to the driver and may be nil.
type GPIOPin interface {
	// Set drives the line. true is electrically high, whatever the line's active level.
	Set(ctx context.Context, high bool, extra map[string]interface{}) error

	// Get samples the line.
	Get(ctx context.Context, extra map[string]interface{}) (bool, error)
}
