package panel

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/components/board"
	"go.viam.com/bringup/logging"
)

// MaxBrightness is the top of the brightness and sd_brightness ranges.
const MaxBrightness = 255

// measuredCurve maps requested brightness to PWM duty, measured on the panel.
var measuredCurve = [MaxBrightness + 1]uint8{
	0, 4, 4, 4, 4, 5, 6, 7,
	8, 9, 10, 11, 12, 13, 14, 15,
	16, 17, 18, 19, 20, 21, 22, 23,
	24, 25, 26, 27, 28, 29, 30, 31,
	32, 33, 34, 35, 36, 37, 38, 39,
	40, 41, 42, 43, 44, 45, 46, 47,
	48, 49, 49, 50, 51, 52, 53, 54,
	55, 56, 57, 58, 59, 60, 61, 62,
	63, 64, 65, 66, 67, 68, 69, 70,
	70, 72, 73, 74, 75, 76, 77, 78,
	79, 80, 81, 82, 83, 84, 85, 86,
	87, 88, 89, 90, 91, 92, 93, 94,
	95, 96, 97, 98, 99, 100, 101, 102,
	103, 104, 105, 106, 107, 108, 110, 111,
	112, 113, 114, 115, 116, 117, 118, 119,
	120, 121, 122, 123, 124, 124, 125, 126,
	127, 128, 129, 130, 131, 132, 133, 133,
	134, 135, 136, 137, 138, 139, 140, 141,
	142, 143, 144, 145, 146, 147, 148, 148,
	149, 150, 151, 152, 153, 154, 155, 156,
	157, 158, 159, 160, 161, 162, 163, 164,
	165, 166, 167, 168, 169, 170, 171, 172,
	173, 174, 175, 176, 177, 179, 180, 181,
	182, 184, 185, 186, 187, 188, 189, 190,
	191, 192, 193, 194, 195, 196, 197, 198,
	199, 200, 201, 202, 203, 204, 205, 206,
	207, 208, 209, 211, 212, 213, 214, 215,
	216, 217, 218, 219, 220, 221, 222, 223,
	224, 225, 226, 227, 228, 229, 230, 231,
	232, 233, 234, 235, 236, 237, 238, 239,
	240, 241, 242, 243, 244, 245, 246, 247,
	248, 249, 250, 251, 252, 253, 254, 255,
}

// Backlight drives the backlight enable line and maps brightness through the response curve.
type Backlight struct {
	board  board.Board
	info   boards.Info
	logger logging.Logger

	// sdBrightness scales every request, 255 being unscaled.
	sdBrightness atomic.Int32

	mu        sync.Mutex
	recording bool
}

// NewBacklight returns a backlight with sd_brightness at 255.
func NewBacklight(b board.Board, info boards.Info, logger logging.Logger) *Backlight {
	bl := &Backlight{board: b, info: info, logger: logger}
	bl.sdBrightness.Store(MaxBrightness)
	return bl
}

// SetSDBrightness sets the smart dimmer scale.
func (bl *Backlight) SetSDBrightness(v int) error {
	if v < 0 || v > MaxBrightness {
		return errors.Errorf("sd_brightness %d out of range [0, %d]", v, MaxBrightness)
	}
	bl.sdBrightness.Store(int32(v))
	return nil
}

// SDBrightness returns the smart dimmer scale.
func (bl *Backlight) SDBrightness() int {
	return int(bl.sdBrightness.Load())
}

// SetRecording tells the backlight an audio recording is running. Some boards share the
// backlight enable line with the microphone path and must keep it up.
func (bl *Backlight) SetRecording(recording bool) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.recording = recording
}

// Notify drives the enable line for brightness and returns the PWM duty to program.
func (bl *Backlight) Notify(ctx context.Context, brightness int) (int, error) {
	if brightness < 0 || brightness > MaxBrightness {
		return 0, errors.Errorf("brightness %d out of range [0, %d]", brightness, MaxBrightness)
	}
	bl.mu.Lock()
	enable := brightness != 0 || (bl.info.RecordingForcesBacklight && bl.recording)
	bl.mu.Unlock()

	pin, err := bl.board.GPIOPinByName(boards.PinBacklightEnable)
	if err != nil {
		return 0, err
	}
	if err := pin.Set(ctx, enable, nil); err != nil {
		return 0, errors.Wrap(err, "setting backlight enable")
	}
	return Curve(brightness, bl.SDBrightness()), nil
}

// Curve scales brightness by sd/255, rounding to nearest, and applies the measured curve.
func Curve(brightness, sd int) int {
	scaled := lo.Clamp((brightness*sd+MaxBrightness/2)/MaxBrightness, 0, MaxBrightness)
	return int(measuredCurve[scaled])
}
