package fm34

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// ErrInvalidMode is returned for a mode or recording value outside the accepted set.
var ErrInvalidMode = errors.New("invalid mode")

// InputMode is the capture source the DSP is tuned for.
type InputMode string

// Input modes.
const (
	InputNormal InputMode = "normal"
	InputVR     InputMode = "vr"
)

// OutputMode is the playback path in use while recording.
type OutputMode string

// Output modes.
const (
	OutputNormal OutputMode = "normal"
	OutputVoice  OutputMode = "voice"
)

// AGCMode switches automatic gain control on the capture path.
type AGCMode string

// AGC modes.
const (
	AGCOff AGCMode = "off"
	AGCOn  AGCMode = "on"
)

// RecordingAction starts or ends a capture.
type RecordingAction string

// Recording actions. Playback is accepted and does nothing; the playback path is always bypassed.
const (
	RecordingStart    RecordingAction = "start"
	RecordingEnd      RecordingAction = "end"
	RecordingPlayback RecordingAction = "playback"
)

// Numeric control codes, as sent by the audio HAL.
const (
	codeEndRecording   = 0
	codeStartRecording = 1
	codePlayback       = 2
	codeInputNormal    = 100
	codeInputVR        = 101
	codeOutputNormal   = 200
	codeOutputVoice    = 201
	codeNoAGC          = 300
	codeAGC            = 301
)

func invalid(kind string, v interface{}) error {
	return errors.Wrapf(ErrInvalidMode, "%s %v", kind, v)
}

// ParseInputMode accepts "normal", "vr" or their control codes.
func ParseInputMode(v interface{}) (InputMode, error) {
	switch cast.ToString(v) {
	case string(InputNormal), strconv.Itoa(codeInputNormal):
		return InputNormal, nil
	case string(InputVR), strconv.Itoa(codeInputVR):
		return InputVR, nil
	}
	return "", invalid("input mode", v)
}

// ParseOutputMode accepts "normal", "voice" or their control codes.
func ParseOutputMode(v interface{}) (OutputMode, error) {
	switch cast.ToString(v) {
	case string(OutputNormal), strconv.Itoa(codeOutputNormal):
		return OutputNormal, nil
	case string(OutputVoice), strconv.Itoa(codeOutputVoice):
		return OutputVoice, nil
	}
	return "", invalid("output mode", v)
}

// ParseAGCMode accepts "off", "on" or their control codes.
func ParseAGCMode(v interface{}) (AGCMode, error) {
	switch cast.ToString(v) {
	case string(AGCOff), strconv.Itoa(codeNoAGC):
		return AGCOff, nil
	case string(AGCOn), strconv.Itoa(codeAGC):
		return AGCOn, nil
	}
	return "", invalid("agc mode", v)
}

// ParseRecordingAction accepts "start", "end", "playback" or their control codes.
func ParseRecordingAction(v interface{}) (RecordingAction, error) {
	switch cast.ToString(v) {
	case string(RecordingStart), strconv.Itoa(codeStartRecording):
		return RecordingStart, nil
	case string(RecordingEnd), strconv.Itoa(codeEndRecording):
		return RecordingEnd, nil
	case string(RecordingPlayback), strconv.Itoa(codePlayback):
		return RecordingPlayback, nil
	}
	return "", invalid("recording action", v)
}

// Modes is the capture configuration the profile is chosen from.
type Modes struct {
	Input   InputMode  `json:"input"`
	Output  OutputMode `json:"output"`
	AGC     AGCMode    `json:"agc"`
	Headset bool       `json:"headset"`
}

// DefaultModes is normal input and output without AGC, on the built-in microphones.
func DefaultModes() Modes {
	return Modes{Input: InputNormal, Output: OutputNormal, AGC: AGCOff}
}

// Profile is a DSP operating mode.
type Profile string

// Profiles.
const (
	ProfileBypass Profile = "bypass"
	// ProfileEnableNS runs the DSP with noise suppression, for voice calls and AGC capture.
	ProfileEnableNS Profile = "enable_ns"
	// ProfileDisableNS runs the DSP without noise suppression, for speech recognition.
	ProfileDisableNS Profile = "disable_ns"
)

// SelectProfile picks the profile for m. A headset microphone bypasses the DSP; speech
// recognition disables noise suppression; a voice path or AGC enables it; anything else is
// bypassed.
func SelectProfile(m Modes) Profile {
	switch {
	case m.Headset:
		return ProfileBypass
	case m.Input == InputVR:
		return ProfileDisableNS
	case m.Output == OutputVoice || m.AGC == AGCOn:
		return ProfileEnableNS
	default:
		return ProfileBypass
	}
}
