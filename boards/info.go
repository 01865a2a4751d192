package boards

// Display is the panel mode a variant drives.
type Display struct {
	Width, Height int
	// Bridge is set when the panel is driven through the RGB to DSI bridge.
	Bridge bool
}

// Lines of the display path. Names are the SoC GPIO port names.
const (
	PinBacklightEnable = "PH2" // bl_enb
	PinVddBacklightEn  = "PH3" // en_vdd_bl
	PinLVDSShutdown    = "PN6"
	PinPanelID         = "PI6" // high on hydis panels
	PinHDMIEnable      = "PP2" // hdmi_5v_en

	PinBridge1V2       = "PBB3"
	PinBridge1V8       = "PC6"
	PinBridgeI2CSwitch = "PX0"
	PinBridgeOSC       = "PD2"
)

// Lines of the FM34 DSP.
const (
	PinDSPReset  = "PO3"
	PinDSPBypass = "PBB6"
)

// DSPBlob names a per-board DSP parameter set.
type DSPBlob string

// DSP parameter sets.
const (
	DSPBlobDefault DSPBlob = "default"
	DSPBlobTF201   DSPBlob = "tf201"
	DSPBlobTF700T  DSPBlob = "tf700t"
)

// Info is everything about a variant the bring-up code branches on.
type Info struct {
	Variant Variant
	Display Display
	// DSPPowerPin switches the DSP 1.8 V supply. Empty when the supply is always on.
	DSPPowerPin string
	// DSPBlob selects the init parameters and the noise suppression profiles.
	DSPBlob DSPBlob
	// HDMIEnableHigh is the level hdmi_5v_en is parked at.
	HDMIEnableHigh bool
	// RecordingForcesBacklight keeps bl_enb high while recording, even at zero brightness.
	RecordingForcesBacklight bool
}

var infos = map[Variant]Info{
	TF201: {
		Display:                  Display{Width: 1280, Height: 800},
		DSPPowerPin:              "PU5",
		DSPBlob:                  DSPBlobTF201,
		HDMIEnableHigh:           true,
		RecordingForcesBacklight: true,
	},
	TF300T: {
		Display:        Display{Width: 1280, Height: 800},
		DSPPowerPin:    "PP3",
		DSPBlob:        DSPBlobDefault,
		HDMIEnableHigh: true,
	},
	TF300TG: {
		Display:        Display{Width: 1280, Height: 800},
		DSPBlob:        DSPBlobDefault,
		HDMIEnableHigh: true,
	},
	TF700T: {
		Display: Display{Width: 1920, Height: 1200, Bridge: true},
		DSPBlob: DSPBlobTF700T,
	},
	Unknown: {
		Display:        Display{Width: 1280, Height: 800},
		DSPBlob:        DSPBlobDefault,
		HDMIEnableHigh: true,
	},
}

// InfoFor returns the description of v. Unrecognized variants get the Unknown description.
func InfoFor(v Variant) Info {
	info, ok := infos[v]
	if !ok {
		info = infos[Unknown]
		v = Unknown
	}
	info.Variant = v
	return info
}

// NoiseSuppressionBlob is the board's blob for the enable and disable noise suppression
// profiles. Only the TF700T has its own, everything else uses the TF201 one.
func (i Info) NoiseSuppressionBlob() DSPBlob {
	if i.DSPBlob == DSPBlobTF700T {
		return DSPBlobTF700T
	}
	return DSPBlobTF201
}
