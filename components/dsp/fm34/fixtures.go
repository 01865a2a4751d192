package fm34

import (
	"github.com/samber/lo"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/sequence"
)

// The fixture tables below exercise the DSP on the fake board. They follow the shape of a real
// parameter load, a parameter block followed by the run command, but the values are not tuning
// data for any board. Real hardware loads its tables with LoadTables.

const (
	regParamStart = 0x22F8 // 0x8005 opens a parameter block, 0x8000 closes it
	regRun        = 0x22FB // 0x0000 starts the DSP on the loaded parameters
	regMicVolume  = 0x22C6
	regMicGain    = 0x22C8
	regLineOut    = 0x22D2
	regMICPGA     = 0x22E3
	regAECTail    = 0x22E5
	regNSLevel    = 0x2305
	regNSEnable   = 0x2301
	regBypass     = 0x22F2
)

func block(entries ...sequence.Entry) sequence.Table {
	t := sequence.Table{{Addr: regParamStart, Val: 0x8005}}
	t = append(t, entries...)
	return append(t, sequence.Entry{Addr: regParamStart, Val: 0x8000}, sequence.Entry{Addr: regRun, Val: 0x0000}, sequence.End())
}

var fixtureInit = map[boards.DSPBlob]sequence.Table{
	boards.DSPBlobDefault: block(
		sequence.Entry{Addr: regMicVolume, Val: 0x005D},
		sequence.Entry{Addr: regMicGain, Val: 0x0010},
		sequence.Entry{Addr: regLineOut, Val: 0x0A94},
		sequence.Entry{Addr: regMICPGA, Val: 0x30E0},
		sequence.Entry{Addr: regAECTail, Val: 0x0000},
	),
	boards.DSPBlobTF201: block(
		sequence.Entry{Addr: regMicVolume, Val: 0x0068},
		sequence.Entry{Addr: regMicGain, Val: 0x0014},
		sequence.Entry{Addr: regLineOut, Val: 0x0A94},
		sequence.Entry{Addr: regMICPGA, Val: 0x30E0},
		sequence.Entry{Addr: regAECTail, Val: 0x0002},
	),
	boards.DSPBlobTF700T: block(
		sequence.Entry{Addr: regMicVolume, Val: 0x0074},
		sequence.Entry{Addr: regMicGain, Val: 0x0018},
		sequence.Entry{Addr: regLineOut, Val: 0x0B12},
		sequence.Entry{Addr: regMICPGA, Val: 0x3120},
		sequence.Entry{Addr: regAECTail, Val: 0x0002},
	),
}

var (
	fixtureBypass = []sequence.Entry{{Addr: regBypass, Val: 0x0001}}
	fixtureEnable = []sequence.Entry{{Addr: regBypass, Val: 0x0000}}
)

// Only the TF201 and TF700T fixtures carry noise suppression entries.
var fixtureNS = map[boards.DSPBlob]struct{ enable, disable []sequence.Entry }{
	boards.DSPBlobTF201: {
		enable:  []sequence.Entry{{Addr: regNSEnable, Val: 0x0002}, {Addr: regNSLevel, Val: 0x7000}},
		disable: []sequence.Entry{{Addr: regNSEnable, Val: 0x0000}},
	},
	boards.DSPBlobTF700T: {
		enable:  []sequence.Entry{{Addr: regNSEnable, Val: 0x0002}, {Addr: regNSLevel, Val: 0x6000}},
		disable: []sequence.Entry{{Addr: regNSEnable, Val: 0x0000}, {Addr: regNSLevel, Val: 0x0000}},
	},
}

// FixtureTables returns the fake-board tables for info's board. They are test fixtures, not
// tuning data.
func FixtureTables(info boards.Info) Tables {
	initTable, ok := fixtureInit[info.DSPBlob]
	if !ok {
		initTable = fixtureInit[boards.DSPBlobDefault]
	}
	ns := fixtureNS[info.NoiseSuppressionBlob()]
	return Tables{
		Init:      initTable,
		Bypass:    block(fixtureBypass...),
		EnableNS:  block(lo.Flatten([][]sequence.Entry{fixtureEnable, ns.enable})...),
		DisableNS: block(lo.Flatten([][]sequence.Entry{fixtureEnable, ns.disable})...),
	}
}
