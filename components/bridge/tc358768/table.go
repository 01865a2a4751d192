package tc358768

import "go.viam.com/bringup/sequence"

// InitTable brings the bridge from reset to RGB888 input, four lane DSI video output for the
// 1920x1200 panel.
var InitTable = sequence.Table{
	// software reset
	{Addr: 0x0002, Val: 0x0001},
	sequence.Wait(5),
	{Addr: 0x0002, Val: 0x0000},

	// PLL
	{Addr: 0x0016, Val: 0x309F},
	{Addr: 0x0018, Val: 0x0203},
	sequence.Wait(5),
	{Addr: 0x0018, Val: 0x0213},

	// DPI input and VSDly
	{Addr: 0x0006, Val: 0x012C},
	{Addr: 0x0008, Val: 0x0037},
	{Addr: 0x0050, Val: 0x003E},

	// D-PHY
	{Addr: 0x0140, Val: 0x0000},
	{Addr: 0x0142, Val: 0x0000},
	{Addr: 0x0144, Val: 0x0000},
	{Addr: 0x0146, Val: 0x0000},
	{Addr: 0x0148, Val: 0x0000},
	{Addr: 0x014A, Val: 0x0000},
	{Addr: 0x014C, Val: 0x0000},
	{Addr: 0x014E, Val: 0x0000},
	{Addr: 0x0150, Val: 0x0000},
	{Addr: 0x0152, Val: 0x0000},
	{Addr: 0x0100, Val: 0x0203},
	{Addr: 0x0102, Val: 0x0000},
	{Addr: 0x0104, Val: 0x0203},
	{Addr: 0x0106, Val: 0x0000},
	{Addr: 0x0108, Val: 0x0203},
	{Addr: 0x010A, Val: 0x0000},
	{Addr: 0x010C, Val: 0x0203},
	{Addr: 0x010E, Val: 0x0000},
	{Addr: 0x0110, Val: 0x0203},
	{Addr: 0x0112, Val: 0x0000},

	// DSI PPI timing
	{Addr: 0x0210, Val: 0x1964},
	{Addr: 0x0212, Val: 0x0000},
	{Addr: 0x0214, Val: 0x0005},
	{Addr: 0x0216, Val: 0x0000},
	{Addr: 0x0218, Val: 0x2801},
	{Addr: 0x021A, Val: 0x0000},
	{Addr: 0x021C, Val: 0x0000},
	{Addr: 0x021E, Val: 0x0000},
	{Addr: 0x0220, Val: 0x0C06},
	{Addr: 0x0222, Val: 0x0000},
	{Addr: 0x0224, Val: 0x4E20},
	{Addr: 0x0226, Val: 0x0000},
	{Addr: 0x0228, Val: 0x000B},
	{Addr: 0x022A, Val: 0x0000},
	{Addr: 0x022C, Val: 0x0005},
	{Addr: 0x022E, Val: 0x0000},
	{Addr: 0x0230, Val: 0x0005},
	{Addr: 0x0232, Val: 0x0000},
	{Addr: 0x0234, Val: 0x001F},
	{Addr: 0x0236, Val: 0x0000},
	{Addr: 0x0238, Val: 0x0001},
	{Addr: 0x023A, Val: 0x0000},
	{Addr: 0x023C, Val: 0x0005},
	{Addr: 0x023E, Val: 0x0005},
	{Addr: 0x0204, Val: 0x0001},
	{Addr: 0x0206, Val: 0x0000},

	// video mode timing
	{Addr: 0x0620, Val: 0x0001},
	{Addr: 0x0622, Val: 0x0020},
	{Addr: 0x0624, Val: 0x001A},
	{Addr: 0x0626, Val: 0x04B0},
	{Addr: 0x0628, Val: 0x015E},
	{Addr: 0x062A, Val: 0x00FA},
	{Addr: 0x062C, Val: 0x1680},
	{Addr: 0x0518, Val: 0x0001},
	{Addr: 0x051A, Val: 0x0000},

	// DSI config and start
	{Addr: 0x0500, Val: 0x0086},
	{Addr: 0x0502, Val: 0xA300},
	{Addr: 0x0500, Val: 0x8000},
	{Addr: 0x0502, Val: 0xC300},
	{Addr: 0x0004, Val: 0x0044},
	sequence.End(),
}
