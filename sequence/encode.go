package sequence

// Encoder turns a register write into a bus payload.
type Encoder func(e Entry) []byte

// EncodeBE16 encodes the address then the value, both big-endian: 4 bytes.
func EncodeBE16(e Entry) []byte {
	return []byte{byte(e.Addr >> 8), byte(e.Addr), byte(e.Val >> 8), byte(e.Val)}
}

// FM34 memory write command prefix.
var fm34WritePrefix = [3]byte{0xfc, 0xf3, 0x3b}

// EncodeFM34 frames the write as an FM34 memory write command: FC F3 3B addrHi addrLo valHi valLo.
func EncodeFM34(e Entry) []byte {
	return []byte{
		fm34WritePrefix[0], fm34WritePrefix[1], fm34WritePrefix[2],
		byte(e.Addr >> 8), byte(e.Addr), byte(e.Val >> 8), byte(e.Val),
	}
}
