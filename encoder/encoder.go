// Package encoder implements the pure bit-level codec between a logical
// 42-bit Unknown Runes instruction and its 6-byte little-endian on-disk
// representation. It is shared, unmodified, by the assembler (encode
// side) and the virtual machine (decode side).
package encoder

import "fmt"

// Instruction is the decoded form of one 42-bit instruction word. Reg1,
// Reg2 and Reg3 are decoded register indices (isa.NoReg, isa.RA, isa.RB,
// isa.RC) rather than raw 2-bit field values.
type Instruction struct {
	Opcode byte
	Rsv1   byte // must be 0; nonzero is a DecodeFault
	Reg1   int
	Reg2   int
	Reg3   int
	Rsv2   byte // must be 0; nonzero is a DecodeFault
	Imm    int32 // sign-extended 24-bit immediate
	ImmRaw uint32 // raw unsigned 24-bit bit pattern, for bitfield-composition callers
}

// Encode packs an opcode, three raw 2-bit register fields (0-3, where 0 is
// NoReg) and a 24-bit immediate into 6 little-endian bytes.
//
//	(op<<34) | (r1<<30) | (r2<<28) | (r3<<26) | imm24
func Encode(op byte, r1, r2, r3 byte, imm24 uint32) [6]byte {
	imm24 &= 0x00FFFFFF
	word := (uint64(op) << 34) |
		(uint64(r1&0x3) << 30) |
		(uint64(r2&0x3) << 28) |
		(uint64(r3&0x3) << 26) |
		uint64(imm24)

	var out [6]byte
	for i := 0; i < 6; i++ {
		out[i] = byte(word >> (8 * i))
	}
	return out
}

// EncodeDecoded is a convenience wrapper over Encode that takes decoded
// register indices (as produced by isa.RawToDecoded) instead of raw
// field values.
func EncodeDecoded(op byte, r1, r2, r3 int, imm24 uint32) [6]byte {
	return Encode(op, decodedToRaw(r1), decodedToRaw(r2), decodedToRaw(r3), imm24)
}

func decodedToRaw(decoded int) byte {
	return byte(decoded + 1)
}

// Decode unpacks 6 little-endian bytes into an Instruction. It performs
// pure bit extraction and register-field decoding only; reserved-bit and
// register-validity checks are the executor's responsibility.
func Decode(b [6]byte) Instruction {
	var word uint64
	for i := 0; i < 6; i++ {
		word |= uint64(b[i]) << (8 * i)
	}

	op := byte((word >> 34) & 0xFF)
	rsv1 := byte((word >> 32) & 0x3)
	r1 := byte((word >> 30) & 0x3)
	r2 := byte((word >> 28) & 0x3)
	r3 := byte((word >> 26) & 0x3)
	rsv2 := byte((word >> 24) & 0x3)
	imm := uint32(word & 0x00FFFFFF)

	return Instruction{
		Opcode: op,
		Rsv1:   rsv1,
		Reg1:   int(r1) - 1,
		Reg2:   int(r2) - 1,
		Reg3:   int(r3) - 1,
		Rsv2:   rsv2,
		Imm:    signExtend24(imm),
		ImmRaw: imm,
	}
}

// DecodeBytes is a convenience wrapper over Decode for slice-based
// callers (e.g. memory reads); it errors if fewer than 6 bytes are given.
func DecodeBytes(b []byte) (Instruction, error) {
	if len(b) < 6 {
		return Instruction{}, fmt.Errorf("encoder: need 6 bytes to decode an instruction, got %d", len(b))
	}
	var arr [6]byte
	copy(arr[:], b[:6])
	return Decode(arr), nil
}

func signExtend24(v uint32) int32 {
	v &= 0x00FFFFFF
	if v&0x00800000 != 0 {
		return int32(v) - 0x01000000
	}
	return int32(v)
}
