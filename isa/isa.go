// Package isa defines the Unknown Runes instruction set: the 42-bit
// instruction layout, the register field encoding, the mnemonic/opcode
// table, and the arithmetic folding helpers shared by the assembler, the
// encoder and the virtual machine.
package isa

// InstrSize is the number of bytes a single encoded instruction occupies.
const InstrSize = 6

// NoReg is the decoded value of an unused register operand slot.
const NoReg = -1

// Decoded register indices. RA/RB/RC double as indices into a VM's
// register file; NoReg is never a valid index.
const (
	RA = 0
	RB = 1
	RC = 2
)

// Raw 2-bit register field values, as they appear packed into an
// instruction word. RawNoReg is the only raw value with no corresponding
// decoded register; RawRA/RawRB/RawRC decode to RA/RB/RC via `raw - 1`.
const (
	RawNoReg = 0b00
	RawRA    = 0b01
	RawRB    = 0b10
	RawRC    = 0b11
)

// RegisterName returns the canonical display name for a decoded register
// index, or "NOREG" for NoReg.
func RegisterName(r int) string {
	switch r {
	case RA:
		return "RA"
	case RB:
		return "RB"
	case RC:
		return "RC"
	default:
		return "NOREG"
	}
}

// RawToDecoded converts a raw 2-bit field value to a decoded register
// index: 0 -> NoReg, 1/2/3 -> RA/RB/RC.
func RawToDecoded(raw byte) int {
	return int(raw) - 1
}

// DecodedToRaw converts a decoded register index back to its raw 2-bit
// field value. NoReg maps back to 0.
func DecodedToRaw(decoded int) byte {
	return byte(decoded + 1)
}

// Opcodes, one per mnemonic in the source dialect.
const (
	OpHALT    = 0x00
	OpMOV     = 0x01
	OpMOVR    = 0x02
	OpADD     = 0x03
	OpSUB     = 0x04
	OpADDI    = 0x05
	OpSUBI    = 0x06
	OpMUL     = 0x07
	OpDIV     = 0x08
	OpMOD     = 0x09
	OpAND     = 0x0A
	OpOR      = 0x0B
	OpXOR     = 0x0C
	OpNOT     = 0x0D
	OpSHL     = 0x0E
	OpSHR     = 0x0F
	OpLOAD    = 0x10
	OpSTORE   = 0x11
	OpLOADI   = 0x12
	OpSTOREI  = 0x13
	OpJMP     = 0x14
	OpJEQ     = 0x15
	OpJNE     = 0x16
	OpJLT     = 0x17
	OpJGT     = 0x18
	OpJLE     = 0x19
	OpJGE     = 0x1A
	OpMZERO   = 0x1B
	OpINC     = 0x1C
	OpDEC     = 0x1D
	OpNEG     = 0x1E
	OpSYSCALL = 0x1F
	OpPUSH    = 0x20
	OpPOP     = 0x21
	OpCALL    = 0x22
	OpRET     = 0x23
	OpPUSHI   = 0x24
	OpPUSHA   = 0x25
	OpPOPA    = 0x26
)

// Format describes how many and which kind of operands a mnemonic takes.
// Kinds: 'r' register, 'i' immediate-or-label, '*' variadic 1..3 registers.
type Format string

const (
	FmtNone     Format = ""
	FmtRI       Format = "ri"
	FmtRR       Format = "rr"
	FmtRRR      Format = "rrr"
	FmtR        Format = "r"
	FmtI        Format = "i"
	FmtRRI      Format = "rri"
	FmtVariadic Format = "*"
)

// Mnemonic describes one entry of the mnemonic/opcode/format table.
type Mnemonic struct {
	Name   string
	Opcode byte
	Fmt    Format
}

// Table is the full mnemonic/opcode/format table from the spec, in
// assembler-source order.
var Table = []Mnemonic{
	{"HALT", OpHALT, FmtNone},
	{"MOV", OpMOV, FmtRI},
	{"MOVR", OpMOVR, FmtRR},
	{"ADD", OpADD, FmtRRR},
	{"SUB", OpSUB, FmtRRR},
	{"ADDI", OpADDI, FmtRI},
	{"SUBI", OpSUBI, FmtRI},
	{"MUL", OpMUL, FmtRRR},
	{"DIV", OpDIV, FmtRRR},
	{"MOD", OpMOD, FmtRRR},
	{"AND", OpAND, FmtRRR},
	{"OR", OpOR, FmtRRR},
	{"XOR", OpXOR, FmtRRR},
	{"NOT", OpNOT, FmtR},
	{"SHL", OpSHL, FmtRI},
	{"SHR", OpSHR, FmtRI},
	{"LOAD", OpLOAD, FmtRR},
	{"STORE", OpSTORE, FmtRR},
	{"LOADI", OpLOADI, FmtRI},
	{"STOREI", OpSTOREI, FmtRI},
	{"JMP", OpJMP, FmtI},
	{"JEQ", OpJEQ, FmtRRI},
	{"JNE", OpJNE, FmtRRI},
	{"JLT", OpJLT, FmtRRI},
	{"JGT", OpJGT, FmtRRI},
	{"JLE", OpJLE, FmtRRI},
	{"JGE", OpJGE, FmtRRI},
	{"MZERO", OpMZERO, FmtR},
	{"INC", OpINC, FmtR},
	{"DEC", OpDEC, FmtR},
	{"NEG", OpNEG, FmtR},
	{"SYSCALL", OpSYSCALL, FmtVariadic},
	{"PUSH", OpPUSH, FmtR},
	{"POP", OpPOP, FmtR},
	{"CALL", OpCALL, FmtR},
	{"RET", OpRET, FmtNone},
	{"PUSHI", OpPUSHI, FmtI},
	{"PUSHA", OpPUSHA, FmtRRR},
	{"POPA", OpPOPA, FmtRRR},
}

// byName and byOpcode are built once at init time, mirroring the
// init()-populated lookup maps of the example VM corpus.
var byName = map[string]Mnemonic{}
var byOpcode = map[byte]Mnemonic{}

func init() {
	for _, m := range Table {
		byName[m.Name] = m
		byOpcode[m.Opcode] = m
	}
}

// Lookup returns the mnemonic table entry for an upper-case mnemonic
// name, and whether it exists. The match is case sensitive; the
// assembler and the linter upper-case source mnemonics before calling it.
func Lookup(name string) (Mnemonic, bool) {
	m, ok := byName[name]
	return m, ok
}

// LookupOpcode returns the mnemonic table entry for a decoded opcode
// byte, and whether it exists.
func LookupOpcode(op byte) (Mnemonic, bool) {
	m, ok := byOpcode[op]
	return m, ok
}

// Syscall numbers.
const (
	SysExit           = 0
	SysPrintInt       = 1
	SysPrintStr       = 2
	SysReadInt        = 3
	SysReadStr        = 4
	SysStrlen         = 5
	SysStrcmp         = 6
	SysPrintHex       = 7
	SysRandom         = 8
	SysDiagnosticName = 9
	SysOSExec         = 10
)

// Fold24 reduces an arbitrary integer to the 24-bit signed range
// [-2^23, 2^23-1] via truncation followed by sign interpretation.
func Fold24(v int64) int32 {
	masked := uint32(v) & 0x00FFFFFF
	return SignExtend24(masked)
}

// SignExtend24 interprets the low 24 bits of v as a two's-complement
// signed value.
func SignExtend24(v uint32) int32 {
	v &= 0x00FFFFFF
	if v&0x00800000 != 0 {
		return int32(v) - 0x01000000
	}
	return int32(v)
}

// To24 masks v down to its unsigned 24-bit raw bit pattern, discarding
// any sign information. Used when composing instruction immediates or
// writing register values into memory.
func To24(v int32) uint32 {
	return uint32(v) & 0x00FFFFFF
}
