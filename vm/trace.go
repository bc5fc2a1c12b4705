package vm

import (
	"fmt"
	"io"

	"github.com/unknownrunes/rune-vm/isa"
)

// FormatTraceLine renders one Step the way the reference implementation's
// --debug trace does: each operand slot shows the named register's
// current value in hex (`hex(self.regs[r])`), or "--" for an unused
// (NoReg) slot:
//
//	[NNNNNN] PC=0x... MNEM R0=... R1=... R2=... IMM=...
func FormatTraceLine(s Step) string {
	rv := func(r int) string {
		if r < isa.RA || r > isa.RC {
			return "--"
		}
		v := s.Regs[r]
		if v < 0 {
			return fmt.Sprintf("-0x%X", -int64(v))
		}
		return fmt.Sprintf("0x%X", v)
	}
	return fmt.Sprintf("[%06d] PC=0x%016X %-7s R0=%s R1=%s R2=%s IMM=%d",
		s.InstructionCount, s.PC, s.Mnemonic,
		rv(s.Reg1), rv(s.Reg2), rv(s.Reg3), s.Imm)
}

// AttachLineTrace installs a TraceHook that writes one FormatTraceLine
// per instruction to w, the way `vm --debug` drives stdout.
func (vm *VM) AttachLineTrace(w io.Writer) {
	vm.Trace = func(s Step) {
		fmt.Fprintln(w, FormatTraceLine(s))
	}
}

// DumpRegisters renders the three general-purpose registers and PC/SP,
// carried forward from the reference's dumpRegs() diagnostic helper.
func (vm *VM) DumpRegisters() string {
	return fmt.Sprintf("RA=%d RB=%d RC=%d PC=0x%016X SP=0x%016X",
		vm.CPU.Regs[isa.RA], vm.CPU.Regs[isa.RB], vm.CPU.Regs[isa.RC], vm.CPU.PC, vm.CPU.SP)
}

// DumpMemoryRange renders `length` bytes starting at addr as a hex dump,
// carried forward from the reference's dumpMem() diagnostic helper.
func (vm *VM) DumpMemoryRange(addr uint64, length int) string {
	out := ""
	for i := 0; i < length; i++ {
		b, err := vm.Memory.ReadByte(addr + uint64(i))
		if err != nil {
			break
		}
		if i%16 == 0 {
			if i > 0 {
				out += "\n"
			}
			out += fmt.Sprintf("0x%016X: ", addr+uint64(i))
		}
		out += fmt.Sprintf("%02X ", b)
	}
	return out
}
