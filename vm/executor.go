package vm

import (
	"github.com/unknownrunes/rune-vm/encoder"
	"github.com/unknownrunes/rune-vm/isa"
)

// Step fetches, decodes and executes exactly one instruction, advancing
// PC by isa.InstrSize unless the instruction branched (in which case PC
// was already assigned directly and the post-advance is suppressed).
func (vm *VM) Step() error {
	pc := vm.CPU.PC

	var raw [6]byte
	for i := 0; i < isa.InstrSize; i++ {
		b, err := vm.Memory.ReadByte(pc + uint64(i))
		if err != nil {
			return err
		}
		raw[i] = b
	}
	inst := encoder.Decode(raw)

	if inst.Rsv1 != 0 || inst.Rsv2 != 0 {
		return newDecodeFault("reserved bits must be zero")
	}

	m, ok := isa.LookupOpcode(inst.Opcode)
	if !ok {
		return newDecodeFault("unknown opcode")
	}

	if vm.Trace != nil {
		vm.Trace(Step{
			InstructionCount: vm.InstrCount,
			PC:               pc,
			Opcode:           inst.Opcode,
			Mnemonic:         m.Name,
			Reg1:             inst.Reg1,
			Reg2:             inst.Reg2,
			Reg3:             inst.Reg3,
			Imm:              inst.Imm,
			Regs:             vm.CPU.Regs,
		})
	}

	branched, err := vm.execute(inst)
	vm.InstrCount++
	if err != nil {
		return err
	}
	if !branched {
		vm.CPU.PC = pc + isa.InstrSize
	}
	return nil
}

// execute carries out one decoded instruction's side effects. It
// reports whether the instruction assigned PC directly (branch, call,
// ret), in which case the caller must not apply the post-advance.
func (vm *VM) execute(inst encoder.Instruction) (branched bool, err error) {
	c := vm.CPU

	switch inst.Opcode {
	case isa.OpHALT:
		vm.Halted = true
		return false, nil

	case isa.OpMOV:
		return false, c.Set(inst.Reg1, inst.Imm)

	case isa.OpMOVR:
		v, err := c.Get(inst.Reg2)
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, v)

	case isa.OpADD:
		return false, binaryOp(c, inst, func(a, b int32) int32 { return a + b })
	case isa.OpSUB:
		return false, binaryOp(c, inst, func(a, b int32) int32 { return a - b })
	case isa.OpMUL:
		return false, binaryOp(c, inst, func(a, b int32) int32 { return a * b })
	case isa.OpAND:
		return false, binaryOp(c, inst, func(a, b int32) int32 { return a & b })
	case isa.OpOR:
		return false, binaryOp(c, inst, func(a, b int32) int32 { return a | b })
	case isa.OpXOR:
		return false, binaryOp(c, inst, func(a, b int32) int32 { return a ^ b })

	case isa.OpDIV:
		a, err := c.Get(inst.Reg2)
		if err != nil {
			return false, err
		}
		b, err := c.Get(inst.Reg3)
		if err != nil {
			return false, err
		}
		if b == 0 {
			return false, newArithmeticFault("division by zero")
		}
		return false, c.Set(inst.Reg1, a/b)

	case isa.OpMOD:
		a, err := c.Get(inst.Reg2)
		if err != nil {
			return false, err
		}
		b, err := c.Get(inst.Reg3)
		if err != nil {
			return false, err
		}
		if b == 0 {
			return false, newArithmeticFault("modulo by zero")
		}
		return false, c.Set(inst.Reg1, pythonMod(a, b))

	case isa.OpADDI:
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, a+inst.Imm)

	case isa.OpSUBI:
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, a-inst.Imm)

	case isa.OpNOT:
		// Swapped relative to common usage: NOT is arithmetic negation.
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, -a)

	case isa.OpNEG:
		// Swapped relative to common usage: NEG is bitwise complement.
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, ^a)

	case isa.OpSHL:
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		shift := uint(inst.ImmRaw & 0x1F)
		return false, c.Set(inst.Reg1, int32(isa.To24(a)<<shift))

	case isa.OpSHR:
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		shift := uint(inst.ImmRaw & 0x1F)
		return false, c.Set(inst.Reg1, int32(isa.To24(a)>>shift))

	case isa.OpMZERO:
		return false, c.Set(inst.Reg1, 0)

	case isa.OpINC:
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, a+1)

	case isa.OpDEC:
		a, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, a-1)

	case isa.OpLOAD:
		addr, err := c.Get(inst.Reg2)
		if err != nil {
			return false, err
		}
		v, err := vm.Memory.ReadWord24(uint64(isa.To24(addr)))
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, isa.SignExtend24(v))

	case isa.OpSTORE:
		addr, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		v, err := c.Get(inst.Reg2)
		if err != nil {
			return false, err
		}
		return false, vm.Memory.WriteWord24(uint64(isa.To24(addr)), isa.To24(v))

	case isa.OpLOADI:
		v, err := vm.Memory.ReadWord24(signExtendedAddr(inst.Imm))
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, isa.SignExtend24(v))

	case isa.OpSTOREI:
		v, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, vm.Memory.WriteWord24(signExtendedAddr(inst.Imm), isa.To24(v))

	case isa.OpJMP:
		c.PC = signExtendedAddr(inst.Imm)
		return true, nil

	case isa.OpJEQ:
		return vm.conditionalBranch(inst, func(a, b int32) bool { return a == b })
	case isa.OpJNE:
		return vm.conditionalBranch(inst, func(a, b int32) bool { return a != b })
	case isa.OpJLT:
		return vm.conditionalBranch(inst, func(a, b int32) bool { return a < b })
	case isa.OpJGT:
		return vm.conditionalBranch(inst, func(a, b int32) bool { return a > b })
	case isa.OpJLE:
		return vm.conditionalBranch(inst, func(a, b int32) bool { return a <= b })
	case isa.OpJGE:
		return vm.conditionalBranch(inst, func(a, b int32) bool { return a >= b })

	case isa.OpPUSH:
		v, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		return false, vm.push(int64(v))

	case isa.OpPUSHI:
		return false, vm.push(int64(inst.Imm))

	case isa.OpPOP:
		v, err := vm.pop()
		if err != nil {
			return false, err
		}
		return false, c.Set(inst.Reg1, isa.Fold24(v))

	case isa.OpCALL:
		target, err := c.Get(inst.Reg1)
		if err != nil {
			return false, err
		}
		if err := vm.push(int64(c.PC + isa.InstrSize)); err != nil {
			return false, err
		}
		c.PC = uint64(isa.To24(target))
		return true, nil

	case isa.OpRET:
		retAddr, err := vm.pop()
		if err != nil {
			return false, err
		}
		c.PC = uint64(retAddr)
		return true, nil

	case isa.OpPUSHA:
		// Pushed in reverse (Reg3, Reg2, Reg1) so that Reg1 - pushed
		// last, onto a downward-growing stack - ends up at the lowest
		// address, per the "ascending memory order, Reg1 first" rule.
		for _, r := range []int{inst.Reg3, inst.Reg2, inst.Reg1} {
			v, err := c.Get(r)
			if err != nil {
				return false, err
			}
			if err := vm.push(int64(v)); err != nil {
				return false, err
			}
		}
		return false, nil

	case isa.OpPOPA:
		// Mirrors PUSHA: Reg1 was pushed last, so it pops first.
		for _, r := range []int{inst.Reg1, inst.Reg2, inst.Reg3} {
			v, err := vm.pop()
			if err != nil {
				return false, err
			}
			if err := c.Set(r, isa.Fold24(v)); err != nil {
				return false, err
			}
		}
		return false, nil

	case isa.OpSYSCALL:
		return false, vm.syscall(inst)

	default:
		return false, newDecodeFault("unknown opcode")
	}
}

func binaryOp(c *CPU, inst encoder.Instruction, f func(a, b int32) int32) error {
	a, err := c.Get(inst.Reg2)
	if err != nil {
		return err
	}
	b, err := c.Get(inst.Reg3)
	if err != nil {
		return err
	}
	return c.Set(inst.Reg1, f(a, b))
}

func (vm *VM) conditionalBranch(inst encoder.Instruction, rel func(a, b int32) bool) (bool, error) {
	a, err := vm.CPU.Get(inst.Reg1)
	if err != nil {
		return false, err
	}
	b, err := vm.CPU.Get(inst.Reg2)
	if err != nil {
		return false, err
	}
	if rel(a, b) {
		vm.CPU.PC = signExtendedAddr(inst.Imm)
		return true, nil
	}
	return false, nil
}

// signExtendedAddr reinterprets a sign-extended 24-bit immediate as an
// unsigned 64-bit byte address, per the branch-target address rule: the
// two's-complement bit pattern is carried all the way out to 64 bits
// rather than masked to 24 bits, so a negative immediate can reach the
// high stack segment.
func signExtendedAddr(imm int32) uint64 {
	return uint64(int64(imm))
}

func (vm *VM) push(v int64) error {
	vm.CPU.SP -= 8
	return vm.Memory.WriteWord64(vm.CPU.SP, uint64(v))
}

func (vm *VM) pop() (int64, error) {
	v, err := vm.Memory.ReadWord64(vm.CPU.SP)
	if err != nil {
		return 0, err
	}
	vm.CPU.SP += 8
	return int64(v), nil
}

// pythonMod reproduces genuine Python `%` semantics: the result takes
// the sign of the divisor (b), not of the dividend (a). This is a
// deliberate deviation from Go/C's native `%`, which takes the sign of
// the dividend; see the modulo-sign design note.
func pythonMod(a, b int32) int32 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
