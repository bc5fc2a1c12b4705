package vm

import "github.com/unknownrunes/rune-vm/isa"

// CPU holds the three signed 24-bit general-purpose registers and the
// 64-bit program counter and stack pointer.
type CPU struct {
	Regs [3]int32
	PC   uint64
	SP   uint64
}

// NewCPU returns a CPU with PC at 0 and SP at the one-past-top stack
// sentinel.
func NewCPU() *CPU {
	return &CPU{SP: StackTop}
}

// Get reads a decoded register index. isa.NoReg or any index outside
// {RA,RB,RC} is an OperandFault: a required register slot found no real
// register.
func (c *CPU) Get(reg int) (int32, error) {
	if reg < isa.RA || reg > isa.RC {
		return 0, newOperandFault("no register provided for a required operand slot")
	}
	return c.Regs[reg], nil
}

// Set writes a decoded register index, folding the value into the
// 24-bit signed range first.
func (c *CPU) Set(reg int, v int32) error {
	if reg < isa.RA || reg > isa.RC {
		return newOperandFault("no register provided for a required operand slot")
	}
	c.Regs[reg] = isa.Fold24(int64(v))
	return nil
}
