// Package vm implements the Unknown Runes virtual machine: the
// fetch/decode/execute loop, the three-register model, sparse segmented
// memory, stack discipline and the syscall dispatch table.
package vm

import (
	"bufio"
	"io"
	"math/rand"
	"os"
	"time"
)

// DefaultMaxInstructions is the reference implementation's per-run
// instruction ceiling.
const DefaultMaxInstructions = 1_000_000

// DefaultOSExecTimeout is the wall-clock timeout applied to the OS_EXEC
// syscall's host subprocess, matching the reference.
const DefaultOSExecTimeout = 10 * time.Second

// TraceHook is called once per executed instruction when non-nil,
// immediately before side effects are applied. It is the single-step
// trace hook mentioned (but not mandated) in the design notes; the
// --debug CLI flag and the optional tcell/tview TUI both attach one.
type TraceHook func(step Step)

// Step carries everything a trace consumer needs to render one
// instruction's worth of execution.
type Step struct {
	InstructionCount uint64
	PC               uint64
	Opcode           byte
	Mnemonic         string
	Reg1, Reg2, Reg3 int
	Imm              int32

	// Regs is a snapshot of RA/RB/RC taken before this instruction's side
	// effects are applied, for rendering each operand's current value.
	Regs [3]int32
}

// VM is a single, self-contained machine instance. Instances share no
// mutable state with one another, so multiple VMs may safely run
// concurrently across goroutines as long as each owns its own In/Out
// streams, matching the instance-per-connection concurrency model.
type VM struct {
	CPU    *CPU
	Memory *Memory

	InstrCount      uint64
	MaxInstructions uint64
	Halted          bool
	ExitCode        int32

	In  *bufio.Reader
	Out io.Writer

	// rng is per-instance (not a package-level global) so that
	// concurrently running VMs never race on shared RNG state.
	rng *rand.Rand

	OSExecTimeout time.Duration
	AllowOSExec   bool

	Trace TraceHook
}

// Config bundles the tunables a VM is constructed with.
type Config struct {
	MemSize         uint64
	MaxInstructions uint64
	OSExecTimeout   time.Duration
	AllowOSExec     bool
}

// DefaultConfig returns the reference implementation's defaults.
func DefaultConfig() Config {
	return Config{
		MemSize:         DefaultMemSize,
		MaxInstructions: DefaultMaxInstructions,
		OSExecTimeout:   DefaultOSExecTimeout,
		AllowOSExec:     true,
	}
}

// New creates a VM wired to the given I/O streams. A nil in/out default
// to os.Stdin/os.Stdout, matching the teacher's "defaults to stdout"
// convention in its own VM constructor.
func New(cfg Config, in io.Reader, out io.Writer) *VM {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if cfg.MaxInstructions == 0 {
		cfg.MaxInstructions = DefaultMaxInstructions
	}
	if cfg.OSExecTimeout == 0 {
		cfg.OSExecTimeout = DefaultOSExecTimeout
	}

	return &VM{
		CPU:             NewCPU(),
		Memory:          NewMemory(cfg.MemSize),
		MaxInstructions: cfg.MaxInstructions,
		In:              bufio.NewReader(in),
		Out:             out,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		OSExecTimeout:   cfg.OSExecTimeout,
		AllowOSExec:     cfg.AllowOSExec,
	}
}

// LoadProgram writes a flat image at address 0 and resets PC to 0.
func (vm *VM) LoadProgram(image []byte) error {
	if err := vm.Memory.LoadImage(image); err != nil {
		return err
	}
	vm.CPU.PC = 0
	return nil
}

// Run executes instructions until HALT, an EXIT syscall, a fault, or the
// instruction ceiling is reached. The returned error is nil on a plain
// HALT, *Exit on an explicit exit, *Fault on a fatal fault, and
// *ResourceExhausted on ceiling exhaustion (non-fatal per the spec, but
// still surfaced so callers can distinguish it from a clean halt).
func (vm *VM) Run() error {
	for !vm.Halted {
		if vm.InstrCount >= vm.MaxInstructions {
			vm.Halted = true
			return &ResourceExhausted{InstructionCount: vm.InstrCount}
		}
		if err := vm.Step(); err != nil {
			vm.Halted = true
			return err
		}
	}
	return nil
}
