package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unknownrunes/rune-vm/parser"
	"github.com/unknownrunes/rune-vm/vm"
)

func runProgram(t *testing.T, src string, stdin string) (string, *vm.VM, error) {
	t.Helper()
	img, errs := parser.Assemble(strings.NewReader(src))
	require.Empty(t, errs, "assembly errors: %v", errs)

	var out bytes.Buffer
	machine := vm.New(vm.DefaultConfig(), strings.NewReader(stdin), &out)
	require.NoError(t, machine.LoadProgram(img))

	err := machine.Run()
	return out.String(), machine, err
}

func TestScenarioPrint42(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,42
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "42", out)
}

func TestScenarioTruncatingDivision(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,-7
		MOV RB,2
		DIV RC,RA,RB
		MOV RA,1
		SYSCALL RA,RC
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "-3", out)
}

func TestScenarioStackLIFO(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,11
		MOV RB,22
		PUSH RA
		PUSH RB
		POP RC
		MOV RA,1
		SYSCALL RA,RC
		POP RC
		MOV RA,1
		SYSCALL RA,RC
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "2211", out)
}

func TestScenarioCallRet(t *testing.T) {
	out, _, err := runProgram(t, `
		JMP main
		func: MOV RA,42
		RET
		main: MOV RB,func
		CALL RB
		MOV RC,1
		SYSCALL RC,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "42", out)
}

func TestScenarioLoopZeroToFour(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,0
		MOV RB,5
		MOV RC,1
	loop: JGE RA,RB,done
		SYSCALL RC,RA
		INC RA
		JMP loop
	done: HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "01234", out)
}

func TestScenarioStrcmpEqual(t *testing.T) {
	out, _, err := runProgram(t, `
		JMP start
	s1: .DS "hello"
	s2: .DS "hello"
	start: MOV RA,s1
		MOV RB,s2
		MOV RC,6
		SYSCALL RC,RA,RB
		MOV RA,1
		SYSCALL RA,RC
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "0", out)
}

func TestNotNegSwap(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,5
		NOT RA
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "-5", out) // NOT is arithmetic negation, swapped vs common usage

	out, _, err = runProgram(t, `
		MOV RA,5
		NEG RA
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "-6", out) // NEG is bitwise complement: ~5 == -6
}

func TestDivisionByZeroFaults(t *testing.T) {
	_, _, err := runProgram(t, `
		MOV RA,1
		MOV RB,0
		DIV RC,RA,RB
		HALT
	`, "")
	require.Error(t, err)
	fault, ok := err.(*vm.Fault)
	require.True(t, ok)
	require.Equal(t, vm.ArithmeticFault, fault.Kind)
}

func TestModuloFollowsDivisorSign(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,-7
		MOV RB,2
		MOD RC,RA,RB
		MOV RA,1
		SYSCALL RA,RC
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "1", out) // genuine Python %: sign follows the divisor
}

func TestPushaPopaIsIdentity(t *testing.T) {
	_, machine, err := runProgram(t, `
		MOV RA,1
		MOV RB,2
		MOV RC,3
		PUSHA RA,RB,RC
		MZERO RA
		MZERO RB
		MZERO RC
		POPA RA,RB,RC
		HALT
	`, "")
	require.NoError(t, err)
	require.EqualValues(t, 1, machine.CPU.Regs[0])
	require.EqualValues(t, 2, machine.CPU.Regs[1])
	require.EqualValues(t, 3, machine.CPU.Regs[2])
	require.Equal(t, vm.StackTop, machine.CPU.SP)
}

func TestMemoryOutOfBoundsFaults(t *testing.T) {
	// -0x200000 sign-extends to an address below the stack segment's
	// floor and above the default code+data segment's ceiling: the
	// illegal gap between the two legal regions.
	_, _, err := runProgram(t, `
		LOADI RB,-0x200000
		HALT
	`, "")
	require.Error(t, err)
	fault, ok := err.(*vm.Fault)
	require.True(t, ok)
	require.Equal(t, vm.MemoryFault, fault.Kind)
}

func TestUnwrittenMemoryReadsAsZero(t *testing.T) {
	out, _, err := runProgram(t, `
		LOADI RA,0x500
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "0", out)
}

func TestSyscallReadStrZeroLengthWritesNothing(t *testing.T) {
	out, machine, err := runProgram(t, `
		MOV RB,0x500
		MOV RC,0
		MOV RA,4
		SYSCALL RA,RB,RC
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`, "hello\n")
	require.NoError(t, err)
	require.Equal(t, "0", out) // regs[r3]=0: zero bytes written, 0 returned

	b, err := machine.Memory.ReadByte(0x500)
	require.NoError(t, err)
	require.Equal(t, byte(0), b) // untouched
}

func TestSyscallReadStrWritesTrimmedLine(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RB,0x500
		MOV RC,10
		MOV RA,4
		SYSCALL RA,RB,RC
		MOVR RC,RA
		MOV RA,2
		SYSCALL RA,RB,RC
		HALT
	`, "hi\n")
	require.NoError(t, err)
	require.Equal(t, "hi", out) // trailing newline stripped before the write
}

func TestSyscallStrlen(t *testing.T) {
	out, _, err := runProgram(t, `
		JMP start
	s: .DS "hello"
	start: MOV RB,s
		MOV RA,5
		SYSCALL RA,RB
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "5", out)
}

func TestSyscallPrintHex(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,255
		MOV RB,7
		SYSCALL RB,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "0xFF", out)
}

func TestSyscallRandomFoldsTo24Bits(t *testing.T) {
	_, machine, err := runProgram(t, `
		MOV RA,8
		SYSCALL RA
		HALT
	`, "")
	require.NoError(t, err)
	v := machine.CPU.Regs[0]
	require.GreaterOrEqual(t, v, int32(-0x800000))
	require.Less(t, v, int32(0x800000))
}

func TestSyscallDiagnosticNameKnown(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,9
		MOV RB,1
		MOV RC,0xFFF
		SYSCALL RA,RB,RC
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "PRINT INT", out)
}

func TestSyscallDiagnosticNameUnknownSyscallNumber(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,9
		MOV RB,999
		MOV RC,0xFFF
		SYSCALL RA,RB,RC
		HALT
	`, "")
	require.Error(t, err)
	exit, ok := err.(*vm.Exit)
	require.True(t, ok)
	require.EqualValues(t, 1, exit.Code)
	require.Equal(t, "Unknown SYSCALL\n", out)
}

func TestSyscallDiagnosticNameWithoutSentinelExits(t *testing.T) {
	out, _, err := runProgram(t, `
		MOV RA,9
		MOV RB,1
		MOV RC,0
		SYSCALL RA,RB,RC
		HALT
	`, "")
	require.Error(t, err)
	exit, ok := err.(*vm.Exit)
	require.True(t, ok)
	require.EqualValues(t, 1, exit.Code)
	require.Equal(t, "Unknown syscall\n", out)
}

func TestSyscallOSExecRunsCommand(t *testing.T) {
	out, _, err := runProgram(t, `
		JMP start
	cmd: .DS "echo hi"
	start: MOV RB,cmd
		MOV RC,7
		MOV RA,10
		SYSCALL RA,RB,RC
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "hi\n", out)
}

func TestSyscallOSExecZeroLengthRunsEmptyCommand(t *testing.T) {
	// regs[r3]=0 must run the empty command, not scan memory for a NUL
	// terminator starting at whatever address regs[r2] names.
	out, _, err := runProgram(t, `
		MOV RB,0
		MOV RC,0
		MOV RA,10
		SYSCALL RA,RB,RC
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`, "")
	require.NoError(t, err)
	require.Equal(t, "0", out) // `/bin/sh -c ''` exits 0 with no output
}

func TestInstructionCeilingIsEnforced(t *testing.T) {
	img, errs := parser.Assemble(strings.NewReader(`
	loop: JMP loop
	`))
	require.Empty(t, errs)

	cfg := vm.DefaultConfig()
	cfg.MaxInstructions = 100
	machine := vm.New(cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, machine.LoadProgram(img))

	err := machine.Run()
	require.Error(t, err)
	_, ok := err.(*vm.ResourceExhausted)
	require.True(t, ok)
}
