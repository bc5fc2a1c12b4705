// Package debugger provides an optional single-step trace viewer for the
// Unknown Runes VM, built on tcell/tview. It is a convenience around the
// vm.TraceHook mechanism, not a debugger protocol: it steps a vm.VM that
// the caller has loaded (F10 one instruction, F5 to completion) and shows
// its registers, an instruction trace and the program's output. It has no
// memory view and no breakpoints.
package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unknownrunes/rune-vm/isa"
	"github.com/unknownrunes/rune-vm/vm"
)

// TUI is a minimal single-step trace viewer: three registers, PC/SP, a
// scrolling instruction trace, and a scrolling program output pane.
type TUI struct {
	VM  *vm.VM
	App *tview.Application

	Layout       *tview.Flex
	RegisterView *tview.TextView
	TraceView    *tview.TextView
	OutputView   *tview.TextView

	stepping bool
	done     bool
	runErr   error
}

// NewTUI builds the view hierarchy for machine. The caller is expected to
// have already loaded a program into machine.
func NewTUI(machine *vm.VM) *TUI {
	t := &TUI{
		VM:  machine,
		App: tview.NewApplication(),
	}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	machine.Trace = t.onStep
	machine.Out = t.OutputView
	return t
}

func (t *TUI) initializeViews() {
	t.RegisterView = tview.NewTextView().SetDynamicColors(true)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.TraceView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.TraceView.SetBorder(true).SetTitle(" Trace ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")
}

func (t *TUI) buildLayout() {
	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.RegisterView, 0, 1, false).
		AddItem(t.TraceView, 0, 3, false)

	t.Layout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 0, 3, false).
		AddItem(t.OutputView, 8, 0, false)
}

// setupKeyBindings wires F10 to single-step and F5 to run to completion.
func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10:
			t.step()
			return nil
		case tcell.KeyF5:
			t.runToCompletion()
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		}
		return event
	})
}

func (t *TUI) step() {
	if t.done {
		return
	}
	if err := t.VM.Step(); err != nil {
		t.done = true
		t.runErr = err
		t.writeOutput(fmt.Sprintf("[red]%v[white]\n", err))
	} else if t.VM.Halted {
		t.done = true
	}
	t.refresh()
}

func (t *TUI) runToCompletion() {
	for !t.done {
		t.step()
	}
}

// onStep is installed as the VM's TraceHook; it appends one line per
// executed instruction to the trace view.
func (t *TUI) onStep(s vm.Step) {
	line := vm.FormatTraceLine(s)
	fmt.Fprintln(t.TraceView, line)
	t.TraceView.ScrollToEnd()
}

func (t *TUI) writeOutput(text string) {
	_, _ = t.OutputView.Write([]byte(text))
	t.OutputView.ScrollToEnd()
}

func (t *TUI) refresh() {
	t.updateRegisterView()
	t.App.Draw()
}

func (t *TUI) updateRegisterView() {
	cpu := t.VM.CPU
	lines := []string{
		fmt.Sprintf("RA = %s", isa.RegisterName(isa.RA)),
		fmt.Sprintf("  %d (0x%06X)", cpu.Regs[isa.RA], uint32(isa.To24(cpu.Regs[isa.RA]))),
		fmt.Sprintf("RB = %s", isa.RegisterName(isa.RB)),
		fmt.Sprintf("  %d (0x%06X)", cpu.Regs[isa.RB], uint32(isa.To24(cpu.Regs[isa.RB]))),
		fmt.Sprintf("RC = %s", isa.RegisterName(isa.RC)),
		fmt.Sprintf("  %d (0x%06X)", cpu.Regs[isa.RC], uint32(isa.To24(cpu.Regs[isa.RC]))),
		"",
		fmt.Sprintf("PC = 0x%016X", cpu.PC),
		fmt.Sprintf("SP = 0x%016X", cpu.SP),
		"",
		fmt.Sprintf("instructions = %d", t.VM.InstrCount),
	}
	t.RegisterView.SetText(strings.Join(lines, "\n"))
}

// Run starts the tview event loop. It blocks until the application
// exits (Ctrl-C) or the VM halts and the user quits.
func (t *TUI) Run() error {
	t.refresh()
	return t.App.SetRoot(t.Layout, true).SetFocus(t.Layout).Run()
}

// Stop tears down the tview application.
func (t *TUI) Stop() {
	t.App.Stop()
}
