// Command vm runs an assembled Unknown Runes binary image.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/unknownrunes/rune-vm/config"
	"github.com/unknownrunes/rune-vm/debugger"
	"github.com/unknownrunes/rune-vm/loader"
	"github.com/unknownrunes/rune-vm/vm"
)

func main() {
	var (
		debugMode    = flag.Bool("debug", false, "emit a per-instruction trace line to stdout")
		tuiMode      = flag.Bool("tui", false, "open the single-step trace viewer")
		configPath   = flag.String("config", "", "path to a TOML config file (default: platform config dir)")
		maxInstrFlag = flag.Uint64("max-instructions", 0, "override the instruction ceiling (0: use config default)")
		memSizeFlag  = flag.Uint64("mem-size", 0, "override the code+data segment size in bytes (0: use config default)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vm <image> [--debug] [--tui] [--config <path>] [--max-instructions N] [--mem-size N]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// flag.Parse stops at the first non-flag argument; parse the rest again
	// so that options may also follow the image path.
	args := flag.Args()
	if len(args) > 1 {
		first := args[0]
		_ = flag.CommandLine.Parse(args[1:])
		args = append([]string{first}, flag.Args()...)
	}

	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	imagePath := args[0]

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "vm: loading config: %v\n", err)
		os.Exit(1)
	}

	vmCfg := vm.Config{
		MemSize:         cfg.Execution.MemSize,
		MaxInstructions: cfg.Execution.MaxInstructions,
		OSExecTimeout:   cfg.OSExecTimeout(),
		AllowOSExec:     cfg.Execution.AllowOSExec,
	}
	if *maxInstrFlag != 0 {
		vmCfg.MaxInstructions = *maxInstrFlag
	}
	if *memSizeFlag != 0 {
		vmCfg.MemSize = *memSizeFlag
	}

	machine := vm.New(vmCfg, os.Stdin, os.Stdout)
	if err := loader.LoadFile(machine, imagePath); err != nil {
		fmt.Fprintf(os.Stderr, "vm: %v\n", err)
		os.Exit(1)
	}

	if *debugMode || cfg.Debug.TraceByDefault {
		machine.AttachLineTrace(os.Stdout)
	}

	if *tuiMode {
		tui := debugger.NewTUI(machine)
		if err := tui.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "vm: tui: %v\n", err)
			os.Exit(1)
		}
		os.Exit(int(machine.ExitCode))
	}

	runErr := machine.Run()
	switch e := runErr.(type) {
	case nil:
		os.Exit(0)
	case *vm.Exit:
		os.Exit(int(e.Code))
	case *vm.ResourceExhausted:
		fmt.Fprintf(os.Stderr, "vm: instruction ceiling reached after %d instructions\n", e.InstructionCount)
		os.Exit(1)
	case *vm.Fault:
		fmt.Fprintf(os.Stderr, "vm: fault at PC=0x%016X (%d instructions executed): %s: %s\n",
			machine.CPU.PC, machine.InstrCount, e.Kind, e.Reason)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "vm: %v\n", runErr)
		os.Exit(1)
	}
}
