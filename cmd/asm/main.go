// Command asm assembles Unknown Runes source into a flat binary image.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/unknownrunes/rune-vm/parser"
)

func main() {
	var output = flag.String("o", "", "output file path (default: <source>.rune)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: asm <source> [-o <output>]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// flag.Parse stops at the first non-flag argument; parse the rest again
	// so that options may also follow the source path.
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

	sourcePath := args[0]
	outPath := *output
	if outPath == "" {
		ext := filepath.Ext(sourcePath)
		outPath = strings.TrimSuffix(sourcePath, ext) + ".rune"
	}

	f, err := os.Open(sourcePath) // #nosec G304 -- user-supplied source path
	if err != nil {
		fmt.Fprintf(os.Stderr, "ASM ERROR: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	image, errs := parser.Assemble(f)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "ASM ERROR: Line %d: %s\n", e.Line, e.Message)
		}
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, image, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "ASM ERROR: writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("%d bytes written to %s\n", len(image), outPath)
}
