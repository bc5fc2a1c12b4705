// Package loader reads an assembled Unknown Runes binary image from disk
// and loads it into a fresh VM. The image format is a flat byte stream
// with no header: byte 0 is loaded at address 0, and execution begins
// there.
package loader

import (
	"fmt"
	"os"

	"github.com/unknownrunes/rune-vm/vm"
)

// LoadFile reads the image at path and loads it into machine, resetting
// PC to 0.
func LoadFile(machine *vm.VM, path string) error {
	image, err := os.ReadFile(path) // #nosec G304 -- user-supplied program path
	if err != nil {
		return fmt.Errorf("loader: reading image %q: %w", path, err)
	}
	if err := machine.LoadProgram(image); err != nil {
		return fmt.Errorf("loader: loading image %q: %w", path, err)
	}
	return nil
}

// ReadImage reads a flat binary image from path without loading it,
// for callers that want to inspect or relay the raw bytes (e.g. the
// TCP server, which loads one fresh image per connection).
func ReadImage(path string) ([]byte, error) {
	image, err := os.ReadFile(path) // #nosec G304 -- user-supplied program path
	if err != nil {
		return nil, fmt.Errorf("loader: reading image %q: %w", path, err)
	}
	return image, nil
}
