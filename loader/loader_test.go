package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unknownrunes/rune-vm/parser"
	"github.com/unknownrunes/rune-vm/vm"
)

func TestLoadFileRunsAssembledImage(t *testing.T) {
	img, errs := parser.Assemble(strings.NewReader(`
		MOV RA,42
		MOV RB,1
		SYSCALL RB,RA
		HALT
	`))
	require.Empty(t, errs)

	path := filepath.Join(t.TempDir(), "prog.rune")
	require.NoError(t, os.WriteFile(path, img, 0644))

	var out bytes.Buffer
	machine := vm.New(vm.DefaultConfig(), strings.NewReader(""), &out)
	require.NoError(t, LoadFile(machine, path))
	require.NoError(t, machine.Run())
	require.Equal(t, "42", out.String())
}

func TestLoadFileMissingFileErrors(t *testing.T) {
	machine := vm.New(vm.DefaultConfig(), strings.NewReader(""), &bytes.Buffer{})
	err := LoadFile(machine, filepath.Join(t.TempDir(), "nope.rune"))
	require.Error(t, err)
}

func TestReadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.rune")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))

	img, err := ReadImage(path)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, img)
}
