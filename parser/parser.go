// Package parser implements the Unknown Runes two-pass text assembler:
// pass 1 walks the source computing byte offsets and a label table, pass
// 2 re-walks the source emitting encoded instructions and directive
// bytes, resolving labels against the pass-1 table.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/unknownrunes/rune-vm/encoder"
	"github.com/unknownrunes/rune-vm/isa"
)

type sourceLine struct {
	LineNo int
	Label  string
	Tokens []string // mnemonic/directive name followed by operand tokens; nil for a label-only line
}

// Assemble translates assembly source read from r into a flat byte
// image. On success it returns the image and a nil/empty ErrorList; on
// failure it returns a nil image and the accumulated errors, each
// carrying its source line number.
func Assemble(r io.Reader) ([]byte, ErrorList) {
	lines, errs := scan(r)
	if len(errs) > 0 {
		return nil, errs
	}

	symtab := NewSymbolTable()
	addrs := make([]uint32, len(lines))

	// Pass 1: compute byte offsets and the label table.
	offset := uint32(0)
	for i, ln := range lines {
		addrs[i] = offset
		if ln.Label != "" {
			if !symtab.Define(ln.Label, offset) {
				errs.add(ln.LineNo, "duplicate label %q", ln.Label)
			}
		}
		size, err := sizeOfLine(ln, offset)
		if err != nil {
			errs.add(ln.LineNo, "%s", err)
			continue
		}
		offset += size
	}

	if len(errs) > 0 {
		return nil, errs
	}

	// Pass 2: emit, resolving labels through the pass-1 table.
	out := make([]byte, 0, offset)
	for i, ln := range lines {
		emitted, err := emitLine(ln, addrs[i], symtab)
		if err != nil {
			errs.add(ln.LineNo, "%s", err)
			continue
		}
		out = append(out, emitted...)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return out, nil
}

func scan(r io.Reader) ([]sourceLine, ErrorList) {
	var lines []sourceLine
	var errs ErrorList

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := StripComment(scanner.Text())
		label, rest := SplitLabel(raw)
		tokens := Tokenize(rest)
		if label == "" && len(tokens) == 0 {
			continue
		}
		lines = append(lines, sourceLine{LineNo: lineNo, Label: label, Tokens: tokens})
	}
	return lines, errs
}

func sizeOfLine(ln sourceLine, offset uint32) (uint32, error) {
	if len(ln.Tokens) == 0 {
		return 0, nil
	}
	head := strings.ToUpper(ln.Tokens[0])
	args := ln.Tokens[1:]

	switch head {
	case ".DB", ".BYTE":
		return uint32(len(args)), nil
	case ".DW", ".WORD":
		return uint32(len(args)) * 3, nil
	case ".DS", ".STRING":
		if len(args) != 1 {
			return 0, fmt.Errorf("%s expects exactly one string literal", head)
		}
		decoded, err := decodeStringToken(args[0])
		if err != nil {
			return 0, err
		}
		return uint32(len(decoded)) + 1, nil
	case ".ALIGN":
		pad := (isa.InstrSize - int(offset%isa.InstrSize)) % isa.InstrSize
		return uint32(pad), nil
	}

	m, ok := isa.Lookup(head)
	if !ok {
		return 0, fmt.Errorf("unknown mnemonic %q", head)
	}
	if err := checkOperandCount(m, args); err != nil {
		return 0, err
	}
	return isa.InstrSize, nil
}

func emitLine(ln sourceLine, addr uint32, symtab *SymbolTable) ([]byte, error) {
	if len(ln.Tokens) == 0 {
		return nil, nil
	}
	head := strings.ToUpper(ln.Tokens[0])
	args := ln.Tokens[1:]

	switch head {
	case ".DB", ".BYTE":
		out := make([]byte, 0, len(args))
		for _, a := range args {
			v, err := parseImmediateOrLabel(a, symtab)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(v))
		}
		return out, nil

	case ".DW", ".WORD":
		out := make([]byte, 0, len(args)*3)
		for _, a := range args {
			v, err := parseImmediateOrLabel(a, symtab)
			if err != nil {
				return nil, err
			}
			u := isa.To24(v)
			out = append(out, byte(u), byte(u>>8), byte(u>>16))
		}
		return out, nil

	case ".DS", ".STRING":
		decoded, err := decodeStringToken(args[0])
		if err != nil {
			return nil, err
		}
		out := append([]byte(decoded), 0)
		return out, nil

	case ".ALIGN":
		pad := (isa.InstrSize - int(addr%isa.InstrSize)) % isa.InstrSize
		return make([]byte, pad), nil
	}

	m, ok := isa.Lookup(head)
	if !ok {
		return nil, fmt.Errorf("unknown mnemonic %q", head)
	}
	if err := checkOperandCount(m, args); err != nil {
		return nil, err
	}
	return encodeInstruction(m, args, symtab)
}

// checkOperandCount validates the operand count (but not operand
// content) against a mnemonic's fixed format. SYSCALL's variadic format
// is checked separately in encodeInstruction.
func checkOperandCount(m isa.Mnemonic, args []string) error {
	if m.Fmt == isa.FmtVariadic {
		if len(args) < 1 || len(args) > 3 {
			return fmt.Errorf("%s expects 1 to 3 register operands, got %d", m.Name, len(args))
		}
		return nil
	}
	want := len(m.Fmt)
	if len(args) != want {
		return fmt.Errorf("%s expects %d operand(s), got %d", m.Name, want, len(args))
	}
	return nil
}

func encodeInstruction(m isa.Mnemonic, args []string, symtab *SymbolTable) ([]byte, error) {
	r1, r2, r3 := isa.NoReg, isa.NoReg, isa.NoReg
	var imm int32

	if m.Fmt == isa.FmtVariadic {
		// Non-strict: SYSCALL accepts any of RA/RB/RC in any operand
		// slot; the first operand's register holds the syscall number
		// whichever register it names. See the SYSCALL-strictness
		// design note for why the stricter RA/RB/RC-only variant was
		// rejected.
		regs := make([]int, len(args))
		for i, a := range args {
			reg, err := parseRegister(a)
			if err != nil {
				return nil, err
			}
			regs[i] = reg
		}
		r1 = regs[0]
		if len(regs) > 1 {
			r2 = regs[1]
		}
		if len(regs) > 2 {
			r3 = regs[2]
		}
	} else {
		regIdx := 0
		for _, kind := range m.Fmt {
			arg := args[0]
			args = args[1:]
			switch kind {
			case 'r':
				reg, err := parseRegister(arg)
				if err != nil {
					return nil, err
				}
				switch regIdx {
				case 0:
					r1 = reg
				case 1:
					r2 = reg
				case 2:
					r3 = reg
				}
				regIdx++
			case 'i':
				v, err := parseImmediateOrLabel(arg, symtab)
				if err != nil {
					return nil, err
				}
				imm = v
			}
		}
	}

	bytes := encoder.EncodeDecoded(m.Opcode, r1, r2, r3, isa.To24(imm))
	return bytes[:], nil
}

func parseRegister(tok string) (int, error) {
	switch strings.ToUpper(tok) {
	case "RA":
		return isa.RA, nil
	case "RB":
		return isa.RB, nil
	case "RC":
		return isa.RC, nil
	default:
		return 0, fmt.Errorf("expected register (RA/RB/RC), got %q", tok)
	}
}

func parseImmediateOrLabel(tok string, symtab *SymbolTable) (int32, error) {
	if symtab != nil && symtab.Has(tok) {
		off, err := symtab.Get(tok)
		if err != nil {
			return 0, err
		}
		return int32(off), nil
	}

	neg := false
	s := tok
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseInt(s[2:], 16, 64)
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		v, err = strconv.ParseInt(s[2:], 2, 64)
	default:
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("unknown label or malformed immediate %q", tok)
	}
	if neg {
		v = -v
	}
	return int32(v), nil
}

func decodeStringToken(tok string) (string, error) {
	if len(tok) >= 2 && (tok[0] == '"' || tok[0] == '\'') {
		tok = tok[1 : len(tok)-1]
	}
	return DecodeEscapes(tok)
}
