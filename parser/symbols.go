package parser

import "fmt"

// SymbolTable maps a case-sensitive label name to the byte offset within
// the output image at which the labeled construct begins. It is
// write-once in pass 1 (subsequent definitions of the same label are a
// caller-reported error) and read-only thereafter.
type SymbolTable struct {
	offsets map[string]uint32
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{offsets: make(map[string]uint32)}
}

// Define records a label's byte offset. It returns false if the label was
// already defined (duplicate label).
func (s *SymbolTable) Define(name string, offset uint32) bool {
	if _, exists := s.offsets[name]; exists {
		return false
	}
	s.offsets[name] = offset
	return true
}

// Get resolves a label to its byte offset.
func (s *SymbolTable) Get(name string) (uint32, error) {
	v, ok := s.offsets[name]
	if !ok {
		return 0, fmt.Errorf("undefined label %q", name)
	}
	return v, nil
}

// Has reports whether name was defined.
func (s *SymbolTable) Has(name string) bool {
	_, ok := s.offsets[name]
	return ok
}
