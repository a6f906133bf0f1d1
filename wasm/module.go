package wasm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Module is the subset of a WebAssembly module that bootstrap code needs:
// function types, defined functions with bodies, memories, exports, an
// optional start function and custom sections. Imports, tables, globals and
// data segments are not modeled.
type Module struct {
	Start    *uint32 // function run on instantiation
	Types    []FuncType
	Funcs    []uint32 // type index per defined function
	Memories []MemoryType
	Exports  []Export
	Code     []FuncBody
	Customs  []CustomSection
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// MemoryType describes a linear memory in pages.
type MemoryType struct {
	Max *uint32
	Min uint32
}

// Export describes an exported item.
// Kind uses KindFunc or KindMemory.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody holds a function's locals and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // including the end opcode
}

// LocalEntry is a run of locals sharing a type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// AddType appends ft unless an equal signature exists and returns its index.
func (m *Module) AddType(ft FuncType) uint32 {
	for i, existing := range m.Types {
		if bytes.Equal(valTypeBytes(existing.Params), valTypeBytes(ft.Params)) &&
			bytes.Equal(valTypeBytes(existing.Results), valTypeBytes(ft.Results)) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, ft)
	return uint32(len(m.Types) - 1)
}

// AddFunc defines a function with the given signature and body and returns
// its index.
func (m *Module) AddFunc(ft FuncType, body FuncBody) uint32 {
	m.Funcs = append(m.Funcs, m.AddType(ft))
	m.Code = append(m.Code, body)
	return uint32(len(m.Funcs) - 1)
}

// Validate checks index references and section counts.
func (m *Module) Validate() error {
	if len(m.Funcs) != len(m.Code) {
		return fmt.Errorf("wasm: %d functions but %d bodies", len(m.Funcs), len(m.Code))
	}
	for i, idx := range m.Funcs {
		if int(idx) >= len(m.Types) {
			return fmt.Errorf("wasm: function %d references type %d of %d", i, idx, len(m.Types))
		}
	}
	for i, mem := range m.Memories {
		if mem.Min > MaxPages {
			return fmt.Errorf("wasm: memory %d minimum %d exceeds %d pages", i, mem.Min, MaxPages)
		}
		if mem.Max != nil && (*mem.Max < mem.Min || *mem.Max > MaxPages) {
			return fmt.Errorf("wasm: memory %d has invalid maximum %d", i, *mem.Max)
		}
	}
	seen := make(map[string]bool, len(m.Exports))
	for _, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("wasm: duplicate export %q", exp.Name)
		}
		seen[exp.Name] = true
		switch exp.Kind {
		case KindFunc:
			if int(exp.Idx) >= len(m.Funcs) {
				return fmt.Errorf("wasm: export %q references function %d of %d", exp.Name, exp.Idx, len(m.Funcs))
			}
		case KindMemory:
			if int(exp.Idx) >= len(m.Memories) {
				return fmt.Errorf("wasm: export %q references memory %d of %d", exp.Name, exp.Idx, len(m.Memories))
			}
		default:
			return fmt.Errorf("wasm: export %q has unsupported kind %d", exp.Name, exp.Kind)
		}
	}
	if m.Start != nil {
		idx := *m.Start
		if int(idx) >= len(m.Funcs) {
			return fmt.Errorf("wasm: start references function %d of %d", idx, len(m.Funcs))
		}
		if ft := m.Types[m.Funcs[idx]]; len(ft.Params) != 0 || len(ft.Results) != 0 {
			return fmt.Errorf("wasm: start function %d must have type () -> ()", idx)
		}
	}
	return nil
}

// Minimal returns the smallest runnable bootstrap: one function of type
// () -> () with an empty body, exported as "main".
func Minimal() *Module {
	m := &Module{}
	fn := m.AddFunc(FuncType{}, FuncBody{Code: []byte{OpEnd}})
	m.Exports = append(m.Exports, Export{Name: EntryExport, Kind: KindFunc, Idx: fn})
	return m
}

// WithMemory returns Minimal plus one linear memory of the given initial
// size, exported as "memory". The host stages payload bytes into it.
func WithMemory(pages uint32) *Module {
	m := Minimal()
	m.Memories = append(m.Memories, MemoryType{Min: pages})
	m.Exports = append(m.Exports, Export{
		Name: MemoryExport,
		Kind: KindMemory,
		Idx:  uint32(len(m.Memories) - 1),
	})
	return m
}

// IsModule reports whether b starts with the WebAssembly magic and version.
// It does not validate anything past the preamble.
func IsModule(b []byte) bool {
	if len(b) < 8 {
		return false
	}
	return binary.LittleEndian.Uint32(b[0:4]) == Magic &&
		binary.LittleEndian.Uint32(b[4:8]) == Version
}

func valTypeBytes(v []ValType) []byte {
	out := make([]byte, len(v))
	for i, t := range v {
		out[i] = byte(t)
	}
	return out
}
