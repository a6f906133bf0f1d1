package wasm

import (
	"bytes"
	"encoding/binary"
)

// Encode encodes the module to WebAssembly binary format. Empty sections
// are omitted. Encode does not validate; call Validate first for modules
// built by hand.
func (m *Module) Encode() []byte {
	w := newWriter()

	w.writeU32LE(Magic)
	w.writeU32LE(Version)

	if len(m.Types) > 0 {
		sec := newWriter()
		sec.writeU32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.byte(FuncTypeByte)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}
		writeSection(w, SectionType, sec.bytes())
	}

	if len(m.Funcs) > 0 {
		sec := newWriter()
		sec.writeU32(uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			sec.writeU32(typeIdx)
		}
		writeSection(w, SectionFunction, sec.bytes())
	}

	if len(m.Memories) > 0 {
		sec := newWriter()
		sec.writeU32(uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			if mem.Max != nil {
				sec.byte(limitsMinMax)
				sec.writeU32(mem.Min)
				sec.writeU32(*mem.Max)
			} else {
				sec.byte(limitsMinOnly)
				sec.writeU32(mem.Min)
			}
		}
		writeSection(w, SectionMemory, sec.bytes())
	}

	if len(m.Exports) > 0 {
		sec := newWriter()
		sec.writeU32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.writeName(exp.Name)
			sec.byte(exp.Kind)
			sec.writeU32(exp.Idx)
		}
		writeSection(w, SectionExport, sec.bytes())
	}

	if m.Start != nil {
		sec := newWriter()
		sec.writeU32(*m.Start)
		writeSection(w, SectionStart, sec.bytes())
	}

	if len(m.Code) > 0 {
		sec := newWriter()
		sec.writeU32(uint32(len(m.Code)))
		for _, body := range m.Code {
			fn := newWriter()
			fn.writeU32(uint32(len(body.Locals)))
			for _, local := range body.Locals {
				fn.writeU32(local.Count)
				fn.byte(byte(local.ValType))
			}
			fn.writeBytes(body.Code)
			sec.writeU32(uint32(fn.len()))
			sec.writeBytes(fn.bytes())
		}
		writeSection(w, SectionCode, sec.bytes())
	}

	for _, cs := range m.Customs {
		sec := newWriter()
		sec.writeName(cs.Name)
		sec.writeBytes(cs.Data)
		writeSection(w, SectionCustom, sec.bytes())
	}

	return w.bytes()
}

func writeSection(w *writer, id byte, data []byte) {
	w.byte(id)
	w.writeU32(uint32(len(data)))
	w.writeBytes(data)
}

func writeValTypes(w *writer, types []ValType) {
	w.writeU32(uint32(len(types)))
	for _, t := range types {
		w.byte(byte(t))
	}
}

// writer accumulates LEB128 and raw bytes for one section.
type writer struct {
	buf bytes.Buffer
}

func newWriter() *writer { return &writer{} }

func (w *writer) bytes() []byte { return w.buf.Bytes() }

func (w *writer) len() int { return w.buf.Len() }

func (w *writer) byte(b byte) { w.buf.WriteByte(b) }

func (w *writer) writeBytes(data []byte) { w.buf.Write(data) }

// writeU32 writes an unsigned LEB128 encoded uint32.
func (w *writer) writeU32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func (w *writer) writeU32LE(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// writeName writes a length-prefixed UTF-8 name.
func (w *writer) writeName(s string) {
	w.writeU32(uint32(len(s)))
	w.buf.WriteString(s)
}
