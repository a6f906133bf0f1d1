package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs emitted by Encode. Sections are written in increasing ID
// order; custom sections go last.
const (
	SectionCustom   byte = 0
	SectionType     byte = 1
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionCode     byte = 10
)

// Export descriptor kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
)

// ValType is a value type encoding.
type ValType byte

// Core number types.
const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
	ValF32 ValType = 0x7D
	ValF64 ValType = 0x7C
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// FuncTypeByte prefixes every function type in the type section.
const FuncTypeByte byte = 0x60

// Opcodes used by bootstrap bodies.
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpLoop        byte = 0x03
	OpEnd         byte = 0x0B
	OpBr          byte = 0x0C
)

// BlockEmpty is the block type of a block with no results.
const BlockEmpty byte = 0x40

// Limits flag bytes for memory types.
const (
	limitsMinOnly byte = 0x00
	limitsMinMax  byte = 0x01
)

// PageSize is the size of one linear memory page.
const PageSize = 65536

// MaxPages is the largest 32-bit memory, 4GiB.
const MaxPages = 65536

// Export names used by the bootstrap modules.
const (
	EntryExport  = "main"
	MemoryExport = "memory"
)
