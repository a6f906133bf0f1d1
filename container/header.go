package container

import (
	"encoding/binary"

	anyerrors "github.com/wippyai/anyfile/errors"
)

const (
	// Magic identifies an .any container ("ANYF" big-endian).
	Magic uint32 = 0x414E5946

	// VersionMajor and VersionMinor are written by this package. Readers do
	// not reject other versions.
	VersionMajor uint32 = 1
	VersionMinor uint32 = 0

	// HeaderSize is the fixed width of the encoded header.
	HeaderSize = 36
)

// Header field offsets.
const (
	offMagic        = 0
	offVersionMajor = 4
	offVersionMinor = 8
	offWasmSize     = 12
	offDataSize     = 20
	offMetadataSize = 28
)

// Header is the fixed record in front of the three container regions.
// All fields are big-endian on disk.
type Header struct {
	Magic        uint32
	VersionMajor uint32
	VersionMinor uint32
	WasmSize     uint64
	DataSize     uint64
	MetadataSize uint64
}

// NewHeader returns a header with the magic and current version set and
// zero region sizes.
func NewHeader() Header {
	return Header{
		Magic:        Magic,
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
	}
}

// Valid reports whether the magic number matches.
func (h Header) Valid() bool {
	return h.Magic == Magic
}

// Compatible reports whether the major version is the one this package
// writes. Informational only; Deserialize does not check it.
func (h Header) Compatible() bool {
	return h.VersionMajor == VersionMajor
}

// BodySize returns the declared length of the three regions and whether
// the sum fits in a uint64.
func (h Header) BodySize() (uint64, bool) {
	total := h.WasmSize
	for _, n := range [...]uint64{h.DataSize, h.MetadataSize} {
		if total+n < total {
			return 0, false
		}
		total += n
	}
	return total, true
}

// AppendBinary appends the 36-byte encoding of h to b.
func (h Header) AppendBinary(b []byte) ([]byte, error) {
	b = binary.BigEndian.AppendUint32(b, h.Magic)
	b = binary.BigEndian.AppendUint32(b, h.VersionMajor)
	b = binary.BigEndian.AppendUint32(b, h.VersionMinor)
	b = binary.BigEndian.AppendUint64(b, h.WasmSize)
	b = binary.BigEndian.AppendUint64(b, h.DataSize)
	b = binary.BigEndian.AppendUint64(b, h.MetadataSize)
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, HeaderSize))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Header) UnmarshalBinary(b []byte) error {
	decoded, err := DecodeHeader(b)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}

// DecodeHeader reads a header from the first HeaderSize bytes of b. Extra
// bytes are ignored. The magic is not checked; use Valid.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, anyerrors.TruncatedHeader(len(b), HeaderSize)
	}
	return Header{
		Magic:        binary.BigEndian.Uint32(b[offMagic:]),
		VersionMajor: binary.BigEndian.Uint32(b[offVersionMajor:]),
		VersionMinor: binary.BigEndian.Uint32(b[offVersionMinor:]),
		WasmSize:     binary.BigEndian.Uint64(b[offWasmSize:]),
		DataSize:     binary.BigEndian.Uint64(b[offDataSize:]),
		MetadataSize: binary.BigEndian.Uint64(b[offMetadataSize:]),
	}, nil
}
