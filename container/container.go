package container

import (
	"bytes"
	"io"
	"math"

	anyerrors "github.com/wippyai/anyfile/errors"
	"github.com/wippyai/anyfile/metadata"
)

// Region names as used in errors and layout listings.
const (
	RegionModule   = "module"
	RegionPayload  = "payload"
	RegionMetadata = "metadata"
)

// Container is one .any file held in memory. It exclusively owns its three
// regions. Header size fields are only authoritative right after Serialize
// or Deserialize; Serialize recomputes them from the regions, so regions may
// be replaced freely in between.
//
// A Container is not safe for concurrent use.
type Container struct {
	Header   Header
	Module   []byte
	Payload  []byte
	Metadata metadata.Document
}

// Region describes where one region sits in the serialized stream.
type Region struct {
	Name   string
	Offset uint64
	Size   uint64
}

// Option configures Deserialize.
type Option func(*parseConfig)

type parseConfig struct {
	strict bool
}

// Strict makes Deserialize reject bytes after the metadata region with a
// TrailingData error. By default they are ignored.
func Strict() Option {
	return func(c *parseConfig) { c.strict = true }
}

// WithStrict is Strict driven by a flag, for configuration plumbing.
func WithStrict(strict bool) Option {
	return func(c *parseConfig) { c.strict = strict }
}

// Serialize recomputes the header sizes from the current regions and returns
// header, module, payload and metadata concatenated in that order.
func (c *Container) Serialize() ([]byte, error) {
	meta, err := c.syncHeader()
	if err != nil {
		return nil, err
	}
	total := HeaderSize + len(c.Module) + len(c.Payload) + len(meta)
	out, err := c.Header.AppendBinary(make([]byte, 0, total))
	if err != nil {
		return nil, err
	}
	out = append(out, c.Module...)
	out = append(out, c.Payload...)
	out = append(out, meta...)
	return out, nil
}

// WriteTo writes the serialized container to w. It implements io.WriterTo.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	meta, err := c.syncHeader()
	if err != nil {
		return 0, err
	}
	hdr, err := c.Header.MarshalBinary()
	if err != nil {
		return 0, err
	}
	var written int64
	for _, part := range [][]byte{hdr, c.Module, c.Payload, meta} {
		n, err := w.Write(part)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Size returns the serialized length.
func (c *Container) Size() (int, error) {
	meta, err := c.syncHeader()
	if err != nil {
		return 0, err
	}
	return HeaderSize + len(c.Module) + len(c.Payload) + len(meta), nil
}

// Regions returns the layout of the three regions as last recorded in the
// header. Call after Serialize or Deserialize.
func (c *Container) Regions() []Region {
	off := uint64(HeaderSize)
	regions := make([]Region, 0, 3)
	for _, r := range []struct {
		name string
		size uint64
	}{
		{RegionModule, c.Header.WasmSize},
		{RegionPayload, c.Header.DataSize},
		{RegionMetadata, c.Header.MetadataSize},
	} {
		regions = append(regions, Region{Name: r.name, Offset: off, Size: r.size})
		off += r.size
	}
	return regions
}

// syncHeader encodes the metadata and rewrites the three size fields.
func (c *Container) syncHeader() ([]byte, error) {
	meta, err := metadata.Encode(c.Metadata)
	if err != nil {
		return nil, err
	}
	c.Header.WasmSize = uint64(len(c.Module))
	c.Header.DataSize = uint64(len(c.Payload))
	c.Header.MetadataSize = uint64(len(meta))
	return meta, nil
}

// Deserialize parses a complete container. Region boundaries come only from
// the header size fields. The returned container does not alias b.
func Deserialize(b []byte, opts ...Option) (*Container, error) {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	if !h.Valid() {
		return nil, anyerrors.InvalidMagic(h.Magic, Magic)
	}

	body, ok := h.BodySize()
	if !ok || body > uint64(len(b)-HeaderSize) {
		need := uint64(math.MaxUint64)
		if ok && body <= math.MaxUint64-HeaderSize {
			need = body + HeaderSize
		}
		return nil, anyerrors.TruncatedContainer(firstShortRegion(h, len(b)), need, len(b))
	}

	off := uint64(HeaderSize)
	next := func(n uint64) []byte {
		region := bytes.Clone(b[off : off+n])
		off += n
		return region
	}
	module := next(h.WasmSize)
	payload := next(h.DataSize)
	metaBytes := b[off : off+h.MetadataSize]
	off += h.MetadataSize

	if cfg.strict && off != uint64(len(b)) {
		return nil, anyerrors.TrailingData(len(b) - int(off))
	}

	doc, err := metadata.Decode(metaBytes)
	if err != nil {
		return nil, err
	}

	return &Container{
		Header:   h,
		Module:   nonNil(module),
		Payload:  nonNil(payload),
		Metadata: doc,
	}, nil
}

// ReadFrom reads r to EOF and parses the result. The format has no
// incremental mode; the whole stream is buffered.
func ReadFrom(r io.Reader, opts ...Option) (*Container, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Deserialize(b, opts...)
}

// firstShortRegion names the first region that does not fit in n bytes.
func firstShortRegion(h Header, n int) string {
	avail := uint64(n - HeaderSize)
	for _, r := range []struct {
		name string
		size uint64
	}{
		{RegionModule, h.WasmSize},
		{RegionPayload, h.DataSize},
		{RegionMetadata, h.MetadataSize},
	} {
		if r.size > avail {
			return r.name
		}
		avail -= r.size
	}
	return RegionMetadata
}

// nonNil keeps empty regions as empty, non-nil slices.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
