package container

import (
	"github.com/wippyai/anyfile/metadata"
)

// Conventional metadata keys filled by Describe.
const (
	KeyName             = "name"
	KeyDescription      = "description"
	KeyOriginalFilename = "original_filename"
	KeyOriginalSize     = "original_size"
)

// Create builds a container from its regions. A nil doc means the empty
// document. Size fields stay zero until Serialize computes them.
func Create(module, payload []byte, doc *metadata.Document) *Container {
	meta := metadata.New()
	if doc != nil {
		meta = *doc
	}
	return &Container{
		Header:   NewHeader(),
		Module:   nonNil(module),
		Payload:  nonNil(payload),
		Metadata: meta,
	}
}

// Describe returns the conventional metadata for a payload read from
// filename. An empty name falls back to filename.
func Describe(name, description, filename string, payload []byte) metadata.Document {
	if name == "" {
		name = filename
	}
	d := metadata.New()
	d.Set(KeyName, metadata.String(name))
	d.Set(KeyDescription, metadata.String(description))
	d.Set(KeyOriginalFilename, metadata.String(filename))
	d.Set(KeyOriginalSize, metadata.Int(int64(len(payload))))
	return d
}

// OriginalFilename returns the original_filename metadata entry, if it is a
// non-empty string.
func (c *Container) OriginalFilename() (string, bool) {
	name, ok := c.Metadata.GetString(KeyOriginalFilename)
	return name, ok && name != ""
}
