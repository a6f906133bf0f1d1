// Package container implements the .any container format: a fixed 36-byte
// header followed by an embedded WebAssembly module, an opaque payload and a
// metadata document.
//
// # Binary Layout
//
// All integers are unsigned big-endian:
//
//	Offset                  Size           Field
//	───────────────────────────────────────────────────────
//	0                       4              magic (0x414E5946, "ANYF")
//	4                       4              version_major
//	8                       4              version_minor
//	12                      8              wasm_size
//	20                      8              data_size
//	28                      8              metadata_size
//	36                      wasm_size      module bytes
//	36+wasm_size            data_size      payload bytes
//	36+wasm_size+data_size  metadata_size  metadata (UTF-8 JSON)
//
// There is no padding, no checksum and no in-band terminator. Readers find
// region boundaries from the three size fields only.
//
// # Building and Parsing
//
//	doc := container.Describe("report", "", "report.pdf", payload)
//	c := container.Create(module, payload, &doc)
//	b, err := c.Serialize() // sizes are computed here
//
//	back, err := container.Deserialize(b)
//
// Deserialize fails with typed errors from the errors package:
// truncated_header, invalid_magic, truncated_container and invalid_metadata.
// Bytes after the metadata region are ignored unless Strict is given, in
// which case they are a trailing_data error. Version fields are stored and
// returned but never enforced.
//
// # Thread Safety
//
// Containers are plain values with no shared state. Distinct containers may
// be built and parsed concurrently; a single Container must not be used from
// several goroutines without synchronization.
package container
