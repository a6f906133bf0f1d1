// Package anyfile reads and writes .any files: self-describing containers
// that bundle a WebAssembly loader module, an opaque payload and a JSON
// metadata document behind a fixed 36-byte header.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	anyfile/             Root package with file-level helpers
//	├── container/       Header codec, serialization and parsing
//	├── metadata/        Ordered JSON metadata documents (plus YAML import)
//	├── wasm/            Minimal bootstrap module emitter
//	├── engine/          wazero integration: staging, calls, signatures
//	├── loader/          Operation dispatch (info, extract)
//	├── config/          TOML configuration for the CLI and server
//	├── server/          HTTP front end
//	├── errors/          Structured error types for debugging
//	└── cmd/anyfile/     Command line tool
//
// # Quick Start
//
// Pack a payload with the bootstrap module:
//
//	doc := container.Describe("report", "", "report.pdf", pdf)
//	c := container.Create(wasm.Minimal().Encode(), pdf, &doc)
//	if err := anyfile.WriteFile("report.any", c); err != nil {
//	    log.Fatal(err)
//	}
//
// Read it back and run an operation:
//
//	c, err := anyfile.ReadFile("report.any")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := loader.New(eng).RunContainer(ctx, c, loader.OpInfo)
//
// # File Layout
//
// All header integers are big-endian. Regions follow the header in a fixed
// order with no padding:
//
//	offset 0   magic "ANYF", version 1.0, three u64 region sizes
//	offset 36  module bytes
//	           payload bytes
//	           metadata (UTF-8 JSON object, empty when there is no metadata)
//
// Bytes after the metadata region are ignored unless strict parsing is
// requested.
//
// # Thread Safety
//
// Containers and metadata documents are plain values and are not safe for
// concurrent mutation. The engine and loader are safe for concurrent use;
// every staging gets its own anonymous module instance.
package anyfile
