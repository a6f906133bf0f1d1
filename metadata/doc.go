// Package metadata implements the schema-less metadata document carried in
// the last region of an .any container.
//
// A Document maps string keys to Values. Value is a tagged variant over the
// JSON data model (null, bool, number, string, list, object); nested
// documents and lists are allowed to any depth and numbers keep their
// literal text, so integer precision is never lost to float64.
//
// On disk the document is compact UTF-8 JSON. The empty document encodes to
// a zero-length region and a zero-length region decodes to the empty
// document:
//
//	doc := metadata.New()
//	doc.Set("name", metadata.String("report.pdf"))
//	doc.Set("original_size", metadata.Int(52311))
//	b, err := metadata.Encode(doc)
//
//	back, err := metadata.Decode(b)
//	metadata.Object(doc) // wrap a document as a nested value
//
// Key order is remembered for stable output but is not significant: Decode
// sorts keys and Equal ignores order. EncodeYAML and DecodeYAML provide a
// YAML view of the same document for human-edited metadata files.
package metadata
