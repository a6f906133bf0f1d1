// Package engine runs .any bootstrap modules on wazero.
//
// The engine is a collaborator of the loader: it never interprets the
// container itself. Given raw module and payload bytes it compiles the
// module, instantiates it without host imports and stages the payload into
// the module's exported linear memory.
//
// # Staging
//
//	eng, err := engine.NewWazeroEngine(ctx, &engine.Config{MemoryLimitPages: 256})
//	defer eng.Close(ctx)
//
//	report, err := eng.Stage(ctx, module, payload)
//	// report.Exports        sorted export names
//	// report.Memory         module exports a memory
//	// report.PayloadWritten bytes copied to offset 0
//
// Memory is grown page by page as needed, up to MemoryLimitPages. Modules
// without an exported memory are instantiated and reported but receive no
// payload.
//
// # Errors
//
// Compile and instantiation failures, including unresolved imports, are
// [engine] instantiation errors. A payload that does not fit within the
// memory limit is an [engine] out_of_bounds error. The loader downgrades
// both to engine_warning.
//
// # Thread Safety
//
// WazeroEngine is safe for concurrent use. Each Stage or Call compiles and
// instantiates an anonymous module that is closed before returning.
package engine
