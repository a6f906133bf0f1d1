// Package wasm emits small WebAssembly binary modules used as .any
// bootstrap code.
//
// The encoder covers the sections a bootstrap needs: types, functions,
// memories, exports, code and custom sections. It is not a general
// parser; engines load and inspect modules themselves.
//
// # Bootstrap Modules
//
//	wasm.Minimal().Encode()    // exports an empty "main" function
//	wasm.WithMemory(1).Encode() // also exports one page of "memory"
//
// The minimal module encodes to 34 bytes:
//
//	00 61 73 6d 01 00 00 00   preamble
//	01 04 01 60 00 00         type section: () -> ()
//	03 02 01 00               function section
//	07 08 01 04 6d 61 69 6e   export section: "main"
//	00 00
//	0a 04 01 02 00 0b         code section: empty body
//
// # Building Modules
//
//	m := &wasm.Module{}
//	fn := m.AddFunc(wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}},
//	    wasm.FuncBody{Code: []byte{0x41, 0x2a, wasm.OpEnd}}) // i32.const 42
//	m.Exports = append(m.Exports, wasm.Export{Name: "answer", Kind: wasm.KindFunc, Idx: fn})
//	if err := m.Validate(); err != nil {
//	    return err
//	}
//	b := m.Encode()
package wasm
