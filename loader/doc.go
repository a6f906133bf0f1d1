// Package loader opens .any containers and runs operations on them.
//
//	eng, _ := engine.NewWazeroEngine(ctx, nil)
//	r := loader.New(eng, loader.WithWarningHandler(func(err error) {
//	    log.Printf("warning: %v", err)
//	}))
//	meta, err := r.Run(ctx, data, loader.OpInfo)
//	payload, err := r.Run(ctx, data, loader.OpExtract)
//
// info encodes the metadata document and never touches the module. extract
// stages the module and payload in the engine, best effort, and always
// returns the payload bytes verbatim once the container has parsed. Engine
// failures surface as engine_warning errors through the warning handler and
// the log, never as the returned error.
package loader
