package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	anyerrors "github.com/wippyai/anyfile/errors"
	"github.com/wippyai/anyfile/wasm"
)

// DefaultMemoryLimitPages caps guest memory at 100 pages (6.25MiB).
const DefaultMemoryLimitPages = 100

// WazeroEngine stages .any modules in a wazero runtime. It is safe for
// concurrent use; every call works on its own anonymous module instance.
type WazeroEngine struct {
	runtime wazero.Runtime
	limit   uint32
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means DefaultMemoryLimitPages.
	MemoryLimitPages uint32
}

// Report describes one staging run.
type Report struct {
	// Exports lists exported function and memory names, sorted.
	Exports []string
	// Memory is true when the module exports a linear memory.
	Memory bool
	// PayloadWritten is the number of payload bytes written at offset 0.
	PayloadWritten uint32
}

// Function describes an exported function signature.
type Function struct {
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

// NewWazeroEngine creates a new wazero-based engine. A nil cfg uses defaults.
func NewWazeroEngine(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	limit := uint32(DefaultMemoryLimitPages)
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		limit = cfg.MemoryLimitPages
	}
	if limit > wasm.MaxPages {
		return nil, anyerrors.OutOfBounds(anyerrors.PhaseEngine,
			fmt.Sprintf("memory limit %d exceeds %d pages", limit, wasm.MaxPages), limit)
	}

	// Guest code, start functions included, stops when ctx is done.
	runtimeCfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(limit).
		WithCloseOnContextDone(true)
	return &WazeroEngine{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		limit:   limit,
	}, nil
}

// MemoryLimitPages returns the effective per-instance memory limit.
func (e *WazeroEngine) MemoryLimitPages() uint32 {
	return e.limit
}

// Close releases the runtime and every compiled module.
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Stage compiles module, instantiates it anonymously without host imports
// and, when it exports a memory, writes payload at offset 0, growing the
// memory within the configured limit. The exported function is not called.
func (e *WazeroEngine) Stage(ctx context.Context, module, payload []byte) (*Report, error) {
	compiled, err := e.compile(ctx, module)
	if err != nil {
		return nil, err
	}
	defer compiled.Close(ctx)

	report := &Report{Exports: exportNames(compiled)}

	mod, err := e.instantiate(ctx, compiled)
	if err != nil {
		return report, err
	}
	defer mod.Close(ctx)

	name, ok := memoryExport(compiled)
	if !ok {
		Logger().Debug("module exports no memory, payload not staged",
			zap.Int("payload_size", len(payload)))
		return report, nil
	}
	report.Memory = true

	mem := mod.ExportedMemory(name)
	if mem == nil {
		return report, anyerrors.NotFound(anyerrors.PhaseEngine, "memory", name)
	}
	if err := writePayload(mem, payload, e.limit); err != nil {
		return report, err
	}
	report.PayloadWritten = uint32(len(payload))

	Logger().Debug("payload staged",
		zap.String("memory", name),
		zap.Uint32("bytes", report.PayloadWritten),
		zap.Strings("exports", report.Exports))
	return report, nil
}

// Call instantiates module and invokes export with raw wazero-encoded
// parameters. Use api.EncodeI32 and friends to build params.
func (e *WazeroEngine) Call(ctx context.Context, module []byte, export string, params ...uint64) ([]uint64, error) {
	compiled, err := e.compile(ctx, module)
	if err != nil {
		return nil, err
	}
	defer compiled.Close(ctx)

	mod, err := e.instantiate(ctx, compiled)
	if err != nil {
		return nil, err
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(export)
	if fn == nil {
		return nil, anyerrors.NotFound(anyerrors.PhaseEngine, "export", export)
	}
	if want := len(fn.Definition().ParamTypes()); want != len(params) {
		return nil, anyerrors.InvalidInput(anyerrors.PhaseEngine,
			fmt.Sprintf("%s expects %d params, got %d", export, want, len(params)))
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, anyerrors.Wrap(anyerrors.PhaseEngine, anyerrors.KindInstantiation, err, "call "+export)
	}
	return results, nil
}

// Functions compiles module and returns its exported function signatures
// sorted by name, without instantiating it.
func (e *WazeroEngine) Functions(ctx context.Context, module []byte) ([]Function, error) {
	compiled, err := e.compile(ctx, module)
	if err != nil {
		return nil, err
	}
	defer compiled.Close(ctx)

	defs := compiled.ExportedFunctions()
	funcs := make([]Function, 0, len(defs))
	for name, def := range defs {
		funcs = append(funcs, Function{
			Name:    name,
			Params:  def.ParamTypes(),
			Results: def.ResultTypes(),
		})
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })
	return funcs, nil
}

func (e *WazeroEngine) compile(ctx context.Context, module []byte) (wazero.CompiledModule, error) {
	if len(module) == 0 {
		return nil, anyerrors.Instantiation("empty module", nil)
	}
	compiled, err := e.runtime.CompileModule(ctx, module)
	if err != nil {
		return nil, anyerrors.Instantiation("compile", err)
	}
	return compiled, nil
}

func (e *WazeroEngine) instantiate(ctx context.Context, compiled wazero.CompiledModule) (api.Module, error) {
	if imports := compiled.ImportedFunctions(); len(imports) > 0 {
		mod, name, _ := imports[0].Import()
		return nil, anyerrors.Instantiation(
			fmt.Sprintf("module imports %s.%s; no host modules are provided", mod, name), nil)
	}
	// Empty name keeps instances anonymous so concurrent stages never collide.
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, anyerrors.Instantiation("instantiate", err)
	}
	return mod, nil
}

// writePayload copies payload to offset 0, growing mem as needed.
func writePayload(mem api.Memory, payload []byte, limit uint32) error {
	if len(payload) == 0 {
		return nil
	}
	if uint64(len(payload)) > math.MaxUint32 {
		return anyerrors.OutOfBounds(anyerrors.PhaseEngine, "payload exceeds 32-bit memory", len(payload))
	}

	needPages := (uint64(len(payload)) + wasm.PageSize - 1) / wasm.PageSize
	curPages, _ := mem.Grow(0)
	if needPages > uint64(curPages) {
		delta := uint32(needPages - uint64(curPages))
		if _, ok := mem.Grow(delta); !ok {
			return anyerrors.OutOfBounds(anyerrors.PhaseEngine,
				fmt.Sprintf("payload needs %d pages, memory limit is %d", needPages, limit), len(payload))
		}
	}
	if !mem.Write(0, payload) {
		return anyerrors.OutOfBounds(anyerrors.PhaseEngine, "payload write", len(payload))
	}
	return nil
}

// memoryExport picks the memory to stage into: "memory" when exported,
// otherwise the alphabetically first exported memory.
func memoryExport(compiled wazero.CompiledModule) (string, bool) {
	mems := compiled.ExportedMemories()
	if len(mems) == 0 {
		return "", false
	}
	if _, ok := mems[wasm.MemoryExport]; ok {
		return wasm.MemoryExport, true
	}
	names := make([]string, 0, len(mems))
	for name := range mems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0], true
}

func exportNames(compiled wazero.CompiledModule) []string {
	var names []string
	for name := range compiled.ExportedFunctions() {
		names = append(names, name)
	}
	for name := range compiled.ExportedMemories() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
