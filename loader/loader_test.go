package loader

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/anyfile/container"
	"github.com/wippyai/anyfile/engine"
	anyerrors "github.com/wippyai/anyfile/errors"
	"github.com/wippyai/anyfile/metadata"
	"github.com/wippyai/anyfile/wasm"
)

// fakeEngine records Stage calls and returns a fixed result.
type fakeEngine struct {
	err     error
	modules [][]byte
	calls   int
}

func (f *fakeEngine) Stage(_ context.Context, module, _ []byte) (*engine.Report, error) {
	f.calls++
	f.modules = append(f.modules, module)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Report{Exports: []string{"main"}}, nil
}

func sampleContainer(t *testing.T, module, payload []byte) []byte {
	t.Helper()
	doc := container.Describe("x", "sample", "x.txt", payload)
	b, err := container.Create(module, payload, &doc).Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return b
}

func TestRun_Info(t *testing.T) {
	eng := &fakeEngine{}
	r := New(eng)

	got, err := r.Run(context.Background(), sampleContainer(t, wasm.Minimal().Encode(), []byte("hello")), OpInfo)
	if err != nil {
		t.Fatalf("Run info: %v", err)
	}
	doc, err := metadata.Decode(got)
	if err != nil {
		t.Fatalf("info output is not a metadata document: %v\n%s", err, got)
	}
	if s, _ := doc.GetString("original_filename"); s != "x.txt" {
		t.Errorf("original_filename = %q", s)
	}
	if !bytes.Contains(got, []byte("\n  \"name\": \"x\"")) {
		t.Errorf("info output not indented:\n%s", got)
	}
	if eng.calls != 0 {
		t.Errorf("info staged the module %d times", eng.calls)
	}
}

func TestRun_InfoIgnoresModule(t *testing.T) {
	r := New(&fakeEngine{err: errors.New("boom")})
	meta := metadata.New()
	meta.Set("name", metadata.String("x"))

	var outputs [][]byte
	for _, module := range [][]byte{nil, wasm.Minimal().Encode(), []byte("garbage module")} {
		b, err := container.Create(module, []byte("p"), &meta).Serialize()
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		out, err := r.Run(context.Background(), b, OpInfo)
		if err != nil {
			t.Fatalf("Run info: %v", err)
		}
		outputs = append(outputs, out)
	}
	for i := 1; i < len(outputs); i++ {
		if !bytes.Equal(outputs[0], outputs[i]) {
			t.Errorf("info output differs by module:\n%s\nvs\n%s", outputs[0], outputs[i])
		}
	}
}

func TestRun_InfoEmptyMetadata(t *testing.T) {
	b, _ := container.Create(nil, nil, nil).Serialize()
	got, err := New(nil).Run(context.Background(), b, OpInfo)
	if err != nil {
		t.Fatalf("Run info: %v", err)
	}
	if string(got) != "{}" {
		t.Errorf("info = %q, want {}", got)
	}
}

func TestRun_Extract(t *testing.T) {
	payload := []byte{0x00, 0xFF, 'h', 'i', 0x00}
	module := wasm.Minimal().Encode()
	eng := &fakeEngine{}

	got, err := New(eng).Run(context.Background(), sampleContainer(t, module, payload), OpExtract)
	if err != nil {
		t.Fatalf("Run extract: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("extract = %x, want %x", got, payload)
	}
	if eng.calls != 1 || !bytes.Equal(eng.modules[0], module) {
		t.Errorf("engine saw %d calls", eng.calls)
	}
}

func TestRun_ExtractSurvivesEngineFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	payload := []byte("hello")

	tests := []struct {
		name   string
		module []byte
		eng    *fakeEngine
	}{
		{"empty module", nil, &fakeEngine{err: anyerrors.Instantiation("empty module", nil)}},
		{"engine error", wasm.Minimal().Encode(), &fakeEngine{err: errors.New("trap")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings []error
			r := New(tt.eng,
				WithLogger(zap.New(core)),
				WithWarningHandler(func(err error) { warnings = append(warnings, err) }),
			)

			got, err := r.Run(context.Background(), sampleContainer(t, tt.module, payload), OpExtract)
			if err != nil {
				t.Fatalf("Run extract: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("extract = %q, want %q", got, payload)
			}
			if len(warnings) != 1 || !errors.Is(warnings[0], anyerrors.ErrEngineWarning) {
				t.Fatalf("warnings = %v", warnings)
			}
			if !errors.Is(warnings[0], tt.eng.err) {
				t.Errorf("warning does not wrap engine error: %v", warnings[0])
			}
		})
	}
	if n := logs.FilterMessage("module staging failed").Len(); n != 2 {
		t.Errorf("logged %d staging warnings, want 2", n)
	}
}

func TestRun_ExtractWithWazero(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.NewWazeroEngine(ctx, nil)
	if err != nil {
		t.Fatalf("NewWazeroEngine: %v", err)
	}
	defer eng.Close(ctx)

	payload := bytes.Repeat([]byte("data"), 1000)
	tests := []struct {
		name     string
		module   []byte
		warnings int
	}{
		{"memory module", wasm.WithMemory(1).Encode(), 0},
		{"minimal module", wasm.Minimal().Encode(), 0},
		{"empty module", nil, 1},
		{"invalid module", []byte("not wasm"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := 0
			r := New(eng, WithWarningHandler(func(error) { warnings++ }))
			got, err := r.Run(ctx, sampleContainer(t, tt.module, payload), OpExtract)
			if err != nil {
				t.Fatalf("Run extract: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Error("payload mismatch")
			}
			if warnings != tt.warnings {
				t.Errorf("warnings = %d, want %d", warnings, tt.warnings)
			}
		})
	}
}

// startModule exports a memory and runs body on instantiation.
func startModule(body ...byte) []byte {
	m := wasm.WithMemory(1)
	idx := m.AddFunc(wasm.FuncType{}, wasm.FuncBody{Code: body})
	m.Start = &idx
	return m.Encode()
}

func TestRun_ExtractSurvivesFailingStart(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.NewWazeroEngine(ctx, nil)
	if err != nil {
		t.Fatalf("NewWazeroEngine: %v", err)
	}
	defer eng.Close(ctx)

	payload := []byte("hello")
	tests := []struct {
		name   string
		module []byte
	}{
		{"start traps", startModule(wasm.OpUnreachable, wasm.OpEnd)},
		{"start never returns", startModule(wasm.OpLoop, wasm.BlockEmpty, wasm.OpBr, 0x00, wasm.OpEnd, wasm.OpEnd)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings []error
			r := New(eng,
				WithStageTimeout(200*time.Millisecond),
				WithWarningHandler(func(err error) { warnings = append(warnings, err) }),
			)

			type result struct {
				err error
				out []byte
			}
			done := make(chan result, 1)
			data := sampleContainer(t, tt.module, payload)
			go func() {
				out, err := r.Run(ctx, data, OpExtract)
				done <- result{err: err, out: out}
			}()

			var res result
			select {
			case res = <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("extract did not return")
			}
			if res.err != nil {
				t.Fatalf("Run extract: %v", res.err)
			}
			if !bytes.Equal(res.out, payload) {
				t.Errorf("extract = %q, want %q", res.out, payload)
			}
			if len(warnings) != 1 || anyerrors.KindOf(warnings[0]) != anyerrors.KindEngineWarning {
				t.Errorf("warnings = %v, want one engine_warning", warnings)
			}
		})
	}
}

func TestRun_StageTimeout(t *testing.T) {
	var seen time.Duration
	eng := stageFunc(func(ctx context.Context) {
		if deadline, ok := ctx.Deadline(); ok {
			seen = time.Until(deadline)
		}
	})

	if _, err := New(eng, WithStageTimeout(time.Minute)).Run(context.Background(),
		sampleContainer(t, nil, []byte("x")), OpExtract); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen <= 0 || seen > time.Minute {
		t.Errorf("stage deadline in %v, want within one minute", seen)
	}

	seen = 0
	if _, err := New(eng, WithStageTimeout(0)).Run(context.Background(),
		sampleContainer(t, nil, []byte("x")), OpExtract); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seen != 0 {
		t.Errorf("zero timeout still set a deadline %v away", seen)
	}
}

// stageFunc adapts a function observing the stage context to Engine.
type stageFunc func(ctx context.Context)

func (f stageFunc) Stage(ctx context.Context, _, _ []byte) (*engine.Report, error) {
	f(ctx)
	return &engine.Report{}, nil
}

func TestRun_NilEngine(t *testing.T) {
	got, err := New(nil).Run(context.Background(), sampleContainer(t, nil, []byte("abc")), OpExtract)
	if err != nil || string(got) != "abc" {
		t.Errorf("extract = %q, %v", got, err)
	}
}

func TestRun_UnknownOperation(t *testing.T) {
	eng := &fakeEngine{}
	got, err := New(eng).Run(context.Background(), sampleContainer(t, nil, []byte("abc")), Operation("delete"))
	if got != nil {
		t.Errorf("result = %q, want nil", got)
	}
	if !errors.Is(err, anyerrors.ErrUnknownOperation) {
		t.Fatalf("error = %v, want unknown_operation", err)
	}
	var e *anyerrors.Error
	if !errors.As(err, &e) || e.Value != "delete" {
		t.Errorf("error should name the operation, got %v", err)
	}
	if eng.calls != 0 {
		t.Error("unknown operation reached the engine")
	}
}

func TestRun_ParseErrors(t *testing.T) {
	good := sampleContainer(t, nil, []byte("abc"))
	badMagic := bytes.Clone(good)
	badMagic[0] = 'X'

	tests := []struct {
		name string
		data []byte
		opts []Option
		want error
	}{
		{"short header", good[:10], nil, anyerrors.ErrTruncatedHeader},
		{"bad magic", badMagic, nil, anyerrors.ErrInvalidMagic},
		{"truncated body", good[:len(good)-1], nil, anyerrors.ErrTruncatedContainer},
		{"trailing data strict", append(bytes.Clone(good), 0), []Option{WithStrict(true)}, anyerrors.ErrTrailingData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{}
			for _, op := range Operations() {
				got, err := New(eng, tt.opts...).Run(context.Background(), tt.data, op)
				if got != nil || !errors.Is(err, tt.want) {
					t.Errorf("%s: result %q, error %v, want %v", op, got, err, tt.want)
				}
			}
			if eng.calls != 0 {
				t.Error("parse failure reached the engine")
			}
		})
	}

	if _, err := New(nil).Run(context.Background(), append(bytes.Clone(good), 0), OpExtract); err != nil {
		t.Errorf("lenient trailing data: %v", err)
	}
}

func TestParseOperation(t *testing.T) {
	for _, op := range Operations() {
		got, err := ParseOperation(string(op))
		if err != nil || got != op {
			t.Errorf("ParseOperation(%q) = %q, %v", op, got, err)
		}
	}
	if _, err := ParseOperation("INFO"); !errors.Is(err, anyerrors.ErrUnknownOperation) {
		t.Errorf("ParseOperation(INFO) error = %v", err)
	}
}
