package loader

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/anyfile/container"
	"github.com/wippyai/anyfile/engine"
	anyerrors "github.com/wippyai/anyfile/errors"
	"github.com/wippyai/anyfile/metadata"
)

// Operation names a loader command.
type Operation string

const (
	// OpInfo returns the metadata document as indented JSON.
	OpInfo Operation = "info"
	// OpExtract returns the payload bytes verbatim.
	OpExtract Operation = "extract"
)

// Operations lists every operation Run dispatches.
func Operations() []Operation {
	return []Operation{OpInfo, OpExtract}
}

// ParseOperation validates a user-supplied operation name.
func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations() {
		if string(op) == s {
			return op, nil
		}
	}
	return "", anyerrors.UnknownOperation(s)
}

// Engine stages a module and its payload. *engine.WazeroEngine implements it.
type Engine interface {
	Stage(ctx context.Context, module, payload []byte) (*engine.Report, error)
}

// DefaultStageTimeout bounds module staging, which runs the module's start
// function.
const DefaultStageTimeout = 5 * time.Second

// Runner parses containers and dispatches operations on them. It keeps no
// state between calls and is safe for concurrent use.
type Runner struct {
	engine       Engine
	logger       *zap.Logger
	onWarning    func(error)
	stageTimeout time.Duration
	strict       bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger. The package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWarningHandler receives non-fatal engine_warning errors.
func WithWarningHandler(fn func(error)) Option {
	return func(r *Runner) { r.onWarning = fn }
}

// WithStrict rejects containers with trailing bytes.
func WithStrict(strict bool) Option {
	return func(r *Runner) { r.strict = strict }
}

// WithStageTimeout bounds each Stage call. Zero or negative leaves only
// the caller's context in charge.
func WithStageTimeout(d time.Duration) Option {
	return func(r *Runner) { r.stageTimeout = d }
}

// New creates a Runner. A nil engine skips module staging entirely.
func New(eng Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:       eng,
		logger:       Logger(),
		stageTimeout: DefaultStageTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run parses data and dispatches op on the result. Parse failures are
// returned unchanged; an unknown op yields an unknown_operation error and a
// nil result.
func (r *Runner) Run(ctx context.Context, data []byte, op Operation) ([]byte, error) {
	c, err := container.Deserialize(data, container.WithStrict(r.strict))
	if err != nil {
		r.logger.Debug("container rejected",
			zap.Int("size", len(data)),
			zap.String("kind", string(anyerrors.KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	return r.RunContainer(ctx, c, op)
}

// RunContainer dispatches op on an already parsed container.
func (r *Runner) RunContainer(ctx context.Context, c *container.Container, op Operation) ([]byte, error) {
	switch op {
	case OpInfo:
		return metadata.EncodeIndent(c.Metadata)
	case OpExtract:
		r.stage(ctx, c)
		return c.Payload, nil
	default:
		return nil, anyerrors.UnknownOperation(string(op))
	}
}

// stage hands module and payload to the engine. Failures never abort the
// operation; they are logged and passed to the warning handler.
func (r *Runner) stage(ctx context.Context, c *container.Container) {
	if r.engine == nil {
		return
	}
	if r.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.stageTimeout)
		defer cancel()
	}
	report, err := r.engine.Stage(ctx, c.Module, c.Payload)
	if err != nil {
		warning := anyerrors.EngineWarning(err)
		r.logger.Warn("module staging failed",
			zap.Int("module_size", len(c.Module)),
			zap.Int("payload_size", len(c.Payload)),
			zap.Duration("stage_timeout", r.stageTimeout),
			zap.Error(err))
		if r.onWarning != nil {
			r.onWarning(warning)
		}
		return
	}
	if report != nil {
		r.logger.Debug("module staged",
			zap.Strings("exports", report.Exports),
			zap.Bool("memory", report.Memory),
			zap.Uint32("payload_written", report.PayloadWritten))
	}
}
