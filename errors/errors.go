package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHeader    Phase = "header"    // fixed header decode
	PhaseContainer Phase = "container" // region framing
	PhaseMetadata  Phase = "metadata"  // metadata document codec
	PhaseLoad      Phase = "load"      // loader dispatch
	PhaseEngine    Phase = "engine"    // execution engine
	PhaseConfig    Phase = "config"    // configuration file
)

// Kind categorizes the error
type Kind string

const (
	KindTruncatedHeader    Kind = "truncated_header"
	KindInvalidMagic       Kind = "invalid_magic"
	KindTruncatedContainer Kind = "truncated_container"
	KindTrailingData       Kind = "trailing_data"
	KindInvalidMetadata    Kind = "invalid_metadata"
	KindUnknownOperation   Kind = "unknown_operation"
	KindEngineWarning      Kind = "engine_warning"
	KindInstantiation      Kind = "instantiation"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindNotFound           Kind = "not_found"
	KindInvalidInput       Kind = "invalid_input"
)

// Sentinels for errors.Is. They match any *Error with the same kind,
// regardless of phase, detail or cause.
var (
	ErrTruncatedHeader    = &Error{Kind: KindTruncatedHeader}
	ErrInvalidMagic       = &Error{Kind: KindInvalidMagic}
	ErrTruncatedContainer = &Error{Kind: KindTruncatedContainer}
	ErrTrailingData       = &Error{Kind: KindTrailingData}
	ErrInvalidMetadata    = &Error{Kind: KindInvalidMetadata}
	ErrUnknownOperation   = &Error{Kind: KindUnknownOperation}
	ErrEngineWarning      = &Error{Kind: KindEngineWarning}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the container failure taxonomy

// TruncatedHeader reports that fewer than want bytes were available for the header.
func TruncatedHeader(got, want int) *Error {
	return &Error{
		Phase:  PhaseHeader,
		Kind:   KindTruncatedHeader,
		Detail: fmt.Sprintf("need %d bytes, have %d", want, got),
		Value:  got,
	}
}

// InvalidMagic carries the offending magic value.
func InvalidMagic(got, want uint32) *Error {
	return &Error{
		Phase:  PhaseHeader,
		Kind:   KindInvalidMagic,
		Detail: fmt.Sprintf("magic 0x%08X, expected 0x%08X", got, want),
		Value:  got,
	}
}

// TruncatedContainer reports a region that extends past the end of input.
func TruncatedContainer(region string, need uint64, have int) *Error {
	return &Error{
		Phase:  PhaseContainer,
		Kind:   KindTruncatedContainer,
		Path:   []string{region},
		Detail: fmt.Sprintf("declared sizes need %d bytes, have %d", need, have),
		Value:  need,
	}
}

// TrailingData reports bytes after the last declared region.
func TrailingData(extra int) *Error {
	return &Error{
		Phase:  PhaseContainer,
		Kind:   KindTrailingData,
		Detail: fmt.Sprintf("%d bytes after metadata region", extra),
		Value:  extra,
	}
}

// InvalidMetadata wraps a metadata decode failure.
func InvalidMetadata(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseMetadata,
		Kind:   KindInvalidMetadata,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidUTF8 reports metadata bytes that are not valid UTF-8.
func InvalidUTF8(data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseMetadata,
		Kind:   KindInvalidMetadata,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// UnknownOperation names an operation the loader cannot dispatch.
func UnknownOperation(op string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindUnknownOperation,
		Detail: fmt.Sprintf("unknown operation %q", op),
		Value:  op,
	}
}

// EngineWarning wraps a non-fatal engine failure.
func EngineWarning(cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindEngineWarning,
		Detail: "module staging failed",
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, detail string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: detail,
		Value:  value,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
