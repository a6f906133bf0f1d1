// Package errors provides structured error types for the anyfile module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Codec failures carry the offending value for diagnostics, for example the
// magic number read from a corrupt header.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseContainer, errors.KindTruncatedContainer).
//		Path("payload").
//		Value(need).
//		Detail("declared sizes need %d bytes", need).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidMagic(h.Magic, container.Magic)
//	err := errors.UnknownOperation("list")
//
// All errors implement the standard error interface and support errors.Is/As.
// The package-level sentinels match on kind only:
//
//	if errors.Is(err, anyerrors.ErrInvalidMagic) { ... }
package errors
