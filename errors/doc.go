// Package errors provides structured error types for the OWT compiler.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type includes the field name, the offending
// input token, and an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindOutOfRange).
//		Field("amplitude").
//		Token("101").
//		Detail("amplitude must be between 1 and 100").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfRange("delay", 10001, 1, 10000)
//	err := errors.Grammar("inner loop never terminated")
//
// All errors implement the standard error interface and support
// errors.Is/As. The exported sentinels match by Phase and Kind:
//
//	if errors.Is(err, owterrors.ErrCapacity) { ... }
package errors
