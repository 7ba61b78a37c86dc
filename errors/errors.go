package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in compilation the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // tokenizing and grammar
	PhaseValidate Phase = "validate" // field value validation
	PhaseEncode   Phase = "encode"   // binary serialization
	PhaseConfig   Phase = "config"   // profile / revision selection
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedToken Kind = "malformed_token"
	KindOutOfRange     Kind = "out_of_range"
	KindGrammar        Kind = "grammar"
	KindCapacity       Kind = "capacity"
	KindUnsupported    Kind = "unsupported"
)

// Error is the structured error type returned by every compile path.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Field  string
	Token  string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Field != "" {
		b.WriteString(" at ")
		b.WriteString(e.Field)
	}

	if e.Token != "" {
		b.WriteString(": token ")
		b.WriteString(fmt.Sprintf("%q", e.Token))
	}

	if e.Detail != "" {
		if e.Token != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Field sets the field name the error refers to
func (b *Builder) Field(name string) *Builder {
	b.err.Field = name
	return b
}

// Token sets the offending input token
func (b *Builder) Token(tok string) *Builder {
	b.err.Token = tok
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

// Convenience constructors for common error patterns

// Malformed creates a malformed-token error
func Malformed(field, token string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindMalformedToken,
		Field:  field,
		Token:  token,
		Detail: "not a valid number",
		Cause:  cause,
	}
}

// OutOfRange creates a range error for a scaled field value
func OutOfRange(field string, value, min, max int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindOutOfRange,
		Field:  field,
		Value:  value,
		Detail: fmt.Sprintf("scaled value %d outside [%d, %d]", value, min, max),
	}
}

// Grammar creates a grammar error
func Grammar(detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindGrammar,
		Detail: detail,
	}
}

// Capacity creates a capacity error for buffer and entry-count limits
func Capacity(what string, n, limit int) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindCapacity,
		Value:  n,
		Detail: fmt.Sprintf("%s: %d exceeds limit %d", what, n, limit),
	}
}

// Unsupported creates an unsupported configuration error
func Unsupported(what string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Sentinels for errors.Is checks by callers. Matching is by Phase and
// Kind only, so these cover every error the respective constructor makes.
var (
	ErrMalformed   = &Error{Phase: PhaseParse, Kind: KindMalformedToken}
	ErrOutOfRange  = &Error{Phase: PhaseValidate, Kind: KindOutOfRange}
	ErrGrammar     = &Error{Phase: PhaseParse, Kind: KindGrammar}
	ErrCapacity    = &Error{Phase: PhaseEncode, Kind: KindCapacity}
	ErrUnsupported = &Error{Phase: PhaseConfig, Kind: KindUnsupported}
)
