package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseValidate,
				Kind:   KindOutOfRange,
				Field:  "amplitude",
				Token:  "101",
				Detail: "must be between 1 and 100",
			},
			contains: []string{"[validate]", "out_of_range", "amplitude", `"101"`, "must be between 1 and 100"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseParse,
				Kind:  KindGrammar,
			},
			contains: []string{"[parse]", "grammar"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseParse,
				Kind:   KindMalformedToken,
				Detail: "not a valid number",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[parse]", "malformed_token", "not a valid number", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseParse,
		Kind:  KindMalformedToken,
		Cause: cause,
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap did not return the cause")
	}
}

func TestError_Is(t *testing.T) {
	err := OutOfRange("delay", 10001, 1, 10000)
	if !errors.Is(err, ErrOutOfRange) {
		t.Error("OutOfRange error does not match ErrOutOfRange")
	}
	if errors.Is(err, ErrGrammar) {
		t.Error("OutOfRange error must not match ErrGrammar")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("strconv failure")
	err := New(PhaseParse, KindMalformedToken).
		Field("time").
		Token("12x.5").
		Value("12x.5").
		Cause(cause).
		Detail("segment %d", 3).
		Build()

	if err.Phase != PhaseParse || err.Kind != KindMalformedToken {
		t.Errorf("unexpected phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Field != "time" || err.Token != "12x.5" {
		t.Errorf("unexpected field/token: %s/%s", err.Field, err.Token)
	}
	if err.Detail != "segment 3" {
		t.Errorf("unexpected detail: %s", err.Detail)
	}
	if errors.Unwrap(err) != cause {
		t.Error("builder lost the cause")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		name     string
	}{
		{Malformed("level", "abc", nil), ErrMalformed, "malformed"},
		{OutOfRange("wait", 5000, 0, 4095), ErrOutOfRange, "out_of_range"},
		{Grammar("nested inner loop"), ErrGrammar, "grammar"},
		{Capacity("sections", 300, 256), ErrCapacity, "capacity"},
		{Unsupported("revision legacy"), ErrUnsupported, "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v does not match its sentinel", tt.err)
			}
		})
	}
}
