package owt

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	owterrors "github.com/hapticio/owt/errors"
	"github.com/hapticio/owt/internal/composite"
	"github.com/hapticio/owt/internal/pwle"
)

// Binary layout revisions. Only the header-words revision, the most
// complete one (SVC, excursion protection, relative frequency), is
// implemented; the older 16-byte-aligned layout is recognized so a
// profile naming it fails loudly instead of producing wrong bytes.
const (
	RevisionHeaderWords = "header-words"
	RevisionAligned16   = "aligned-16"
)

// Profile selects a binary layout revision and the destination buffer
// sizes used by the allocating Compile entry points.
type Profile struct {
	Revision       string `yaml:"revision"`
	CompositeBytes int    `yaml:"composite_buffer_bytes"`
	PWLEBytes      int    `yaml:"pwle_buffer_bytes"`
}

// DefaultProfile returns the header-words revision with the documented
// maximum buffer sizes.
func DefaultProfile() Profile {
	return Profile{
		Revision:       RevisionHeaderWords,
		CompositeBytes: composite.MaxBytes,
		PWLEBytes:      pwle.MaxBytes,
	}
}

// LoadProfile reads a YAML profile from path. Absent fields keep their
// defaults.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, owterrors.New(owterrors.PhaseConfig, owterrors.KindMalformedToken).
			Field("profile").Token(path).Cause(err).Build()
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, owterrors.New(owterrors.PhaseConfig, owterrors.KindMalformedToken).
			Field("profile").Token(path).Cause(err).Build()
	}
	if err := p.validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p Profile) validate() error {
	if p.Revision != RevisionHeaderWords {
		return owterrors.Unsupported("binary layout revision " + p.Revision)
	}
	if p.CompositeBytes <= 0 {
		return owterrors.OutOfRange("composite_buffer_bytes", p.CompositeBytes, 1, composite.MaxBytes)
	}
	if p.PWLEBytes <= 0 {
		return owterrors.OutOfRange("pwle_buffer_bytes", p.PWLEBytes, 1, pwle.MaxBytes)
	}
	return nil
}

// Compile converts a waveform string into its packed binary form,
// allocating a buffer sized by the profile.
func (p Profile) Compile(input string) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	size := p.CompositeBytes
	if isPWLE(input) {
		size = p.PWLEBytes
	}
	dst := make([]byte, size)
	n, err := p.CompileTo(dst, input)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// CompileTo compiles input into dst and returns the number of bytes
// written. dst is the caller's; on error its previously committed bytes
// are intact but the compile result must be discarded.
func (p Profile) CompileTo(dst []byte, input string) (int, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(input) == "" {
		return 0, owterrors.Grammar("empty waveform string")
	}

	var (
		n       int
		err     error
		grammar string
	)
	if isPWLE(input) {
		grammar = "pwle"
		n, err = pwle.Compile(input, dst)
	} else {
		grammar = "composite"
		n, err = composite.Compile(input, dst)
	}
	if err != nil {
		return 0, err
	}

	Logger().Debug("compiled waveform",
		zap.String("grammar", grammar),
		zap.Int("bytes", n))
	return n, nil
}

// Compile converts a waveform string into its packed binary form using
// the default profile.
func Compile(input string) ([]byte, error) {
	return DefaultProfile().Compile(input)
}

// CompileTo compiles input into dst using the default profile.
func CompileTo(dst []byte, input string) (int, error) {
	return DefaultProfile().CompileTo(dst, input)
}

// isPWLE reports whether input uses the PWLE grammar. PWLE strings open
// with the save specifier; everything else is the composite grammar.
func isPWLE(input string) bool {
	trimmed := strings.TrimSpace(input)
	return len(trimmed) > 0 && trimmed[0] == 'S'
}
