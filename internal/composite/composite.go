// Package composite compiles Composite (type 10) waveform strings: a
// comma-delimited sequence of stored-waveform references, delays, loop
// markers, and optional excursion-protection metadata.
package composite

import (
	"strings"
	"unicode"

	owterrors "github.com/hapticio/owt/errors"
	"github.com/hapticio/owt/internal/bitpack"
	"github.com/hapticio/owt/internal/metadata"
	"github.com/hapticio/owt/internal/value"
)

const (
	// MaxSections bounds the section list per compile.
	MaxSections = 256
	// MaxBytes is the documented destination size for a packed composite.
	MaxBytes = 1152

	maxDelay      = 10000
	maxDurationMS = 16383
	indefDuration = 0xFFFF

	// LoopForever marks a repeat field as "loop until stopped".
	LoopForever = 0xFF

	flagDuration = 0x08
	flagBankOWT  = 0x20
	flagBankROM  = 0x40
)

// Bank is the storage class of a referenced waveform.
type Bank uint8

const (
	BankRAM Bank = iota
	BankROM
	BankOWT
)

type specifier int

const (
	specOuterLoop specifier = iota
	specInnerLoopStart
	specInnerLoopStop
	specOuterRepeat
	specEPMetadata
	specWaveform
	specDelay
)

// classify checks the marker forms before the waveform/delay fallbacks
// so that "3!!" is a loop close rather than a delay.
func classify(tok string) specifier {
	switch {
	case tok == "~":
		return specOuterLoop
	case tok == "!!":
		return specInnerLoopStart
	case strings.Contains(tok, "!!"):
		return specInnerLoopStop
	case strings.Contains(tok, "!"):
		return specOuterRepeat
	case strings.HasPrefix(tok, "["):
		return specEPMetadata
	case strings.Contains(tok, "."):
		return specWaveform
	default:
		return specDelay
	}
}

type waveformRef struct {
	Index     uint8
	Amplitude uint8
	Duration  uint16
	Bank      Bank
}

type section struct {
	Wvfrm  waveformRef
	Delay  uint16
	Repeat uint8
	Flags  uint8
}

type compiler struct {
	ep        *metadata.EP
	done      []section
	cur       section
	repeat    uint8
	innerLoop bool
}

// Compile converts a composite waveform string into packed binary data in
// dst and returns the number of bytes written.
func Compile(input string, dst []byte) (int, error) {
	c := &compiler{}

	toks := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for _, tok := range toks {
		if err := c.decode(tok); err != nil {
			return 0, err
		}
	}

	if c.innerLoop {
		return 0, owterrors.Grammar("inner loop never terminated")
	}

	// A trailing section that holds data but was never closed by a
	// following token still counts.
	if c.cur.Wvfrm.Amplitude != 0 || c.cur.Delay != 0 {
		if err := c.advance(); err != nil {
			return 0, err
		}
	}

	return c.serialize(dst)
}

// advance closes the current section and starts a fresh one.
func (c *compiler) advance() error {
	if len(c.done) >= MaxSections {
		return owterrors.Capacity("composite sections", len(c.done)+1, MaxSections)
	}
	c.done = append(c.done, c.cur)
	c.cur = section{}
	return nil
}

func (c *compiler) decode(tok string) error {
	switch classify(tok) {
	case specOuterLoop:
		if c.repeat != 0 {
			return owterrors.Grammar("duplicate outer loop specifier %q", tok)
		}
		c.repeat = LoopForever

	case specInnerLoopStart:
		if c.innerLoop {
			return owterrors.Grammar("nested inner loop not allowed")
		}
		if c.cur.Wvfrm.Amplitude != 0 || c.cur.Delay != 0 {
			if err := c.advance(); err != nil {
				return err
			}
		}
		c.cur.Repeat = LoopForever
		c.innerLoop = true

	case specInnerLoopStop:
		if !c.innerLoop {
			return owterrors.Grammar("inner loop stop with no start")
		}
		c.innerLoop = false

		count, _, _ := strings.Cut(tok, "!")
		n, err := value.Int("inner_loop_repeat", count, 1, 255)
		if err != nil {
			return err
		}
		c.cur.Repeat = uint8(n)
		return c.advance()

	case specOuterRepeat:
		if c.repeat != 0 {
			return owterrors.Grammar("duplicate outer loop specifier %q", tok)
		}
		count, _, _ := strings.Cut(tok, "!")
		n, err := value.Int("outer_loop_repeat", count, 1, 255)
		if err != nil {
			return err
		}
		c.repeat = uint8(n)

	case specEPMetadata:
		if c.ep != nil {
			return owterrors.Grammar("duplicate excursion protection block %q", tok)
		}
		ep, err := parseEP(tok)
		if err != nil {
			return err
		}
		c.ep = ep

	case specWaveform:
		if c.cur.Wvfrm.Amplitude != 0 || c.cur.Delay != 0 {
			if err := c.advance(); err != nil {
				return err
			}
		}
		if err := parseWaveform(tok, &c.cur.Wvfrm); err != nil {
			return err
		}
		if c.cur.Wvfrm.Duration != 0 {
			c.cur.Flags |= flagDuration
		}
		switch c.cur.Wvfrm.Bank {
		case BankROM:
			c.cur.Flags |= flagBankROM
		case BankOWT:
			c.cur.Flags |= flagBankOWT
		}

	case specDelay:
		if c.cur.Delay != 0 {
			if err := c.advance(); err != nil {
				return err
			}
		}
		n, err := value.Int("delay", tok, 1, maxDelay)
		if err != nil {
			return err
		}
		c.cur.Delay = uint16(n)
	}

	return nil
}

// parseWaveform decodes a waveform reference token: an optional bank
// prefix followed by index.amplitude[.duration_ms]. Unknown alphabetic
// prefixes fall back to the RAM bank.
func parseWaveform(tok string, w *waveformRef) error {
	i := 0
	for i < len(tok) && unicode.IsLetter(rune(tok[i])) {
		i++
	}
	switch strings.ToUpper(tok[:i]) {
	case "ROM":
		w.Bank = BankROM
	case "OWT":
		w.Bank = BankOWT
	default:
		w.Bank = BankRAM
	}

	parts := strings.Split(tok[i:], ".")
	if len(parts) < 2 || len(parts) > 3 {
		return owterrors.Grammar("waveform reference %q: want index.amplitude[.duration]", tok)
	}

	index, err := value.Int("waveform_index", parts[0], 0, 255)
	if err != nil {
		return err
	}
	if index == 0 && len(parts) == 2 {
		return owterrors.OutOfRange("waveform_index", 0, 1, 255)
	}

	amp, err := value.Int("amplitude", parts[1], 1, 100)
	if err != nil {
		return err
	}

	var duration int
	if len(parts) == 3 {
		duration, err = value.Int("duration", parts[2], 0, indefDuration)
		if err != nil {
			return err
		}
		if duration != indefDuration {
			if duration > maxDurationMS {
				return owterrors.OutOfRange("duration", duration, 0, maxDurationMS)
			}
			duration *= 4
		}
	}

	w.Index = uint8(index)
	w.Amplitude = uint8(amp)
	w.Duration = uint16(duration)

	return nil
}

// parseEP decodes an excursion-protection token of the form
// [length;payload;threshold].
func parseEP(tok string) (*metadata.EP, error) {
	body, ok := strings.CutPrefix(tok, "[")
	if !ok {
		return nil, owterrors.Grammar("excursion protection %q: missing '['", tok)
	}
	body, ok = strings.CutSuffix(body, "]")
	if !ok {
		return nil, owterrors.Grammar("excursion protection %q: missing ']'", tok)
	}

	parts := strings.Split(body, ";")
	if len(parts) != 3 {
		return nil, owterrors.Grammar("excursion protection %q: want [length;payload;threshold]", tok)
	}

	length, err := value.Int("ep_length", parts[0], 0, 0xFFFFFF)
	if err != nil {
		return nil, err
	}
	payload, err := value.Int("ep_payload", parts[1], 0, 7)
	if err != nil {
		return nil, err
	}
	threshold, err := value.Int("ep_threshold", parts[2], 0, 0xFFFFFF)
	if err != nil {
		return nil, err
	}

	return &metadata.EP{
		Length:    uint32(length),
		Payload:   uint32(payload),
		Threshold: uint32(threshold),
	}, nil
}

func (c *compiler) serialize(dst []byte) (int, error) {
	w := bitpack.NewWriter(dst)

	if c.ep != nil {
		if err := c.ep.Emit(w); err != nil {
			return 0, err
		}
	}

	if err := w.Write(8, 0); err != nil { // padding
		return 0, err
	}
	if err := w.Write(8, uint64(len(c.done))); err != nil {
		return 0, err
	}
	if err := w.Write(8, uint64(c.repeat)); err != nil {
		return 0, err
	}

	for _, s := range c.done {
		fields := []struct {
			nbits int
			val   uint64
		}{
			{8, uint64(s.Wvfrm.Amplitude)},
			{8, uint64(s.Wvfrm.Index)},
			{8, uint64(s.Repeat)},
			{8, uint64(s.Flags)},
			{16, uint64(s.Delay)},
		}
		for _, f := range fields {
			if err := w.Write(f.nbits, f.val); err != nil {
				return 0, err
			}
		}

		if s.Flags&flagDuration != 0 {
			if err := w.Write(8, 0); err != nil { // padding
				return 0, err
			}
			if err := w.Write(16, uint64(s.Wvfrm.Duration)); err != nil {
				return 0, err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return 0, err
	}

	return w.Bytes(), nil
}
