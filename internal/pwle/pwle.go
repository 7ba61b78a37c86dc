// Package pwle compiles PWLE (type 12, Piecewise-Linear Envelope)
// waveform strings: a fixed-position header followed by an ordered list
// of time/level/frequency segments and optional SVC and excursion
// metadata, serialized in the header-words wavetable layout.
package pwle

import (
	"strings"
	"unicode"

	owterrors "github.com/hapticio/owt/errors"
	"github.com/hapticio/owt/internal/bitpack"
	"github.com/hapticio/owt/internal/metadata"
	"github.com/hapticio/owt/internal/value"
)

const (
	// MaxSegments bounds the segment list per compile.
	MaxSegments = 256
	// MaxTokens bounds the total specifier count per compile.
	MaxTokens = 1787
	// MaxBytes is the documented destination size for a packed PWLE.
	MaxBytes = 2302

	// FormatID identifies the PWLE wavetable entry type.
	FormatID = 12

	// indefTime is the scaled time value that marks an open-ended segment.
	indefTime = 0xFFFF

	lenIndefinite = 0x00400000
	lenCalculated = 0x00800000

	flagChirp   = 0x08
	flagBrake   = 0x04
	flagAmpReg  = 0x02
	flagExtFreq = 0x01
	flagRelFreq = 0x10

	// featureMetadata is the bit of the raw WF value that enables the
	// trailing metadata block.
	featureMetadata = 0x01

	// headerBits covers wlength(24) + repeat(8) + wait(12) + nsections(8).
	headerBits = 52
)

type specifier int

const (
	specSave specifier = iota
	specFeature
	specRepeat
	specWait
	specSVCMode
	specSVCBraking
	specEPLength
	specEPPayload
	specEPThreshold
	specTime
	specLevel
	specRelFreq
	specFreq
	specChirp
	specBrake
	specAmpReg
	specVBT
	specInvalid
)

// classify maps a token key to its specifier. Keys carry the segment
// index as a digit suffix (T0, AR12); only the alphabetic prefix decides.
func classify(key string) specifier {
	i := 0
	for i < len(key) && unicode.IsLetter(rune(key[i])) {
		i++
	}
	switch key[:i] {
	case "S":
		return specSave
	case "WF":
		return specFeature
	case "RP":
		return specRepeat
	case "WT":
		return specWait
	case "M":
		return specSVCMode
	case "K":
		return specSVCBraking
	case "EM":
		return specEPLength
	case "ET":
		return specEPPayload
	case "EC":
		return specEPThreshold
	case "T":
		return specTime
	case "L":
		return specLevel
	case "R":
		return specRelFreq
	case "F":
		return specFreq
	case "C":
		return specChirp
	case "B":
		return specBrake
	case "AR":
		return specAmpReg
	case "V":
		return specVBT
	default:
		return specInvalid
	}
}

// segState enumerates segment completeness: each state names the field
// the segment still needs, so any out-of-order or duplicate specifier
// lands on a state mismatch.
type segState int

const (
	stateTime segState = iota
	stateLevel
	stateFreq
	stateChirp
	stateBrake
	stateAmpReg
	stateVBT
)

func (s segState) String() string {
	switch s {
	case stateTime:
		return "time"
	case stateLevel:
		return "level"
	case stateFreq:
		return "frequency"
	case stateChirp:
		return "chirp"
	case stateBrake:
		return "brake"
	case stateAmpReg:
		return "amplitude regulation"
	case stateVBT:
		return "back-EMF target"
	}
	return "unknown"
}

type segment struct {
	VBTarget uint32
	Time     uint16
	Level    int16
	Freq     uint16 // 12-bit raw, two's complement when relative
	Flags    uint8
}

type compiler struct {
	svc      *metadata.SVC
	ep       *metadata.EP
	segments []segment
	cur      segment
	wlength  uint32
	wait     uint16
	feature  uint16
	repeat   uint8

	state    segState
	relative bool
	relSeen  bool
	indef    bool
	svcSeen  bool
	kSeen    bool
	epFields int
	pos      int
}

// Compile converts a PWLE waveform string into packed binary data in dst
// and returns the number of bytes written.
func Compile(input string, dst []byte) (int, error) {
	c := &compiler{}

	toks := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	for _, tok := range toks {
		if c.pos >= MaxTokens {
			return 0, owterrors.Capacity("pwle specifiers", c.pos+1, MaxTokens)
		}

		key, val, found := strings.Cut(strings.TrimSpace(tok), ":")
		if !found {
			return 0, owterrors.Grammar("token %q: want specifier:value", tok)
		}
		if err := c.decode(key, val, tok); err != nil {
			return 0, err
		}
		c.pos++
	}

	if c.pos < 4 {
		return 0, owterrors.Grammar("incomplete header: %d of 4 required fields", c.pos)
	}
	if err := c.headerComplete(); err != nil {
		return 0, err
	}
	if len(c.segments) == 0 {
		return 0, owterrors.Grammar("no segments")
	}
	if c.state != stateTime {
		return 0, owterrors.Grammar("missing %s entry in segment %d", c.state, len(c.segments))
	}

	c.wlength *= uint32(c.repeat) + 1
	c.wlength -= uint32(c.wait)
	c.wlength *= 2
	if c.indef {
		c.wlength |= lenIndefinite
	}
	c.wlength |= lenCalculated

	return c.serialize(dst)
}

// headerComplete rejects a header cut off inside the SVC or EP group.
func (c *compiler) headerComplete() error {
	if c.svcSeen && !c.kSeen {
		return owterrors.Grammar("SVC mode given without braking time")
	}
	if c.epFields != 0 && c.epFields != 3 {
		return owterrors.Grammar("excursion protection needs EM, ET and EC")
	}
	return nil
}

// expectPos enforces the fixed header slot of a specifier.
func (c *compiler) expectPos(name string, want int) error {
	if c.pos != want {
		return owterrors.Grammar("%s specifier at position %d, want %d", name, c.pos, want)
	}
	return nil
}

func (c *compiler) decode(key, val, tok string) error {
	switch classify(key) {
	case specSave:
		if err := c.expectPos("save", 0); err != nil {
			return err
		}
		// Value is unused but must still be well formed.
		_, err := value.Bool01("save", val)
		return err

	case specFeature:
		if err := c.expectPos("feature", 1); err != nil {
			return err
		}
		v, err := value.Int("feature", val, 0, 255)
		if err != nil {
			return err
		}
		c.feature = uint16(v) << 8
		return nil

	case specRepeat:
		if err := c.expectPos("repeat", 2); err != nil {
			return err
		}
		v, err := value.Int("repeat", val, 0, 255)
		if err != nil {
			return err
		}
		c.repeat = uint8(v)
		return nil

	case specWait:
		if err := c.expectPos("wait", 3); err != nil {
			return err
		}
		v, err := value.Scaled("wait", val, 4, 0, 4095)
		if err != nil {
			return err
		}
		c.wait = uint16(v)
		c.wlength += uint32(v)
		return nil

	case specSVCMode:
		if err := c.expectPos("svc_mode", 4); err != nil {
			return err
		}
		v, err := value.Int("svc_mode", val, -1, 3)
		if err != nil {
			return err
		}
		if v >= 0 {
			c.svc = &metadata.SVC{Mode: uint8(v)}
		}
		c.svcSeen = true
		return nil

	case specSVCBraking:
		if err := c.expectPos("svc_braking_time", 5); err != nil {
			return err
		}
		if !c.svcSeen {
			return owterrors.Grammar("braking time without SVC mode")
		}
		v, err := value.Scaled("svc_braking_time", val, 8, 0, 8000)
		if err != nil {
			return err
		}
		if c.svc != nil {
			c.svc.BrakingTime = uint16(v)
		}
		c.kSeen = true
		return nil

	case specEPLength:
		if err := c.expectPos("ep_length", 6); err != nil {
			return err
		}
		v, err := value.Int("ep_length", val, 0, 0xFFFFFF)
		if err != nil {
			return err
		}
		c.ep = &metadata.EP{Length: uint32(v)}
		c.epFields = 1
		return nil

	case specEPPayload:
		if err := c.expectPos("ep_payload", 7); err != nil {
			return err
		}
		if c.epFields != 1 {
			return owterrors.Grammar("ET specifier without EM")
		}
		v, err := value.Int("ep_payload", val, 0, 7)
		if err != nil {
			return err
		}
		c.ep.Payload = uint32(v)
		c.epFields = 2
		return nil

	case specEPThreshold:
		if err := c.expectPos("ep_threshold", 8); err != nil {
			return err
		}
		if c.epFields != 2 {
			return owterrors.Grammar("EC specifier without ET")
		}
		v, err := value.Int("ep_threshold", val, 0, 0xFFFFFF)
		if err != nil {
			return err
		}
		c.ep.Threshold = uint32(v)
		c.epFields = 3
		return nil

	case specTime:
		if c.pos < 4 {
			return owterrors.Grammar("time specifier %q inside header", tok)
		}
		if err := c.headerComplete(); err != nil {
			return err
		}
		if c.state != stateTime {
			return owterrors.Grammar("missing %s entry in segment %d", c.state, len(c.segments))
		}
		v, err := value.Scaled("time", val, 4, 0, 0xFFFF)
		if err != nil {
			return err
		}
		c.cur.Time = uint16(v)
		if v == indefTime {
			c.indef = true
		} else {
			c.wlength += uint32(v)
		}
		c.state = stateLevel
		return nil

	case specLevel:
		if c.state != stateLevel {
			return c.badOrder("level")
		}
		v, err := value.Scaled("level", val, 2048, -2048, 2047)
		if err != nil {
			return err
		}
		c.cur.Level = int16(v)
		c.state = stateFreq
		return nil

	case specRelFreq:
		// Optional sub-flag, valid only before the segment's frequency.
		if c.state != stateFreq || c.relSeen {
			return c.badOrder("relative-frequency flag")
		}
		rel, err := value.Bool01("relative_frequency", val)
		if err != nil {
			return err
		}
		c.relative = rel
		c.relSeen = true
		return nil

	case specFreq:
		if c.state != stateFreq {
			return c.badOrder("frequency")
		}
		if c.relative {
			v, err := value.Scaled("frequency", val, 4, -2048, 2047)
			if err != nil {
				return err
			}
			c.cur.Freq = uint16(v) & 0xFFF
			c.cur.Flags |= flagRelFreq
		} else {
			// 0 selects resonant-frequency tracking; anything else is an
			// absolute frequency in [0.25, 1023.75] Hz.
			v, err := value.Scaled("frequency", val, 4, 0, 4095)
			if err != nil {
				return err
			}
			c.cur.Freq = uint16(v)
			c.cur.Flags |= flagExtFreq
		}
		c.state = stateChirp
		return nil

	case specChirp:
		if c.state != stateChirp {
			return c.badOrder("chirp")
		}
		set, err := value.Bool01("chirp", val)
		if err != nil {
			return err
		}
		if set {
			c.cur.Flags |= flagChirp
		}
		c.state = stateBrake
		return nil

	case specBrake:
		if c.state != stateBrake {
			return c.badOrder("brake")
		}
		set, err := value.Bool01("brake", val)
		if err != nil {
			return err
		}
		if set {
			c.cur.Flags |= flagBrake
		}
		c.state = stateAmpReg
		return nil

	case specAmpReg:
		if c.state != stateAmpReg {
			return c.badOrder("amplitude regulation")
		}
		set, err := value.Bool01("amplitude_regulation", val)
		if err != nil {
			return err
		}
		if set {
			c.cur.Flags |= flagAmpReg
			c.state = stateVBT
			return nil
		}
		return c.finishSegment()

	case specVBT:
		if c.state != stateVBT {
			return c.badOrder("back-EMF target")
		}
		v, err := value.Scaled("vb_target", val, 0x7FFFFF, 0, 0x7FFFFF)
		if err != nil {
			return err
		}
		c.cur.VBTarget = uint32(v)
		return c.finishSegment()

	default:
		return owterrors.Grammar("unknown specifier %q", tok)
	}
}

func (c *compiler) badOrder(what string) error {
	return owterrors.Grammar("%s specifier out of order in segment %d: want %s",
		what, len(c.segments), c.state)
}

func (c *compiler) finishSegment() error {
	if len(c.segments) >= MaxSegments {
		return owterrors.Capacity("pwle segments", len(c.segments)+1, MaxSegments)
	}
	c.segments = append(c.segments, c.cur)
	c.cur = segment{}
	c.state = stateTime
	c.relative = false
	c.relSeen = false
	return nil
}

func words(bits int) int {
	return (bits + bitpack.CacheBits - 1) / bitpack.CacheBits
}

// flagByte packs the segment flags into their wire position: the main
// nibble shifted high with the extended-frequency bit, and the
// relative-frequency bit below it.
func (s *segment) flagByte() uint64 {
	b := uint64(s.Flags&0x0F) << 4
	if s.Flags&flagRelFreq != 0 {
		b |= 0x08
	}
	return b
}

func (c *compiler) serialize(dst []byte) (int, error) {
	segBits := 0
	for i := range c.segments {
		segBits += 48
		if c.segments[i].Flags&flagAmpReg != 0 {
			segBits += 24
		}
	}

	withMeta := c.feature&(featureMetadata<<8) != 0
	metaWords := 0
	if withMeta {
		metaWords = 1 // terminator
		if c.svc != nil {
			metaWords += c.svc.Words()
		}
		if c.ep != nil {
			metaWords += c.ep.Words()
		}
	}

	w := bitpack.NewWriter(dst)

	fields := []struct {
		nbits int
		val   uint64
	}{
		{16, uint64(c.feature)},
		{8, FormatID},
		{24, uint64(words(headerBits))},
		{24, uint64(words(headerBits+segBits) + metaWords)},
		{24, uint64(c.wlength)},
		{8, uint64(c.repeat)},
		{12, uint64(c.wait)},
		{8, uint64(len(c.segments))},
	}
	for _, f := range fields {
		if err := w.Write(f.nbits, f.val); err != nil {
			return 0, err
		}
	}

	for i := range c.segments {
		s := &c.segments[i]
		segFields := []struct {
			nbits int
			val   uint64
		}{
			{16, uint64(s.Time)},
			{12, uint64(uint16(s.Level))},
			{12, uint64(s.Freq)},
			{8, s.flagByte()},
		}
		for _, f := range segFields {
			if err := w.Write(f.nbits, f.val); err != nil {
				return 0, err
			}
		}

		if s.Flags&flagAmpReg != 0 {
			if err := w.Write(24, uint64(s.VBTarget)); err != nil {
				return 0, err
			}
		}
	}

	if withMeta {
		if c.svc != nil {
			if err := c.svc.Emit(w); err != nil {
				return 0, err
			}
		}
		if c.ep != nil {
			if err := c.ep.Emit(w); err != nil {
				return 0, err
			}
		}
		if err := metadata.EmitTerminator(w); err != nil {
			return 0, err
		}
	}

	if err := w.Flush(); err != nil {
		return 0, err
	}

	return w.Bytes(), nil
}
