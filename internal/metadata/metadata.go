// Package metadata encodes the optional wavetable metadata blocks. Each
// block is a 24-bit id, a 24-bit payload word count, and the payload
// words; a block list ends with the 0xFFFFFF terminator word.
package metadata

import (
	"github.com/hapticio/owt/internal/bitpack"
)

const (
	SVCID      = 0x01
	EPID       = 0x02
	Terminator = 0xFFFFFF
)

// SVC is the braking-control metadata extension for PWLE waveforms.
type SVC struct {
	Mode        uint8
	BrakingTime uint16 // ms x8
}

// Words returns the block size in 24-bit words, id and count included.
func (m *SVC) Words() int { return 4 }

func (m *SVC) Emit(w *bitpack.Writer) error {
	for _, v := range []uint64{SVCID, 2, uint64(m.Mode), uint64(m.BrakingTime)} {
		if err := w.Write(24, v); err != nil {
			return err
		}
	}
	return nil
}

// EP is the excursion-protection metadata, attachable to either format.
type EP struct {
	Length    uint32
	Payload   uint32
	Threshold uint32
}

// Words returns the block size in 24-bit words, id and count included.
func (m *EP) Words() int { return 5 }

func (m *EP) Emit(w *bitpack.Writer) error {
	for _, v := range []uint64{EPID, 3, uint64(m.Length), uint64(m.Payload), uint64(m.Threshold)} {
		if err := w.Write(24, v); err != nil {
			return err
		}
	}
	return nil
}

// EmitTerminator closes a metadata block list.
func EmitTerminator(w *bitpack.Writer) error {
	return w.Write(24, Terminator)
}
