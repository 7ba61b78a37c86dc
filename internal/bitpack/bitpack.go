package bitpack

import (
	owterrors "github.com/hapticio/owt/errors"
)

// CacheBits is the size of the pending-bit cache. Wavetable memory is
// organized as 24-bit words, so output is committed three bytes at a time.
const CacheBits = 24

// Writer packs arbitrary-width fields into a caller-owned byte buffer,
// most-significant-bit first. Bits accumulate in a 24-bit cache; each time
// the cache fills, three bytes are committed to the destination MSB-first.
type Writer struct {
	dst       []byte
	off       int
	committed int
	cache     uint32
	cachebits int
}

// NewWriter returns a Writer over dst. The Writer never grows dst; writing
// past its end returns a capacity error and leaves committed bytes intact.
func NewWriter(dst []byte) *Writer {
	return &Writer{dst: dst}
}

// Write appends the low nbits bits of val, MSB-first. nbits may exceed the
// cache size; the write then splits into successive cache fills, producing
// the same bytes as any equivalent sequence of smaller writes.
func (w *Writer) Write(nbits int, val uint64) error {
	if nbits <= 0 || nbits > 64 {
		return owterrors.New(owterrors.PhaseEncode, owterrors.KindUnsupported).
			Detail("field width %d bits", nbits).Build()
	}
	if nbits < 64 {
		val &= (1 << nbits) - 1
	}

	for nbits > 0 {
		n := CacheBits - w.cachebits
		if n > nbits {
			n = nbits
		}

		w.cache = w.cache<<n | uint32(val>>(nbits-n))&((1<<n)-1)
		w.cachebits += n
		nbits -= n

		if w.cachebits == CacheBits {
			if err := w.commit(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flush zero-pads the pending cache bits so the final 24-bit unit is
// committed. A Writer with an empty cache flushes to nothing.
func (w *Writer) Flush() error {
	if w.cachebits == 0 {
		return nil
	}
	return w.Write(CacheBits-w.cachebits, 0)
}

// Bytes returns the number of bytes committed to the destination.
func (w *Writer) Bytes() int {
	return w.committed
}

func (w *Writer) commit() error {
	if w.off+CacheBits/8 > len(w.dst) {
		return owterrors.Capacity("destination buffer", w.off+CacheBits/8, len(w.dst))
	}

	w.dst[w.off] = byte(w.cache >> 16)
	w.dst[w.off+1] = byte(w.cache >> 8)
	w.dst[w.off+2] = byte(w.cache)

	w.off += 3
	w.committed += 3
	w.cache = 0
	w.cachebits = 0

	return nil
}
