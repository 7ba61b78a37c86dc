package bitpack

import (
	"bytes"
	"errors"
	"testing"

	owterrors "github.com/hapticio/owt/errors"
)

func TestWriteWholeUnit(t *testing.T) {
	dst := make([]byte, 3)
	w := NewWriter(dst)

	if err := w.Write(24, 0xABCDEF); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(dst, []byte{0xAB, 0xCD, 0xEF}) {
		t.Errorf("got %x, want abcdef", dst)
	}
	if w.Bytes() != 3 {
		t.Errorf("Bytes() = %d, want 3", w.Bytes())
	}
}

func TestWriteMSBFirst(t *testing.T) {
	dst := make([]byte, 3)
	w := NewWriter(dst)

	// 8+8+8 bits land in order of the calls, high bits first.
	for _, v := range []uint64{0x12, 0x34, 0x56} {
		if err := w.Write(8, v); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if !bytes.Equal(dst, []byte{0x12, 0x34, 0x56}) {
		t.Errorf("got %x, want 123456", dst)
	}
}

func TestWriteMasksHighBits(t *testing.T) {
	dst := make([]byte, 3)
	w := NewWriter(dst)

	// Only the low 4 bits of each value may appear.
	for i := 0; i < 6; i++ {
		if err := w.Write(4, 0xFFFFFFF0|uint64(i)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if !bytes.Equal(dst, []byte{0x01, 0x23, 0x45}) {
		t.Errorf("got %x, want 012345", dst)
	}
}

func TestWriteAssociativity(t *testing.T) {
	tests := []struct {
		name   string
		splits [][2]uint64 // {nbits, val}
		whole  [2]uint64
	}{
		{"40_as_20_20", [][2]uint64{{20, 0xABCDE}, {20, 0xF0123}}, [2]uint64{40, 0xABCDEF0123}},
		{"32_as_8x4", [][2]uint64{{8, 0xDE}, {8, 0xAD}, {8, 0xBE}, {8, 0xEF}}, [2]uint64{32, 0xDEADBEEF}},
		{"26_as_13_13", [][2]uint64{{13, 0x1FFF}, {13, 0x0001}}, [2]uint64{26, 0x3FFE001}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			one := make([]byte, 9)
			many := make([]byte, 9)

			ww := NewWriter(one)
			if err := ww.Write(int(tt.whole[0]), tt.whole[1]); err != nil {
				t.Fatalf("whole write: %v", err)
			}
			if err := ww.Flush(); err != nil {
				t.Fatalf("flush: %v", err)
			}

			ws := NewWriter(many)
			for _, s := range tt.splits {
				if err := ws.Write(int(s[0]), s[1]); err != nil {
					t.Fatalf("split write: %v", err)
				}
			}
			if err := ws.Flush(); err != nil {
				t.Fatalf("flush: %v", err)
			}

			if !bytes.Equal(one, many) {
				t.Errorf("split %x != whole %x", many, one)
			}
			if ww.Bytes() != ws.Bytes() {
				t.Errorf("byte counts differ: %d vs %d", ww.Bytes(), ws.Bytes())
			}
		})
	}
}

func TestFlushZeroPads(t *testing.T) {
	dst := make([]byte, 3)
	w := NewWriter(dst)

	if err := w.Write(12, 0xFFF); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.Bytes() != 0 {
		t.Errorf("partial cache committed early: %d bytes", w.Bytes())
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !bytes.Equal(dst, []byte{0xFF, 0xF0, 0x00}) {
		t.Errorf("got %x, want fff000", dst)
	}
	if w.Bytes() != 3 {
		t.Errorf("Bytes() = %d, want 3", w.Bytes())
	}

	// Second flush with an empty cache is a no-op.
	if err := w.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if w.Bytes() != 3 {
		t.Errorf("empty flush committed bytes: %d", w.Bytes())
	}
}

func TestCapacityErrorPreservesCommitted(t *testing.T) {
	dst := make([]byte, 3)
	w := NewWriter(dst)

	if err := w.Write(24, 0x112233); err != nil {
		t.Fatalf("first unit: %v", err)
	}

	err := w.Write(24, 0x445566)
	if err == nil {
		t.Fatal("expected capacity error")
	}
	if !errors.Is(err, owterrors.ErrCapacity) {
		t.Errorf("expected capacity error, got %v", err)
	}
	if !bytes.Equal(dst, []byte{0x11, 0x22, 0x33}) {
		t.Errorf("committed bytes corrupted: %x", dst)
	}
	if w.Bytes() != 3 {
		t.Errorf("Bytes() = %d, want 3", w.Bytes())
	}
}

func TestWriteInvalidWidth(t *testing.T) {
	w := NewWriter(make([]byte, 9))
	for _, n := range []int{0, -4, 65} {
		if err := w.Write(n, 0); err == nil {
			t.Errorf("Write(%d) succeeded, want error", n)
		}
	}
}
