// Package owt compiles Open WaveTable haptic waveform strings into the
// packed binary form uploaded to LRA driver wavetable memory.
//
// Two text grammars are supported. Composite strings (type 10) sequence
// pre-stored waveforms with amplitudes, delays and loop markers. PWLE
// strings (type 12) describe piecewise-linear envelopes as ordered
// time/level/frequency segments with optional braking-control and
// excursion-protection metadata. The grammar is selected by the input's
// leading character: PWLE strings open with the save specifier "S",
// everything else is composite.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	owt/                   Root package: grammar dispatch and layout profiles
//	├── errors/            Structured error types for debugging
//	├── internal/bitpack/  MSB-first bit writer with a 24-bit commit cache
//	├── internal/value/    Fixed-point and integer token parsing
//	├── internal/composite/ Composite (type 10) grammar compiler
//	├── internal/pwle/     PWLE (type 12) grammar compiler
//	└── internal/metadata/ SVC and excursion-protection metadata blocks
//
// # Quick Start
//
// Compile a waveform string:
//
//	data, err := owt.Compile("3.75, 100, 3.50, 100, 3.25, 100, 1!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Or reuse a caller-owned buffer:
//
//	dst := make([]byte, 2302)
//	n, err := owt.CompileTo(dst, input)
//
// Compilation is synchronous and allocation-free on the CompileTo path;
// each call is self-contained, so concurrent callers only need distinct
// destination buffers.
package owt
