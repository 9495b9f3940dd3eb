// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

const (
	// WindowSize is the DEFLATE window, which bounds the combined size of the
	// shared dictionary window and a State's history.
	WindowSize = 32 * 1024

	// Level is the compression level used by Encode.
	Level = flate.DefaultCompression
)

// ErrCorrupt is returned by Decode when the input could not be decoded into
// exactly the expected number of bytes.
var ErrCorrupt = errors.New("corrupt compressed packet")

// SharedWindow is the immutable, dictionary-derived part of the codec's
// preset dictionary. It is safe to share between connections.
type SharedWindow struct {
	window      []byte
	historySize int
}

// NewSharedWindow builds a SharedWindow from dictionary bytes.
//
// hashTableSize is the number of bytes of per-connection history a State
// retains, clamped to WindowSize. The shared window keeps as much of the tail
// of dictionary as fits in the rest of the DEFLATE window.
func NewSharedWindow(dictionary []byte, hashTableSize uint32) *SharedWindow {
	historySize := WindowSize
	if hashTableSize < WindowSize {
		historySize = int(hashTableSize)
	}

	if keep := WindowSize - historySize; len(dictionary) > keep {
		dictionary = dictionary[len(dictionary)-keep:]
	}
	return &SharedWindow{
		window:      append([]byte(nil), dictionary...),
		historySize: historySize,
	}
}

// Len returns the number of dictionary bytes held in the window.
func (sw *SharedWindow) Len() int { return len(sw.window) }

// HistorySize returns the number of history bytes a State retains when used
// with this window.
func (sw *SharedWindow) HistorySize() int { return sw.historySize }

// State is the adaptive part of the codec: the most recent packet bytes a
// connection direction has processed.
//
// State is not safe for concurrent use. Each connection direction owns its
// own State.
type State struct {
	history []byte

	// Reusable scratch, never part of the logical state.
	dict   []byte
	src    bytes.Reader
	reader io.ReadCloser
	sink   appendWriter
	writer *flate.Writer
}

// NewState returns a State seeded with seed.
func NewState(seed []byte) *State {
	return &State{history: append([]byte(nil), seed...)}
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State { return NewState(s.history) }

// Len returns the number of history bytes currently held.
func (s *State) Len() int { return len(s.history) }

// History returns the state's history. The returned slice must not be
// modified.
func (s *State) History() []byte { return s.history }

func (s *State) presetDict(sw *SharedWindow) []byte {
	s.trim(sw.historySize)
	s.dict = append(append(s.dict[:0], sw.window...), s.history...)
	return s.dict
}

func (s *State) observe(data []byte, sw *SharedWindow) {
	s.history = append(s.history, data...)
	s.trim(sw.historySize)
}

func (s *State) trim(size int) {
	if over := len(s.history) - size; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

// EncodeBound returns the largest output Encode can produce for an n-byte
// input.
func EncodeBound(n int) int { return n + n/64 + 64 }

type appendWriter struct{ buf []byte }

func (w *appendWriter) Write(b []byte) (int, error) {
	w.buf = append(w.buf, b...)
	return len(b), nil
}

// Encode compresses input, appending the result to dst, and advances state.
//
// Given identical state contents, shared window, and input, Encode always
// produces identical output.
func Encode(dst []byte, state *State, sw *SharedWindow, input []byte) []byte {
	dict := state.presetDict(sw)
	state.sink.buf = dst
	if state.writer == nil {
		fw, err := flate.NewWriterDict(&state.sink, Level, dict)
		if err != nil {
			// Only possible with an invalid Level.
			panic(errors.Wrap(err, "creating compressor"))
		}
		state.writer = fw
	} else {
		state.writer.ResetDict(&state.sink, dict)
	}

	if _, err := state.writer.Write(input); err != nil {
		panic(errors.Wrap(err, "compressing to memory"))
	}
	if err := state.writer.Close(); err != nil {
		panic(errors.Wrap(err, "finishing compressed stream"))
	}

	out := state.sink.buf
	state.sink.buf = nil
	state.observe(input, sw)
	return out
}

// Decode decompresses input, which must expand to exactly expectedLen bytes,
// appending the result to dst.
//
// On success, state advances exactly as the encoder's did. On failure, state
// is unchanged, and the returned error wraps ErrCorrupt.
func Decode(dst []byte, state *State, sw *SharedWindow, input []byte, expectedLen int) ([]byte, error) {
	if expectedLen < 0 {
		return dst, errors.Wrap(ErrCorrupt, "negative expected length")
	}

	dict := state.presetDict(sw)
	state.src.Reset(input)
	if state.reader == nil {
		state.reader = flate.NewReaderDict(&state.src, dict)
	} else if err := state.reader.(flate.Resetter).Reset(&state.src, dict); err != nil {
		return dst, errors.Wrap(ErrCorrupt, err.Error())
	}

	start := len(dst)
	out := growLen(dst, expectedLen)
	if _, err := io.ReadFull(state.reader, out[start:]); err != nil {
		return dst, errors.Wrapf(ErrCorrupt, "expanding to %d bytes: %s", expectedLen, err)
	}

	// The stream must end exactly at expectedLen.
	var extra [1]byte
	switch n, err := state.reader.Read(extra[:]); {
	case n > 0:
		return dst, errors.Wrapf(ErrCorrupt, "data exceeds expected length %d", expectedLen)
	case err != io.EOF:
		if err == nil {
			err = io.ErrNoProgress
		}
		return dst, errors.Wrapf(ErrCorrupt, "finishing stream: %s", err)
	}

	state.observe(out[start:], sw)
	return out, nil
}

func growLen(b []byte, n int) []byte {
	if need := len(b) + n; need <= cap(b) {
		return b[:need]
	}
	nb := make([]byte, len(b)+n)
	copy(nb, b)
	return nb
}
