package transport

import "errors"

// ErrReassemblySNGap is returned when a Fragment's sn does not follow
// the previous fragment's sn; the reassembly aborts on sn discontinuity.
var ErrReassemblySNGap = errors.New("transport: fragment sequence discontinuity")

// ErrReassemblyTooLarge is returned when the accumulated payload would
// exceed the configured bound.
var ErrReassemblyTooLarge = errors.New("transport: reassembly size exceeds bound")

// reassembly accumulates Fragment payloads for one peer's one
// (reliability) stream until a Fragment with More=false completes it.
type reassembly struct {
	active     bool
	expectedSN uint64
	buf        []byte
}

func (r *reassembly) reset() {
	r.active = false
	r.buf = nil
}

// push feeds one Fragment into the reassembly. It returns a non-nil
// slice once the final fragment of a message has arrived, and resets
// automatically on completion or on any error.
func (r *reassembly) push(sn uint64, payload []byte, more bool, maxSize int) ([]byte, error) {
	if !r.active {
		r.active = true
		r.buf = nil
	} else if sn != r.expectedSN {
		r.reset()
		return nil, ErrReassemblySNGap
	}

	if maxSize > 0 && len(r.buf)+len(payload) > maxSize {
		r.reset()
		return nil, ErrReassemblyTooLarge
	}
	r.buf = append(r.buf, payload...)
	r.expectedSN = sn + 1

	if !more {
		out := r.buf
		r.reset()
		return out, nil
	}
	return nil, nil
}
