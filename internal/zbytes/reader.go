package zbytes

import (
	"errors"
	"io"
)

// Whence mirrors io.Seek{Start,Current,End} but is spelled out locally
// since Reader.Seek operates on a Bytes value, not an os.File.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// Reader traverses a Bytes value's slice boundaries transparently.
// It caches (slice index, in-slice offset) so sequential reads are O(1)
// per call rather than re-scanning from the head each time.
type Reader struct {
	b      Bytes
	slice  int // index into b.slices
	offset int // offset within b.slices[slice]
	pos    int // absolute position, for Seek math
}

// Reader returns a new Reader positioned at the start of b.
func (b Bytes) Reader() *Reader {
	return &Reader{b: b}
}

// Read implements io.Reader, copying into p across as many slices as
// needed.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= r.b.length {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && r.slice < len(r.b.slices) {
		cur := r.b.slices[r.slice].data
		avail := cur[r.offset:]
		copied := copy(p[n:], avail)
		n += copied
		r.offset += copied
		r.pos += copied
		if r.offset == len(cur) {
			r.slice++
			r.offset = 0
		}
		if copied == 0 {
			break
		}
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadByte reads and returns a single byte.
func (r *Reader) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := r.Read(buf[:])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	return buf[0], nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return r.b.length - r.pos }

// Seek repositions the reader per whence (SET|CUR|END). Negative
// offsets are valid for SeekEnd/SeekCur.
func (r *Reader) Seek(whence Whence, offset int) (int, error) {
	var target int
	switch whence {
	case SeekSet:
		target = offset
	case SeekCur:
		target = r.pos + offset
	case SeekEnd:
		target = r.b.length + offset
	default:
		return 0, errors.New("zbytes: invalid whence")
	}
	if target < 0 || target > r.b.length {
		return 0, errors.New("zbytes: seek out of range")
	}
	r.pos = target
	r.slice, r.offset = r.b.locate(target)
	return target, nil
}

// locate translates an absolute position into (slice index, in-slice
// offset), scanning from the front. Seek is not assumed to be called in
// a tight loop, so this trades a linear scan for simplicity; sequential
// Read calls instead use the cached position above.
func (b Bytes) locate(target int) (slice, offset int) {
	remaining := target
	for i, s := range b.slices {
		if remaining <= len(s.data) {
			if remaining == len(s.data) && i+1 < len(b.slices) {
				continue
			}
			return i, remaining
		}
		remaining -= len(s.data)
	}
	return len(b.slices), 0
}
