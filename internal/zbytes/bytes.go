// Package zbytes implements Bytes, a sliced byte buffer: a sequence of
// byte slices, each with an optional deleter, that can be appended, read
// across slice boundaries, and flattened on demand. The slices carry no
// reference count. It keeps only the
// slice-vector representation rather than maintaining a separate
// contiguous form alongside it.
package zbytes

// Deleter is run by Release for the slice it belongs to. It lets Bytes
// wrap externally allocated buffers (e.g. a link's read buffer) without
// copying; nil means "nothing to release" (the common case of a Go slice
// the GC already owns). Nothing counts references: every Release of a
// Bytes value holding the slice runs its deleter.
type Deleter func()

// SliceRef is one slice in a Bytes value: the data view plus an optional
// deleter that Release runs.
type SliceRef struct {
	data    []byte
	deleter Deleter
}

// NewSliceRef wraps a byte slice with an optional deleter.
func NewSliceRef(data []byte, deleter Deleter) SliceRef {
	return SliceRef{data: data, deleter: deleter}
}

func (s SliceRef) release() {
	if s.deleter != nil {
		s.deleter()
	}
}

// Bytes is a sequence of zero or more SliceRefs viewed as one logical
// byte stream. The zero value is the distinguished empty Bytes.
type Bytes struct {
	slices []SliceRef
	length int
}

// Empty returns the distinguished zero-length Bytes value.
func Empty() Bytes { return Bytes{} }

// FromBuf copies buf into a new single-slice Bytes value.
func FromBuf(buf []byte) Bytes {
	if len(buf) == 0 {
		return Empty()
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	return Bytes{slices: []SliceRef{{data: cp}}, length: len(cp)}
}

// WrapSlice aliases buf (no copy) as a single-slice Bytes value, running
// deleter when the slice is released by Release.
func WrapSlice(buf []byte, deleter Deleter) Bytes {
	if len(buf) == 0 {
		return Empty()
	}
	return Bytes{slices: []SliceRef{NewSliceRef(buf, deleter)}, length: len(buf)}
}

// Len returns the total number of bytes across all slices.
func (b Bytes) Len() int { return b.length }

// IsEmpty reports whether the value has zero length.
func (b Bytes) IsEmpty() bool { return b.length == 0 }

// Append moves src's slices onto the end of b and returns the combined
// value. src must not be used afterward: ownership of its slices
// transfers to the result.
func (b Bytes) Append(src Bytes) Bytes {
	if src.length == 0 {
		return b
	}
	if b.length == 0 {
		return src
	}
	out := Bytes{
		slices: make([]SliceRef, 0, len(b.slices)+len(src.slices)),
		length: b.length + src.length,
	}
	out.slices = append(out.slices, b.slices...)
	out.slices = append(out.slices, src.slices...)
	return out
}

// Release runs every slice's deleter. Call once a Bytes value (and all
// Readers over it) are done being used.
func (b Bytes) Release() {
	for _, s := range b.slices {
		s.release()
	}
}

// ToSlice flattens the value into dst, which must have length >= Len(),
// and returns the number of bytes written.
func (b Bytes) ToSlice(dst []byte) int {
	n := 0
	for _, s := range b.slices {
		n += copy(dst[n:], s.data)
	}
	return n
}

// Flatten returns a freshly allocated, contiguous copy of the value.
func (b Bytes) Flatten() []byte {
	out := make([]byte, b.length)
	b.ToSlice(out)
	return out
}

// Equal compares two Bytes values byte-for-byte, regardless of how each
// is split across slices.
func (b Bytes) Equal(other Bytes) bool {
	if b.length != other.length {
		return false
	}
	ra, rb := b.Reader(), other.Reader()
	const chunk = 4096
	bufA, bufB := make([]byte, chunk), make([]byte, chunk)
	for remaining := b.length; remaining > 0; {
		n := chunk
		if remaining < n {
			n = remaining
		}
		na, _ := ra.Read(bufA[:n])
		nb, _ := rb.Read(bufB[:n])
		if na != nb {
			return false
		}
		for i := 0; i < na; i++ {
			if bufA[i] != bufB[i] {
				return false
			}
		}
		remaining -= na
	}
	return true
}
