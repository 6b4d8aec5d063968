package zbytes

import "testing"

func TestEmptyBytes(t *testing.T) {
	b := Empty()
	if b.Len() != 0 || !b.IsEmpty() {
		t.Fatal("expected empty bytes")
	}
}

func TestAppendPreservesLength(t *testing.T) {
	a := FromBuf([]byte("hello "))
	b := FromBuf([]byte("world"))
	c := a.Append(b)
	if c.Len() != len("hello world") {
		t.Fatalf("len = %d", c.Len())
	}
	if string(c.Flatten()) != "hello world" {
		t.Fatalf("flatten = %q", c.Flatten())
	}
}

func TestReaderSeekSet(t *testing.T) {
	b := FromBuf([]byte("abcdefghij"))
	r := b.Reader()
	if _, err := r.Seek(SeekSet, 3); err != nil {
		t.Fatal(err)
	}
	got, err := r.ReadByte()
	if err != nil || got != 'd' {
		t.Fatalf("got %q, err %v, want 'd'", got, err)
	}
}

func TestReaderSeekEnd(t *testing.T) {
	b := FromBuf([]byte("abcdefghij"))
	r := b.Reader()
	if _, err := r.Seek(SeekEnd, -3); err != nil {
		t.Fatal(err)
	}
	got, _ := r.ReadByte()
	if got != 'h' {
		t.Fatalf("got %q, want 'h'", got)
	}
}

func TestReaderAcrossSlices(t *testing.T) {
	a := FromBuf([]byte("abc"))
	b := FromBuf([]byte("def"))
	combined := a.Append(b)
	r := combined.Reader()
	buf := make([]byte, 6)
	n, err := r.Read(buf)
	if err != nil || n != 6 || string(buf) != "abcdef" {
		t.Fatalf("read across slices: n=%d err=%v buf=%q", n, err, buf)
	}
}

func TestWriterCoalescesWrites(t *testing.T) {
	w := NewWriterSize(4)
	w.Write([]byte("a"))
	w.Write([]byte("b"))
	w.Write([]byte("cd"))
	w.Write([]byte("efgh"))
	got := w.Bytes()
	if got.Len() != 8 {
		t.Fatalf("len = %d, want 8", got.Len())
	}
	if string(got.Flatten()) != "abcdefgh" {
		t.Fatalf("flatten = %q", got.Flatten())
	}
}

func TestDeleterRunsOnRelease(t *testing.T) {
	released := false
	b := WrapSlice([]byte("x"), func() { released = true })
	b.Release()
	if !released {
		t.Fatal("expected deleter to run")
	}
}

func TestBytesEqual(t *testing.T) {
	a := FromBuf([]byte("abc")).Append(FromBuf([]byte("def")))
	b := FromBuf([]byte("abcdef"))
	if !a.Equal(b) {
		t.Fatal("expected equal")
	}
	if a.Equal(FromBuf([]byte("abcdeg"))) {
		t.Fatal("expected not equal")
	}
}
