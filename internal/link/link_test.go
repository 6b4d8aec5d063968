package link

import (
	"testing"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	msg := []byte("hello over the pipe")
	done := make(chan error, 1)
	go func() {
		_, err := a.Write(msg)
		done <- err
	}()

	buf := make([]byte, len(msg))
	n, err := b.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(msg) {
		t.Fatalf("got %d bytes, want %d", n, len(msg))
	}
	if string(buf) != string(msg) {
		t.Fatalf("got %q, want %q", buf, msg)
	}
	if err := <-done; err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestPipeMTU(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()
	if a.MTU() != defaultMTU || b.MTU() != defaultMTU {
		t.Fatalf("got MTUs %d/%d, want %d", a.MTU(), b.MTU(), defaultMTU)
	}
}

func TestPipeCloseUnblocksPeer(t *testing.T) {
	a, b := Pipe()
	a.Close()
	buf := make([]byte, 4)
	if _, err := b.Read(buf); err == nil {
		t.Fatal("expected error reading from closed peer")
	}
}
