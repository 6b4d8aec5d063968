package wslink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientServerRoundTrip(t *testing.T) {
	accepted := make(chan *Link, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sl, err := Accept(w, r)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		accepted <- sl
	}))
	defer srv.Close()

	url := "ws://" + strings.TrimPrefix(srv.URL, "http://")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cl, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cl.Close()

	var sl *Link
	select {
	case sl = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("server never accepted connection")
	}
	defer sl.Close()

	payload := []byte{0x08, 0x01, 0x02, 0x03, 0xff, 0x00}
	if _, err := cl.Write(payload); err != nil {
		t.Fatalf("client Write: %v", err)
	}
	buf := make([]byte, len(payload))
	n, err := sl.Read(buf)
	if err != nil {
		t.Fatalf("server Read: %v", err)
	}
	if n != len(payload) || string(buf[:n]) != string(payload) {
		t.Fatalf("got %x, want %x", buf[:n], payload)
	}

	reply := []byte{0x1e, 0xaa, 0xbb}
	if _, err := sl.Write(reply); err != nil {
		t.Fatalf("server Write: %v", err)
	}
	rbuf := make([]byte, len(reply))
	n, err = cl.Read(rbuf)
	if err != nil {
		t.Fatalf("client Read: %v", err)
	}
	if n != len(reply) || string(rbuf[:n]) != string(reply) {
		t.Fatalf("got %x, want %x", rbuf[:n], reply)
	}
}

func TestReadSplitsAcrossSmallBuffers(t *testing.T) {
	accepted := make(chan *Link, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sl, err := Accept(w, r)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		accepted <- sl
	}))
	defer srv.Close()

	url := "ws://" + strings.TrimPrefix(srv.URL, "http://")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cl, err := Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer cl.Close()
	sl := <-accepted
	defer sl.Close()

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if _, err := cl.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := make([]byte, 0, len(payload))
	small := make([]byte, 3)
	for len(got) < len(payload) {
		n, err := sl.Read(small)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got = append(got, small[:n]...)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %x, want %x", got, payload)
	}
}
