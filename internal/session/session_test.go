package session

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/zenoh-pico-go/zpico/internal/link"
	"github.com/zenoh-pico-go/zpico/internal/scheduler"
	"github.com/zenoh-pico-go/zpico/internal/wire"
)

func mustZID(t *testing.T, b byte) wire.ZID {
	t.Helper()
	z, err := wire.NewZID([]byte{b})
	if err != nil {
		t.Fatal(err)
	}
	return z
}

func testConfig(zid wire.ZID) Config {
	return Config{
		LocalZID:        zid,
		Version:         1,
		SNResolution:    28,
		BatchSize:       2048,
		LeaseMs:         5000,
		CallbackWorkers: 2,
		CallbackQueue:   64,
	}
}

// sessionPair opens a client/server Session over an in-memory link.Pipe,
// mirroring internal/transport's handshakePair helper.
func sessionPair(t *testing.T) (*Session, *Session) {
	t.Helper()
	a, b := link.Pipe()
	sa := scheduler.New()
	sb := scheduler.New()
	t.Cleanup(sa.Stop)
	t.Cleanup(sb.Stop)

	var client *Session
	var clientErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		client, clientErr = Open(a, testConfig(mustZID(t, 0x01)), sa, zerolog.Nop())
	}()

	server, err := Accept(b, testConfig(mustZID(t, 0x02)), []byte{0xca, 0xfe}, sb, zerolog.Nop())
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	<-done
	if clientErr != nil {
		t.Fatalf("Open: %v", clientErr)
	}
	t.Cleanup(func() {
		client.Close(wire.CloseReasonGeneric)
		server.Close(wire.CloseReasonGeneric)
	})
	return client, server
}

func TestOpenAcceptNegotiatesDistinctZIDs(t *testing.T) {
	client, server := sessionPair(t)
	if client.ZID().Equal(server.ZID()) {
		t.Fatal("client and server sessions should have distinct ZIDs")
	}
}

func TestCloseDrainsPendingQueries(t *testing.T) {
	client, _ := sessionPair(t)

	_, err := client.Get("foo/bar", func(Reply) {}, GetOptions{
		AllowedDestination: LocalityRemote,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := client.Close(wire.CloseReasonGeneric); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.pendingQueries.Len() != 0 {
		t.Fatal("Close should drain the pending query table")
	}
	// Close is idempotent.
	if err := client.Close(wire.CloseReasonGeneric); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
