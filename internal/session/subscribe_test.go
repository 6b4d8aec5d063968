package session

import (
	"testing"
	"time"

	"github.com/zenoh-pico-go/zpico/internal/wire"
)

func TestSubscriberReceivesRemotePut(t *testing.T) {
	client, server := sessionPair(t)

	received := make(chan Sample, 1)
	_, err := server.DeclareSubscriber("sensor/**", func(s Sample, _ Locality) {
		received <- s
	}, SubscriberOptions{})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	if err := client.Put("sensor/temp", []byte("21.5"), PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case s := <-received:
		if s.Key != "sensor/temp" || string(s.Payload) != "21.5" {
			t.Fatalf("got %+v, want key=sensor/temp payload=21.5", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sample never arrived")
	}
}

func TestSubscriberDeleteSample(t *testing.T) {
	client, server := sessionPair(t)

	received := make(chan Sample, 1)
	server.DeclareSubscriber("sensor/*", func(s Sample, _ Locality) { received <- s }, SubscriberOptions{})

	if err := client.Delete("sensor/temp", PutOptions{}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	select {
	case s := <-received:
		if s.Kind != SampleKindDelete {
			t.Fatalf("got Kind %v, want SampleKindDelete", s.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delete sample never arrived")
	}
}

func TestSubscriberLocalityFiltering(t *testing.T) {
	client, _ := sessionPair(t)

	remoteOnly := make(chan struct{}, 1)
	_, err := client.DeclareSubscriber("a/*", func(_ Sample, loc Locality) {
		if loc != LocalityRemote {
			t.Errorf("callback invoked with locality %v, want LocalityRemote", loc)
		}
		remoteOnly <- struct{}{}
	}, SubscriberOptions{AllowedOrigin: LocalityRemote})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	// Session-local publish must not reach a subscriber restricted to
	// LocalityRemote.
	if err := client.Put("a/b", nil, PutOptions{AllowedDestination: LocalitySessionLocal}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case <-remoteOnly:
		t.Fatal("session-local put should not reach a LocalityRemote-only subscriber")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestUndeclareSubscriberStopsDispatch(t *testing.T) {
	client, server := sessionPair(t)

	received := make(chan Sample, 1)
	sub, err := server.DeclareSubscriber("k", func(s Sample, _ Locality) { received <- s }, SubscriberOptions{})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}
	if err := server.UndeclareSubscriber(sub); err != nil {
		t.Fatalf("UndeclareSubscriber: %v", err)
	}

	if err := client.Put("k", nil, PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	select {
	case <-received:
		t.Fatal("undeclared subscriber should not receive further samples")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMissDetectorReportsGap(t *testing.T) {
	client, server := sessionPair(t)

	missed := make(chan [2]uint32, 1)
	_, err := server.DeclareSubscriber("src/*", func(Sample, Locality) {}, SubscriberOptions{
		OnMiss: func(_ wire.ZID, _ uint32, missedRange [2]uint32) {
			missed <- missedRange
		},
	})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	zid := mustZID(t, 0x01)
	put := func(sn uint32) {
		push := wire.Push{
			Key: wire.WireKey{Suffix: "src/a", SuffixPresent: true},
			QoS: wire.DefaultQoS,
			Body: wire.EncodePutBody(wire.PutBody{
				SourceInfo: &wire.SourceInfo{SourceZID: zid, EntityID: 1, SourceSN: sn},
			}),
		}
		client.publish(push, LocalityAny)
	}

	put(0)
	put(3) // skips 1 and 2

	select {
	case gap := <-missed:
		if gap != [2]uint32{1, 2} {
			t.Fatalf("missed range = %v, want [1 2]", gap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("miss was never reported")
	}
}
