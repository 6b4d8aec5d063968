package session

import (
	"testing"
	"time"
)

func TestMatchingListenerFiresOnTransition(t *testing.T) {
	client, server := sessionPair(t)

	pub, err := client.DeclarePublisher("state/robot")
	if err != nil {
		t.Fatalf("DeclarePublisher: %v", err)
	}

	changes := make(chan bool, 4)
	pub.DeclareMatchingListener(func(matching bool) { changes <- matching })

	select {
	case initial := <-changes:
		if initial {
			t.Fatal("initial matching state should be false, no subscribers yet")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("initial evaluation never fired")
	}

	sub, err := server.DeclareSubscriber("state/*", func(Sample, Locality) {}, SubscriberOptions{})
	if err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	select {
	case on := <-changes:
		if !on {
			t.Fatal("listener should transition to matching=true once a subscriber declares")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("matching transition never fired")
	}

	if err := server.UndeclareSubscriber(sub); err != nil {
		t.Fatalf("UndeclareSubscriber: %v", err)
	}

	select {
	case on := <-changes:
		if on {
			t.Fatal("listener should transition to matching=false once the subscriber undeclares")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("matching transition (false) never fired")
	}
}

func TestMatchingListenerIgnoresNonMatchingSubscriber(t *testing.T) {
	client, server := sessionPair(t)

	pub, err := client.DeclarePublisher("state/robot")
	if err != nil {
		t.Fatalf("DeclarePublisher: %v", err)
	}
	changes := make(chan bool, 4)
	pub.DeclareMatchingListener(func(matching bool) { changes <- matching })
	<-changes // drain the initial false evaluation

	if _, err := server.DeclareSubscriber("other/*", func(Sample, Locality) {}, SubscriberOptions{}); err != nil {
		t.Fatalf("DeclareSubscriber: %v", err)
	}

	select {
	case on := <-changes:
		t.Fatalf("listener fired for a non-intersecting key, matching=%v", on)
	case <-time.After(200 * time.Millisecond):
	}
}
