package session

import (
	"testing"
	"time"

	"github.com/zenoh-pico-go/zpico/internal/wire"
)

// declareAnswering declares a queryable on srv under prefix that sends
// one reply per (key, time) pair in ts, each reply timestamped so
// Monotonic/Latest consolidation behavior can be exercised.
func declareAnswering(t *testing.T, srv *Session, prefix string, ts map[string][]uint64) {
	t.Helper()
	_, err := srv.DeclareQueryable(prefix, func(q *Query) {
		for key, times := range ts {
			for _, tm := range times {
				stamp := wire.Timestamp{Time: tm, ZID: srv.ZID()}
				if err := q.Reply(Sample{Key: key, Payload: []byte{byte(tm)}, Timestamp: &stamp}); err != nil {
					t.Errorf("Reply: %v", err)
				}
			}
		}
	}, QueryableOptions{})
	if err != nil {
		t.Fatalf("DeclareQueryable: %v", err)
	}
}

func TestConsolidationNoneDeliversEveryReply(t *testing.T) {
	client, server := sessionPair(t)
	declareAnswering(t, server, "c/*", map[string][]uint64{"c/a": {1, 2, 3}})

	var got []Reply
	done := make(chan struct{})
	_, err := client.Get("c/a", func(r Reply) {
		got = append(got, r)
		if len(got) == 3 {
			close(done)
		}
	}, GetOptions{Consolidation: ConsolidationNone})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("got %d replies, want 3", len(got))
	}
}

func TestConsolidationMonotonicSkipsOlderOrEqual(t *testing.T) {
	client, server := sessionPair(t)
	declareAnswering(t, server, "m/*", map[string][]uint64{"m/a": {5, 3, 5, 7}})

	var got []uint64
	done := make(chan struct{})
	_, err := client.Get("m/a", func(r Reply) {
		got = append(got, r.Sample.Timestamp.Time)
		if len(got) == 2 {
			close(done)
		}
	}, GetOptions{Consolidation: ConsolidationMonotonic})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case <-done:
		if got[0] != 5 || got[1] != 7 {
			t.Fatalf("got %v, want [5 7] (3 and the repeated 5 should be skipped)", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("got %v, want 2 monotonic replies", got)
	}
}

func TestConsolidationLatestFlushesNewestPerKey(t *testing.T) {
	client, server := sessionPair(t)
	declareAnswering(t, server, "l/*", map[string][]uint64{"l/a": {1, 9}, "l/b": {4}})

	var got []Reply
	done := make(chan struct{})
	_, err := client.Get("l/*", func(r Reply) {
		got = append(got, r)
		if len(got) == 2 {
			close(done)
		}
	}, GetOptions{Consolidation: ConsolidationLatest, TimeoutMs: 50})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case <-done:
		byKey := map[string]uint64{}
		for _, r := range got {
			byKey[r.Sample.Key] = r.Sample.Timestamp.Time
		}
		if byKey["l/a"] != 9 {
			t.Fatalf("l/a flushed with timestamp %d, want 9 (the newest)", byKey["l/a"])
		}
		if byKey["l/b"] != 4 {
			t.Fatalf("l/b flushed with timestamp %d, want 4", byKey["l/b"])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("got %d flushed replies, want 2", len(got))
	}
}

func TestGetTimeoutFinalizesWithoutReplies(t *testing.T) {
	client, _ := sessionPair(t)

	called := make(chan struct{}, 1)
	_, err := client.Get("nope/*", func(Reply) { called <- struct{}{} }, GetOptions{
		AllowedDestination: LocalityRemote,
		TimeoutMs:          30,
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case <-called:
		t.Fatal("no queryable should have answered")
	case <-time.After(300 * time.Millisecond):
	}
}
