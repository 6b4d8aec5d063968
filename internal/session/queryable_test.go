package session

import (
	"testing"
	"time"
)

func TestQueryableRemoteRoundTrip(t *testing.T) {
	client, server := sessionPair(t)

	_, err := server.DeclareQueryable("kv/*", func(q *Query) {
		if q.Key() != "kv/foo" {
			t.Errorf("Query.Key() = %q, want kv/foo", q.Key())
		}
		if err := q.Reply(Sample{Key: q.Key(), Payload: []byte("bar")}); err != nil {
			t.Errorf("Reply: %v", err)
		}
	}, QueryableOptions{})
	if err != nil {
		t.Fatalf("DeclareQueryable: %v", err)
	}

	replies := make(chan Reply, 4)
	_, err = client.Get("kv/foo", func(r Reply) { replies <- r }, GetOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case r := <-replies:
		if r.Kind != ReplyKindOk || string(r.Sample.Payload) != "bar" {
			t.Fatalf("got %+v, want ReplyKindOk payload=bar", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reply never arrived")
	}
}

func TestQueryableUndeclareStopsAnswering(t *testing.T) {
	client, server := sessionPair(t)

	qy, err := server.DeclareQueryable("kv/*", func(q *Query) {
		_ = q.Reply(Sample{Key: q.Key()})
	}, QueryableOptions{})
	if err != nil {
		t.Fatalf("DeclareQueryable: %v", err)
	}
	if err := server.UndeclareQueryable(qy); err != nil {
		t.Fatalf("UndeclareQueryable: %v", err)
	}

	got := make(chan Reply, 1)
	id, err := client.Get("kv/foo", func(r Reply) { got <- r }, GetOptions{AllowedDestination: LocalityRemote})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer client.Cancel(id)

	select {
	case r := <-got:
		t.Fatalf("undeclared queryable should not answer, got %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestQueryReplyErr(t *testing.T) {
	client, server := sessionPair(t)

	_, err := server.DeclareQueryable("err/*", func(q *Query) {
		_ = q.ReplyErr(nil, []byte("not found"))
	}, QueryableOptions{})
	if err != nil {
		t.Fatalf("DeclareQueryable: %v", err)
	}

	replies := make(chan Reply, 1)
	_, err = client.Get("err/x", func(r Reply) { replies <- r }, GetOptions{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	select {
	case r := <-replies:
		if r.Kind != ReplyKindErr || string(r.ErrBody) != "not found" {
			t.Fatalf("got %+v, want ReplyKindErr payload=not found", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("err reply never arrived")
	}
}
