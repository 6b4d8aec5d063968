package session

import "testing"

func TestDeclareResourceIdempotent(t *testing.T) {
	client, _ := sessionPair(t)

	id1, err := client.DeclareResource("a/b/c")
	if err != nil {
		t.Fatalf("DeclareResource: %v", err)
	}
	id2, err := client.DeclareResource("a/b/c")
	if err != nil {
		t.Fatalf("second DeclareResource: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("declaring the same key twice should return the same id, got %d and %d", id1, id2)
	}

	key, ok := client.ResolveLocalResource(id1)
	if !ok || key != "a/b/c" {
		t.Fatalf("ResolveLocalResource(%d) = %q, %v, want a/b/c, true", id1, key, ok)
	}
}

func TestUndeclareResourceRemovesMapping(t *testing.T) {
	client, _ := sessionPair(t)

	id, err := client.DeclareResource("x/y")
	if err != nil {
		t.Fatalf("DeclareResource: %v", err)
	}
	if err := client.UndeclareResource(id); err != nil {
		t.Fatalf("UndeclareResource: %v", err)
	}
	if _, ok := client.ResolveLocalResource(id); ok {
		t.Fatal("resource should no longer resolve after UndeclareResource")
	}
}

func TestUndeclareResourceUnknownID(t *testing.T) {
	client, _ := sessionPair(t)
	if err := client.UndeclareResource(0x1234); err != ErrUnknownID {
		t.Fatalf("UndeclareResource(unknown) = %v, want ErrUnknownID", err)
	}
}
