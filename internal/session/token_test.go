package session

import "testing"

func TestDeclareUndeclareToken(t *testing.T) {
	client, _ := sessionPair(t)

	tok, err := client.DeclareToken("liveliness/node1")
	if err != nil {
		t.Fatalf("DeclareToken: %v", err)
	}
	if tok.Key != "liveliness/node1" {
		t.Fatalf("Token.Key = %q, want liveliness/node1", tok.Key)
	}

	if err := client.UndeclareToken(tok); err != nil {
		t.Fatalf("UndeclareToken: %v", err)
	}
	if err := client.UndeclareToken(tok); err != ErrUnknownID {
		t.Fatalf("second UndeclareToken = %v, want ErrUnknownID", err)
	}
}
