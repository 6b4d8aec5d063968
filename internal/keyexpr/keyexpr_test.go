package keyexpr

import "testing"

func TestCanonicalizeIdempotent(t *testing.T) {
	cases := []string{"a/b/c", "a/*/c", "a/**", "a/$*x", "*", "**"}
	for _, c := range cases {
		out, err := Canonicalize(c)
		if err != nil {
			t.Fatalf("Canonicalize(%q) error: %v", c, err)
		}
		if out != c {
			t.Fatalf("Canonicalize(%q) = %q, want unchanged", c, out)
		}
	}
}

func TestCanonicalizeRewrites(t *testing.T) {
	out, err := Canonicalize("a/$*/b")
	if err != nil || out != "a/*/b" {
		t.Fatalf("got %q, %v, want a/*/b", out, err)
	}
	out, err = Canonicalize("a/**/*")
	if err != nil || out != "a/*/**" {
		t.Fatalf("got %q, %v, want a/*/**", out, err)
	}
}

func TestCanonicalizeRejects(t *testing.T) {
	bad := []string{"", "a//b", "a/**/**", "a/b*c", "a/$", "a/$$", "a/$*$", "a/#", "a/?"}
	for _, b := range bad {
		if _, err := Canonicalize(b); err == nil {
			t.Fatalf("Canonicalize(%q) expected error", b)
		}
	}
}

func TestIntersectsSymmetric(t *testing.T) {
	pairs := [][2]string{{"a/*/c", "a/b/c"}, {"a/**", "a/b/c"}, {"a/$*x", "a/yx"}}
	for _, p := range pairs {
		fwd, err := Intersects(p[0], p[1])
		if err != nil {
			t.Fatal(err)
		}
		rev, err := Intersects(p[1], p[0])
		if err != nil {
			t.Fatal(err)
		}
		if fwd != rev {
			t.Fatalf("asymmetric intersects for %v", p)
		}
		if !fwd {
			t.Fatalf("expected intersection for %v", p)
		}
	}
}

func TestIncludesReflexive(t *testing.T) {
	for _, c := range []string{"a/b/c", "a/*/c", "a/**", "a/$*x"} {
		ok, err := Includes(c, c)
		if err != nil || !ok {
			t.Fatalf("Includes(%q,%q) = %v, %v, want true", c, c, ok, err)
		}
	}
}

func TestIncludesAntisymmetric(t *testing.T) {
	a, b := "a/**", "a/b/c"
	ab, err := Includes(a, b)
	if err != nil || !ab {
		t.Fatalf("Includes(a,b) = %v, %v", ab, err)
	}
	ba, err := Includes(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ba && a != b {
		t.Fatal("expected antisymmetry to fail mutual inclusion for distinct keys")
	}
}

func TestKnownIntersections(t *testing.T) {
	ok, err := Intersects("a/*/c", "a/b/c")
	if err != nil || !ok {
		t.Fatalf("a/*/c ∩ a/b/c = %v, %v, want true", ok, err)
	}
	ok, err = Includes("a/**", "a/b/c")
	if err != nil || !ok {
		t.Fatalf("a/** ⊇ a/b/c = %v, %v, want true", ok, err)
	}
	ok, err = Intersects("a/$*x", "a/yx")
	if err != nil || !ok {
		t.Fatalf("a/$*x ∩ a/yx = %v, %v, want true", ok, err)
	}
}

func TestNonIntersecting(t *testing.T) {
	ok, err := Intersects("a/b", "a/c")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no intersection")
	}
}

func TestRejectsNonCanonInput(t *testing.T) {
	if _, err := Intersects("a/**/**", "a/b"); err == nil {
		t.Fatal("expected error for non-canon input")
	}
	if _, err := Includes("a/**/**", "a/b"); err == nil {
		t.Fatal("expected error for non-canon input")
	}
}

type fakeTable map[uint16]string

func (f fakeTable) Resolve(id uint16) (string, bool) {
	v, ok := f[id]
	return v, ok
}

func TestResolve(t *testing.T) {
	table := fakeTable{1: "a/b"}
	got, err := Resolve(table, 1, "/c", true)
	if err != nil || got != "a/b/c" {
		t.Fatalf("got %q, %v, want a/b/c", got, err)
	}
	got, err = Resolve(table, 0, "x/y", true)
	if err != nil || got != "x/y" {
		t.Fatalf("got %q, %v, want x/y", got, err)
	}
	if _, err := Resolve(table, 99, "", false); err != ErrUnknownResourceID {
		t.Fatalf("got %v, want ErrUnknownResourceID", err)
	}
}

func TestSuffixIntersectsFastPath(t *testing.T) {
	ok, applicable := SuffixIntersects(5, "a/*", 5, "a/b")
	if !applicable || !ok {
		t.Fatalf("got %v, %v, want true, true", ok, applicable)
	}
	_, applicable = SuffixIntersects(5, "a/*", 6, "a/b")
	if applicable {
		t.Fatal("expected fast path inapplicable for differing ids")
	}
}
