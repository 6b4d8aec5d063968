package collections

import "testing"

func TestListPushPop(t *testing.T) {
	var l List[int]
	l.Push(1)
	l.Push(2)
	l.Push(3)
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	v, ok := l.Pop()
	if !ok || v != 3 {
		t.Fatalf("pop = %d,%v want 3,true", v, ok)
	}
}

func TestListPushSorted(t *testing.T) {
	var l List[int]
	less := func(a, b int) bool { return a < b }
	for _, v := range []int{5, 1, 4, 2, 3} {
		l.PushSorted(v, less)
	}
	got := l.ToSlice()
	want := []int{1, 2, 3, 4, 5}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestListDropFilters(t *testing.T) {
	var l List[int]
	for _, v := range []int{1, 2, 2, 3} {
		l.Push(v)
	}
	if !l.DropFirstFilter(func(v int) bool { return v == 2 }) {
		t.Fatal("expected removal")
	}
	if l.Len() != 3 {
		t.Fatalf("len = %d, want 3", l.Len())
	}
	removed := l.DropAllFilter(func(v int) bool { return v == 2 })
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestOrderedMapPopFirst(t *testing.T) {
	m := NewOrderedMap[int, string](func(a, b int) bool { return a < b })
	m.Insert(3, "c")
	m.Insert(1, "a")
	m.Insert(2, "b")
	k, v, ok := m.PopFirst()
	if !ok || k != 1 || v != "a" {
		t.Fatalf("popfirst = %d,%s,%v", k, v, ok)
	}
	if m.Len() != 2 {
		t.Fatalf("len = %d, want 2", m.Len())
	}
}

func TestOrderedMapOverwrite(t *testing.T) {
	m := NewOrderedMap[string, int](func(a, b string) bool { return a < b })
	m.Insert("k", 1)
	m.Insert("k", 2)
	v, ok := m.Get("k")
	if !ok || v != 2 {
		t.Fatalf("get = %d,%v want 2,true", v, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
}

func TestIntMap(t *testing.T) {
	m := NewIntMap[string]()
	m.Insert(1, "a")
	m.Insert(17, "b") // collides with 1 at default capacity 16
	v, ok := m.Get(17)
	if !ok || v != "b" {
		t.Fatalf("get(17) = %s,%v", v, ok)
	}
	if !m.Remove(1) {
		t.Fatal("expected removal")
	}
	if _, ok := m.Get(1); ok {
		t.Fatal("expected key gone")
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
}

func TestArcDropCallback(t *testing.T) {
	dropped := 0
	a := NewArc(42, func(int) { dropped++ })
	b := a.Clone()
	a.Drop()
	if dropped != 0 {
		t.Fatal("dropped too early")
	}
	b.Drop()
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
}

func TestWeakUpgradeAfterDrop(t *testing.T) {
	a := NewArc("v", nil)
	w := a.Downgrade()
	a.Drop()
	if _, ok := w.Upgrade(); ok {
		t.Fatal("expected upgrade to fail after drop")
	}
}

func TestWeakUpgradeWhileAlive(t *testing.T) {
	a := NewArc("v", nil)
	w := a.Downgrade()
	b, ok := w.Upgrade()
	if !ok || b.Get() != "v" {
		t.Fatalf("upgrade = %v,%v", b, ok)
	}
	a.Drop()
	b.Drop()
}
