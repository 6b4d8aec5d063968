package collections

import "sync/atomic"

// Arc is a strong, reference-counted handle to a value of type T,
// matching zenoh-pico's _z_refcount_t / collections/pointer.h pair of
// strong and weak counts. The session uses Arc to hand subscriptions,
// queryables, and pending queries to callback invocations that run
// outside the session lock: a concurrent unregister drops the table's
// own strong reference but the callback's cloned Arc keeps the value
// alive until the callback returns.
type Arc[T any] struct {
	box *arcBox[T]
}

type arcBox[T any] struct {
	val     T
	strong  int32
	weak    int32
	onDrop  func(T)
	dropped int32
}

// NewArc wraps val in a new Arc with one strong reference. onDrop, if
// non-nil, runs exactly once when the last strong reference is released
// (the spec's "drop-callback").
func NewArc[T any](val T, onDrop func(T)) Arc[T] {
	return Arc[T]{box: &arcBox[T]{val: val, strong: 1, onDrop: onDrop}}
}

// Get returns the wrapped value. Valid only while the Arc (or a clone)
// is held.
func (a Arc[T]) Get() T { return a.box.val }

// Valid reports whether this handle still references a live box.
func (a Arc[T]) Valid() bool { return a.box != nil }

// Clone increments the strong count and returns a new handle to the
// same value.
func (a Arc[T]) Clone() Arc[T] {
	atomic.AddInt32(&a.box.strong, 1)
	return Arc[T]{box: a.box}
}

// Drop decrements the strong count, invoking onDrop exactly once when it
// reaches zero.
func (a Arc[T]) Drop() {
	if atomic.AddInt32(&a.box.strong, -1) == 0 {
		if atomic.CompareAndSwapInt32(&a.box.dropped, 0, 1) && a.box.onDrop != nil {
			a.box.onDrop(a.box.val)
		}
	}
}

// Downgrade returns a Weak handle that does not keep the value alive.
func (a Arc[T]) Downgrade() Weak[T] {
	atomic.AddInt32(&a.box.weak, 1)
	return Weak[T]{box: a.box}
}

// Weak is a non-owning handle produced by Arc.Downgrade.
type Weak[T any] struct {
	box *arcBox[T]
}

// Upgrade returns a new strong Arc if the value has not yet been
// dropped, or ok=false ("a null signal") otherwise.
func (w Weak[T]) Upgrade() (a Arc[T], ok bool) {
	if w.box == nil || atomic.LoadInt32(&w.box.dropped) == 1 {
		return Arc[T]{}, false
	}
	for {
		cur := atomic.LoadInt32(&w.box.strong)
		if cur == 0 {
			return Arc[T]{}, false
		}
		if atomic.CompareAndSwapInt32(&w.box.strong, cur, cur+1) {
			return Arc[T]{box: w.box}, true
		}
	}
}
