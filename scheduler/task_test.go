package scheduler

import (
	"errors"
	"testing"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

func TestSpawnAwaitReturnsValue(t *testing.T) {
	ts := New(2)
	h := ts.Spawn(func() (values.Value, error) { return values.Int(42), nil })
	v, err := ts.Await(h)
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if v != values.Int(42) {
		t.Fatalf("Await = %v, want Int(42)", v)
	}
}

func TestSpawnAwaitPropagatesError(t *testing.T) {
	ts := New(2)
	boom := errors.New("boom")
	h := ts.Spawn(func() (values.Value, error) { return values.Nil, boom })
	_, err := ts.Await(h)
	if !errors.Is(err, boom) {
		t.Fatalf("Await err = %v, want wrapping %v", err, boom)
	}
}

func TestAwaitUnknownHandleIsTaskError(t *testing.T) {
	ts := New(1)
	_, err := ts.Await(999)
	if !errors.Is(err, errs.ErrTaskHandleNotFound) {
		t.Fatalf("Await(999) err = %v, want ErrTaskHandleNotFound", err)
	}
}

func TestAwaitTwiceOnSameHandleFailsSecondTime(t *testing.T) {
	ts := New(1)
	h := ts.Spawn(func() (values.Value, error) { return values.Int(1), nil })
	if _, err := ts.Await(h); err != nil {
		t.Fatalf("first Await: %v", err)
	}
	if _, err := ts.Await(h); !errors.Is(err, errs.ErrTaskHandleNotFound) {
		t.Fatalf("second Await err = %v, want ErrTaskHandleNotFound", err)
	}
}

func TestManyConcurrentSpawnsAllComplete(t *testing.T) {
	ts := New(4)
	const n = 50
	handles := make([]int64, n)
	for i := 0; i < n; i++ {
		i := i
		handles[i] = ts.Spawn(func() (values.Value, error) { return values.Int(int64(i)), nil })
	}
	for i, h := range handles {
		v, err := ts.Await(h)
		if err != nil {
			t.Fatalf("Await(%d): %v", h, err)
		}
		if v != values.Int(int64(i)) {
			t.Fatalf("Await(%d) = %v, want Int(%d)", h, v, i)
		}
	}
}
