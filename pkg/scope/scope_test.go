package scope

import (
	"context"
	"testing"
	"time"
)

func TestFunc_RunsOnce(t *testing.T) {
	count := 0
	v := Func(func() { count++ })

	v.Release()
	v.Release()

	if count != 1 {
		t.Errorf("expected cleanup to run once, ran %d times", count)
	}
}

type closer struct {
	closed int
}

func (c *closer) Close() error {
	c.closed++
	return nil
}

func TestKeep_ClosesCloser(t *testing.T) {
	c := &closer{}
	v := Keep(c)

	v.Release()
	v.Release()

	if c.closed != 1 {
		t.Errorf("expected Close once, got %d", c.closed)
	}
}

func TestKeep_ReleasesNestedValue(t *testing.T) {
	count := 0
	v := Keep(Func(func() { count++ }))

	v.Release()

	if count != 1 {
		t.Errorf("expected nested value released once, got %d", count)
	}
}

func TestKeep_PlainValue(t *testing.T) {
	// Plain data has no cleanup; Release must not panic.
	v := Keep([]byte("buffer"))
	v.Release()
}

func TestGroup_ReleasesInReverseOrder(t *testing.T) {
	var order []int
	g := Group(
		Func(func() { order = append(order, 1) }),
		Func(func() { order = append(order, 2) }),
		Func(func() { order = append(order, 3) }),
	)

	g.Release()

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("expected release order [3 2 1], got %v", order)
	}
}

func TestGo_CancelsAndJoins(t *testing.T) {
	started := make(chan struct{})
	stopped := make(chan struct{})

	v := Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(stopped)
	})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not start")
	}

	v.Release()

	select {
	case <-stopped:
	default:
		t.Error("expected Release to wait for the goroutine to exit")
	}
}
