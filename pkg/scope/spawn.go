package scope

import "context"

// Go starts a background goroutine whose lifetime is bound to the returned
// value. The goroutine receives a context that is canceled when the value is
// released; Release then waits for the goroutine to exit. Attach the result
// to a node to stop background work when the node leaves the tree.
func Go(run func(ctx context.Context)) Value {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	return Func(func() {
		cancel()
		<-done
	})
}
