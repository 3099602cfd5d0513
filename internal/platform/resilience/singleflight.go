package resilience

import "sync"

// SingleFlight collapses concurrent calls that share a key into one
// execution whose result is handed to every waiter.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*flightCall[T]
}

type flightCall[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// Do runs fn once per in-flight key. shared is true for callers that
// received another caller's result.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*flightCall[T])
	}

	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &flightCall[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	defer func() {
		c.wg.Done()
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
	}()

	c.val, c.err = fn()
	return c.val, c.err, false
}
