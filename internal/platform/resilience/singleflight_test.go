package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	var sharedCount atomic.Int32
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err, shared := g.Do("2025-09-13", func() (string, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil || v != "ok" {
				t.Errorf("singleflight call failed: v=%q err=%v", v, err)
			}
			if shared {
				sharedCount.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
	if got := sharedCount.Load(); got != workers-1 {
		t.Fatalf("expected %d shared results, got %d", workers-1, got)
	}
}

func TestSingleFlight_ReleasesKeyAfterError(t *testing.T) {
	var g SingleFlight[int]
	boom := errors.New("boom")

	if _, err, _ := g.Do("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err, shared := g.Do("k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 || shared {
		t.Fatalf("expected fresh call after error, got v=%d err=%v shared=%v", v, err, shared)
	}
}
