package keyedlock

import (
	"sync"
	"testing"
)

func TestLock_SerializesSameKey(t *testing.T) {
	k := New()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("g1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if k.Len() != 0 {
		t.Fatalf("Len() = %d after all releases, want 0", k.Len())
	}
}

func TestLock_DistinctKeysDoNotBlock(t *testing.T) {
	k := New()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	if k.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 while a is held", k.Len())
	}
	unlockA()
	if k.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", k.Len())
	}
}
