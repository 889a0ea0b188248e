package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketLocksSerializeSameKey(t *testing.T) {
	locks := NewTicketLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Lock("ticket-1")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestTicketLocksReleaseCleansUp(t *testing.T) {
	locks := NewTicketLocks()

	release := locks.Lock("ticket-1")
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}

func TestTicketLocksIndependentKeys(t *testing.T) {
	locks := NewTicketLocks()

	releaseA := locks.Lock("ticket-a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB := locks.Lock("ticket-b")
		releaseB()
		close(done)
	}()
	<-done
}
