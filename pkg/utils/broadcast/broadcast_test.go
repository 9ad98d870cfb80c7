package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastServer_FanOut(t *testing.T) {
	source := make(chan int)
	srv := NewBroadcastServer("2024_05_R", "analysis", source)
	defer srv.Close()

	sub1 := srv.Subscribe()
	sub2 := srv.Subscribe()

	source <- 42
	assert.Equal(t, 42, <-sub1)
	assert.Equal(t, 42, <-sub2)
}

func TestBroadcastServer_CancelSubscription(t *testing.T) {
	source := make(chan int)
	srv := NewBroadcastServer("2024_05_R", "analysis", source)
	defer srv.Close()

	sub := srv.Subscribe()
	keep := srv.Subscribe()
	srv.CancelSubscription(sub)
	_, ok := <-sub
	assert.False(t, ok, "canceled subscription must be closed")

	source <- 7
	assert.Equal(t, 7, <-keep)
}

func TestBroadcastServer_SlowConsumerSkipped(t *testing.T) {
	source := make(chan int)
	srv := NewBroadcastServer("2024_05_R", "analysis", source)
	defer srv.Close()

	// never read from this one
	srv.Subscribe()
	live := srv.Subscribe()

	source <- 1
	assert.Equal(t, 1, <-live)
}

func TestBroadcastServer_CloseClosesListeners(t *testing.T) {
	source := make(chan int)
	srv := NewBroadcastServer("2024_05_R", "analysis", source)
	sub := srv.Subscribe()
	srv.Close()

	select {
	case _, ok := <-sub:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription was not closed")
	}
}
