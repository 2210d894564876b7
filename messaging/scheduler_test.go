package messaging

import (
	"testing"
	"time"
)

func TestSchedulerAfterFiresOnce(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	done := make(chan struct{})
	s.After(10*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the scheduled callback")
	}
}

func TestSchedulerNowPreservesFIFOOrder(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	order := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		s.Now(func() { order <- i })
	}
	var got []int
	for i := 0; i < 3; i++ {
		select {
		case v := <-order:
			got = append(got, v)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for scheduled callbacks")
		}
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected FIFO order 0,1,2, got %v", got)
		}
	}
}

func TestSchedulerStopCancelsPending(t *testing.T) {
	s := NewScheduler()
	fired := make(chan struct{}, 1)
	s.After(50*time.Millisecond, func() { fired <- struct{}{} })
	s.Stop()
	select {
	case <-fired:
		t.Fatal("expected the pending callback to be cancelled by Stop")
	case <-time.After(100 * time.Millisecond):
	}
}
