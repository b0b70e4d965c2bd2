package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestClampInterval(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultInterval},
		{time.Second, MinInterval},
		{5 * time.Second, 5 * time.Second},
		{12 * time.Second, 12 * time.Second},
		{time.Minute, MaxInterval},
	}
	for _, tt := range tests {
		if got := ClampInterval(tt.in); got != tt.want {
			t.Errorf("ClampInterval(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func runHub[T any](t *testing.T, h *Hub[T]) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestFanOutSharesOneFetch(t *testing.T) {
	var calls atomic.Int32
	h := NewHub("items", func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, MaxInterval, nil)

	var subs []<-chan int
	for range 3 {
		ch, cancel := h.Subscribe()
		defer cancel()
		subs = append(subs, ch)
	}
	runHub(t, h)

	for i, ch := range subs {
		if v := recv(t, ch); v != 1 {
			t.Errorf("subscriber %d got %d, want 1", i, v)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetcher called %d times for 3 subscribers", n)
	}
}

func TestRefreshAndLateSubscriber(t *testing.T) {
	var calls atomic.Int32
	h := NewHub("sales", func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, MaxInterval, nil)

	first, cancel := h.Subscribe()
	defer cancel()
	runHub(t, h)
	recv(t, first)

	h.Refresh()
	if v := recv(t, first); v != 2 {
		t.Errorf("after Refresh got %d, want 2", v)
	}

	late, cancelLate := h.Subscribe()
	defer cancelLate()
	if v := recv(t, late); v != 2 {
		t.Errorf("late subscriber got %d, want latest 2", v)
	}
}

func TestStaleResultDropped(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	h := NewHub("low-stock", func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			<-release
			return "old", nil
		}
		return "new", nil
	}, MaxInterval, nil)

	ch, cancel := h.Subscribe()
	defer cancel()
	runHub(t, h)

	// The first fetch is stuck; a refresh overtakes it.
	for calls.Load() < 1 {
		time.Sleep(time.Millisecond)
	}
	h.Refresh()
	if v := recv(t, ch); v != "new" {
		t.Fatalf("got %q, want new", v)
	}

	close(release)
	time.Sleep(20 * time.Millisecond)
	if v, _ := h.Latest(); v != "new" {
		t.Errorf("stale result replaced latest: %q", v)
	}
	select {
	case v := <-ch:
		t.Errorf("stale result delivered: %q", v)
	default:
	}
}

func TestFetchErrorKeepsLatest(t *testing.T) {
	var fail atomic.Bool
	h := NewHub("stats", func(context.Context) (int, error) {
		if fail.Load() {
			return 0, errors.New("backend down")
		}
		return 7, nil
	}, MaxInterval, nil)

	ch, cancel := h.Subscribe()
	defer cancel()
	runHub(t, h)
	recv(t, ch)

	fail.Store(true)
	h.Refresh()
	time.Sleep(20 * time.Millisecond)
	if v, ok := h.Latest(); !ok || v != 7 {
		t.Errorf("Latest = %d, %v after failed poll", v, ok)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	var mu sync.Mutex
	n := 0
	h := NewHub("items", func(context.Context) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return n, nil
	}, MaxInterval, nil)

	slow, cancelSlow := h.Subscribe()
	defer cancelSlow()
	fast, cancelFast := h.Subscribe()
	defer cancelFast()
	runHub(t, h)

	for want := 1; want <= 5; want++ {
		if v := recv(t, fast); v != want {
			t.Fatalf("fast subscriber got %d, want %d", v, want)
		}
		if want < 5 {
			h.Refresh()
		}
	}
	if v := recv(t, slow); v != 5 {
		t.Errorf("slow subscriber got %d, want newest 5", v)
	}
}
