package realtime

import (
	"errors"
	"sync"
	"testing"
)

func TestConnLifecycle(t *testing.T) {
	c := NewConn()
	if c.State() != StatePending {
		t.Fatalf("new conn state = %v, want pending", c.State())
	}
	if err := c.Send([]byte("early")); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("send before open = %v, want ErrConnClosed", err)
	}

	if err := c.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if c.State() != StateOpen {
		t.Fatalf("state after open = %v, want open", c.State())
	}
	if err := c.Open(); !errors.Is(err, ErrNotPending) {
		t.Fatalf("double open = %v, want ErrNotPending", err)
	}

	if err := c.Send([]byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := <-c.Outbox(); string(got) != "hello" {
		t.Fatalf("outbox = %q, want hello", got)
	}

	c.Close()
	if c.State() != StateClosed {
		t.Fatalf("state after close = %v, want closed", c.State())
	}
	if err := c.Send([]byte("late")); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("send after close = %v, want ErrConnClosed", err)
	}
}

func TestConnSlowConsumer(t *testing.T) {
	c := NewConn()
	if err := c.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < outboundBuffer; i++ {
		if err := c.Send([]byte("x")); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := c.Send([]byte("overflow")); !errors.Is(err, ErrSlowConsumer) {
		t.Fatalf("send on full buffer = %v, want ErrSlowConsumer", err)
	}
}

func TestConnCloseIdempotent(t *testing.T) {
	c := NewConn()
	if err := c.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	calls := 0
	c.OnClose(func(*Conn) { calls++ })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("close hook ran %d times, want 1", calls)
	}
}

func TestConnOnCloseAfterClosed(t *testing.T) {
	c := NewConn()
	if err := c.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	c.Close()

	ran := false
	c.OnClose(func(*Conn) { ran = true })
	if !ran {
		t.Fatal("hook registered after close did not run immediately")
	}
}
