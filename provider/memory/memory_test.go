package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := New(0)
	defer p.Close(ctx)

	buf := []byte("standings")
	if ok, err := p.Set(ctx, "k", buf, 1, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	buf[0] = 'X' // caller reuses its buffer
	got, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || string(got) != "standings" {
		t.Fatalf("Get: got=%q ok=%v err=%v", got, ok, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestExpiryOnRead(t *testing.T) {
	ctx := context.Background()
	p := New(0)
	defer p.Close(ctx)

	now := time.Now()
	p.nowFunc = func() time.Time { return now }
	_, _ = p.Set(ctx, "k", []byte("v"), 1, time.Minute)

	p.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if p.Len() != 0 {
		t.Fatalf("expired entry should be removed on read, len=%d", p.Len())
	}
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	p := New(10 * time.Millisecond)
	defer p.Close(ctx)

	for i := 0; i < 64; i++ {
		_, _ = p.Set(ctx, strconv.Itoa(i), nil, 1, time.Nanosecond)
	}
	time.Sleep(100 * time.Millisecond)
	if p.Len() != 0 {
		t.Fatalf("sweeper left %d entries", p.Len())
	}
}

func TestSetAfterCloseIsRejected(t *testing.T) {
	ctx := context.Background()
	p := New(0)
	_ = p.Close(ctx)
	_ = p.Close(ctx) // idempotent
	if ok, err := p.Set(ctx, "k", []byte("v"), 1, 0); ok || err != nil {
		t.Fatalf("Set after Close: ok=%v err=%v", ok, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	p := New(time.Millisecond)
	defer p.Close(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 256; j++ {
				k := strconv.Itoa(j)
				_, _ = p.Set(ctx, k, []byte(k), 1, time.Minute)
				_, _, _ = p.Get(ctx, k)
			}
		}()
	}
	wg.Wait()
}
