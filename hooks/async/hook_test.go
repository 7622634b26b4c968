package asynchook

import (
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/swrcache"
)

type recorder struct {
	swrcache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recorder) add(e string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) CacheMiss(k string)                         { r.add("miss:" + k) }
func (r *recorder) RefreshSucceeded(k string, _ time.Duration) { r.add("ok:" + k) }
func (r *recorder) CorruptEntry(k, reason string)              { r.add("corrupt:" + k + ":" + reason) }
func (r *recorder) RefreshFailed(k string, kind swrcache.ErrorKind, _ time.Duration, _ error) {
	r.add("fail:" + k + ":" + kind.String())
}

func TestForwardsAndDrainsOnClose(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 1, 16)

	h.CacheMiss("a")
	h.RefreshSucceeded("a", time.Millisecond)
	h.CorruptEntry("b", "corrupt")
	h.RefreshFailed("c", swrcache.KindTimeout, time.Second, nil)
	h.Close()

	want := []string{"miss:a", "ok:a", "corrupt:b:corrupt", "fail:c:timeout"}
	if len(rec.events) != len(want) {
		t.Fatalf("events=%v", rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d: got %q want %q", i, rec.events[i], want[i])
		}
	}
}

func TestDropsWhenFullAndAfterClose(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// the worker takes one event and blocks, the queue holds one more
	for i := 0; i < 10; i++ {
		h.CacheMiss("k")
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	close(rec.block)
	h.Close()

	before := h.Dropped()
	h.CacheMiss("late")
	if h.Dropped() != before+1 {
		t.Fatalf("events after Close must be dropped")
	}
	h.Close() // idempotent
}
