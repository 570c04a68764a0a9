package hotlist

import (
	"sync"
	"testing"

	"github.com/soundtrace/hotlist/pkg/models"
)

func TestBufferPushDrain(t *testing.T) {
	b := newIngestBuffer()

	for i := 0; i < 5; i++ {
		b.Push(models.FingerprintEvent{Hash: uint32(i), TimeCode: int64(i)})
	}
	if b.Len() != 5 {
		t.Fatalf("Expected 5 buffered events, got %d", b.Len())
	}

	events, gen := b.Drain()
	if len(events) != 5 {
		t.Fatalf("Expected 5 drained events, got %d", len(events))
	}
	if gen != 1 {
		t.Errorf("Expected generation 1, got %d", gen)
	}
	for i, ev := range events {
		if ev.Hash != uint32(i) {
			t.Errorf("Expected arrival order preserved, got hash %d at %d", ev.Hash, i)
		}
	}

	// Buffer resets after a drain.
	events, gen = b.Drain()
	if len(events) != 0 {
		t.Errorf("Expected empty drain, got %d events", len(events))
	}
	if gen != 2 {
		t.Errorf("Expected generation 2, got %d", gen)
	}
}

func TestBufferKeepsDuplicates(t *testing.T) {
	b := newIngestBuffer()
	b.Push(models.FingerprintEvent{Hash: 7, TimeCode: 1})
	b.Push(models.FingerprintEvent{Hash: 7, TimeCode: 2})

	events, _ := b.Drain()
	if len(events) != 2 {
		t.Fatalf("Expected no deduplication, got %d events", len(events))
	}
}

// TestBufferConcurrentDrain hammers the buffer with concurrent pushes and
// drains: every pushed event must land in exactly one batch.
func TestBufferConcurrentDrain(t *testing.T) {
	b := newIngestBuffer()

	const producers = 8
	const perProducer = 1000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Push(models.FingerprintEvent{
					Hash:     uint32(p),
					TimeCode: int64(p*perProducer + i),
				})
			}
		}(p)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	seen := make(map[int64]int)
	collect := func() {
		events, _ := b.Drain()
		for _, ev := range events {
			seen[ev.TimeCode]++
		}
	}

	for {
		select {
		case <-done:
			collect() // final batch after all producers stop
			if len(seen) != producers*perProducer {
				t.Fatalf("Expected %d distinct events, got %d", producers*perProducer, len(seen))
			}
			for tc, n := range seen {
				if n != 1 {
					t.Fatalf("Event %d appeared in %d batches", tc, n)
				}
			}
			return
		default:
			collect()
		}
	}
}
