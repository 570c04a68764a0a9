package hotlist

import (
	"sync"

	"github.com/soundtrace/hotlist/pkg/models"
)

// ingestBuffer accumulates fingerprint events between match triggers. Push
// appends in arrival order with no deduplication; Drain atomically detaches
// the current contents. Each drain advances the generation counter, so every
// event belongs to exactly one batch even with concurrent pushes.
type ingestBuffer struct {
	mu     sync.Mutex
	events []models.FingerprintEvent
	gen    uint64
}

func newIngestBuffer() *ingestBuffer {
	return &ingestBuffer{}
}

func (b *ingestBuffer) Push(ev models.FingerprintEvent) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Drain returns all buffered events and the generation they belong to,
// resetting the buffer. Events arriving during the call land either in the
// returned batch or the next one, never both.
func (b *ingestBuffer) Drain() ([]models.FingerprintEvent, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = nil
	b.gen++
	return events, b.gen
}

func (b *ingestBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
