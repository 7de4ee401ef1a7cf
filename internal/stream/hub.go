package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	ActionEntryCreate = "entry.create"
	ActionEntryUpdate = "entry.update"
	ActionEntryDelete = "entry.delete"
	ActionRiskOpen    = "risk.open"
	ActionRiskAdjust  = "risk.adjust"
	ActionRiskClose   = "risk.close"
)

// Event is one journal lifecycle notification.
type Event struct {
	Action    string    `json:"action"`
	EntryID   uint64    `json:"entry_id"`
	EntryType string    `json:"entry_type"`
	Status    string    `json:"status,omitempty"`
	At        time.Time `json:"at"`
}

// Hub fans journal events out to in-process subscribers. Publish never
// blocks: a full subscriber buffer loses its oldest event first.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64
	buf    int

	logger  *zap.Logger
	dropped uint64
}

func NewHub(buf int, logger *zap.Logger) *Hub {
	if buf <= 0 {
		buf = 64
	}
	return &Hub{
		subs:   map[uint64]chan Event{},
		buf:    buf,
		logger: logger,
	}
}

// Subscribe registers a listener. The returned cancel func detaches the
// subscriber and closes its channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	if h == nil {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	ch := make(chan Event, h.buf)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		// Slow subscriber: shed the oldest buffered event, then retry once.
		select {
		case <-ch:
			atomic.AddUint64(&h.dropped, 1)
		default:
		}
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
}

// Run logs fanout statistics until ctx ends. Purely observational.
func (h *Hub) Run(ctx context.Context) error {
	if h == nil {
		return nil
	}
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if h.logger != nil {
				h.logger.Info("stream hub stats",
					zap.Int("subscribers", h.SubscriberCount()),
					zap.Uint64("dropped", h.Dropped()),
				)
			}
		}
	}
}

func (h *Hub) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return atomic.LoadUint64(&h.dropped)
}

func (h *Hub) SubscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
