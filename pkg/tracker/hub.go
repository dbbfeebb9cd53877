package tracker

import (
	"sync"

	"github.com/geniass/price-tracker/pkg/model"
	"go.uber.org/zap"
)

const (
	subscriberBuffer = 64
	recentEvents     = 200
)

// Hub fans cycle events out to subscribers and keeps the most recent ones.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[int]chan model.Event
	nextID int
	recent []model.Event
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, subs: make(map[int]chan model.Event)}
}

// Subscribe returns a channel of future events and a function that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan model.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan model.Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *Hub) Publish(e model.Event) {
	h.log(e)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append(h.recent, e)
	if len(h.recent) > recentEvents {
		h.recent = h.recent[len(h.recent)-recentEvents:]
	}

	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn("event subscriber lagging, dropping event", zap.Int("subscriber", id), zap.String("cycle_id", e.CycleID))
		}
	}
}

// Recent returns up to n of the latest events, oldest first.
func (h *Hub) Recent(n int) []model.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > len(h.recent) {
		n = len(h.recent)
	}
	out := make([]model.Event, n)
	copy(out, h.recent[len(h.recent)-n:])
	return out
}

func (h *Hub) log(e model.Event) {
	fields := []zap.Field{
		zap.String("cycle_id", e.CycleID),
		zap.String("kind", string(e.Kind)),
	}
	if e.URL != "" {
		fields = append(fields, zap.String("url", e.URL))
	}
	switch e.Severity {
	case model.SeverityError:
		h.logger.Error(e.Message, fields...)
	default:
		h.logger.Info(e.Message, fields...)
	}
}
