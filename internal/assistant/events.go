package assistant

import (
	"sync"
	"time"
)

type EventType string

const (
	EventState     EventType = "state"
	EventToast     EventType = "toast"
	EventNavigate  EventType = "navigate"
	EventCountdown EventType = "countdown"
	EventSpeech    EventType = "speech"
	EventWakeWord  EventType = "wake-word"
)

type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
	ToastInfo    ToastLevel = "info"
)

type Toast struct {
	Level   ToastLevel `json:"level"`
	Message string     `json:"message"`
}

// Navigation asks the client to move. Action is "push", "back" or "reload".
type Navigation struct {
	Action string `json:"action"`
	Path   string `json:"path,omitempty"`
}

type StateChange struct {
	Phase Phase `json:"phase"`
	State State `json:"state"`
}

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type Publisher interface {
	Publish(Event)
}

type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Hub fans events out to subscribers. Slow subscribers drop events rather
// than block the controller.
type Hub struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered event channel and a function that closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
