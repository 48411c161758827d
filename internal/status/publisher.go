package status

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the pipeline condition shown to presentation clients.
type State string

const (
	StateIdle          State = "idle"
	StateCommandWindow State = "command_window"
	StateProcessing    State = "processing"
	StateEnrolling     State = "enrolling"
	StateComplete      State = "complete"
	StateError         State = "error"
	StateDisabled      State = "disabled"
)

// Event is one status update published to UI subscribers.
type Event struct {
	State   State     `json:"state"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Publisher fans status events out to subscriber channels. Slow subscribers
// lose events rather than stalling the pipeline.
type Publisher struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan Event
	last Event
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[uuid.UUID]chan Event)}
}

// Publish sends an event to every subscriber.
func (p *Publisher) Publish(state State, message string) {
	ev := Event{State: state, Message: message, At: time.Now()}
	p.mu.Lock()
	p.last = ev
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	p.mu.Unlock()
}

// Last returns the most recently published event.
func (p *Publisher) Last() Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Subscribe registers a new subscriber channel.
func (p *Publisher) Subscribe() (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, 16)
	p.mu.Lock()
	p.subs[id] = ch
	p.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (p *Publisher) Unsubscribe(id uuid.UUID) {
	p.mu.Lock()
	if ch, ok := p.subs[id]; ok {
		delete(p.subs, id)
		close(ch)
	}
	p.mu.Unlock()
}
