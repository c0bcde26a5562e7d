package notify

import "sync"

// Delivery is one event captured by a Recorder. Label is empty for broadcasts.
type Delivery struct {
	Label   string
	Event   string
	Payload interface{}
}

// Recorder is an in-memory Transport that keeps every delivery in order.
// Labels listed in Unreachable fail, to exercise error swallowing.
type Recorder struct {
	mu          sync.Mutex
	deliveries  []Delivery
	Unreachable map[string]bool
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{Unreachable: make(map[string]bool)}
}

func (r *Recorder) Send(label, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Unreachable[label] {
		return ErrNoSubscriber
	}
	r.deliveries = append(r.deliveries, Delivery{Label: label, Event: event, Payload: payload})
	return nil
}

func (r *Recorder) Broadcast(event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{Event: event, Payload: payload})
	return nil
}

// Deliveries returns a copy of everything recorded so far
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

// To returns the deliveries of one event sent to one label
func (r *Recorder) To(label, event string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Delivery
	for _, d := range r.deliveries {
		if d.Label == label && d.Event == event {
			out = append(out, d)
		}
	}
	return out
}

// Reset forgets all deliveries
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}
