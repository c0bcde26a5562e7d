package notify

import (
	"go.uber.org/zap"
)

// Transport moves an event to one surface or to every surface
type Transport interface {
	Send(label, event string, payload interface{}) error
	Broadcast(event string, payload interface{}) error
}

// Notifier is a fire-and-forget front for a Transport: delivery failures
// are logged and dropped.
type Notifier struct {
	transport Transport
	logger    *zap.Logger
}

// New creates a notifier over transport. A nil logger disables logging.
func New(transport Transport, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{transport: transport, logger: logger}
}

// Send delivers an event to the surface with the given label
func (n *Notifier) Send(label, event string, payload interface{}) {
	if n == nil || n.transport == nil {
		return
	}
	if err := n.transport.Send(label, event, payload); err != nil {
		n.logger.Debug("event not delivered",
			zap.String("label", label),
			zap.String("event", event),
			zap.Error(err))
	}
}

// Broadcast delivers an event to every subscribed surface
func (n *Notifier) Broadcast(event string, payload interface{}) {
	if n == nil || n.transport == nil {
		return
	}
	if err := n.transport.Broadcast(event, payload); err != nil {
		n.logger.Debug("broadcast not delivered",
			zap.String("event", event),
			zap.Error(err))
	}
}
