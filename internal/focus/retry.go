package focus

import (
	"time"

	"go.uber.org/zap"
)

// after runs fn once, delay from now, on its own goroutine. The action
// cannot be cancelled; alive is checked at fire time and fn is skipped when
// it reports false.
func after(delay time.Duration, alive func() bool, fn func()) {
	time.AfterFunc(delay, func() {
		if alive() {
			fn()
		}
	})
}

// retry re-sends an event to a newly created surface once it has had time
// to start listening. Sending the same payload twice is harmless.
func (m *Manager) retry(label, event string, payload interface{}) {
	sys, emitter, logger := m.sys, m.emitter, m.logger
	after(m.retryDelay,
		func() bool {
			_, ok := sys.Get(label)
			return ok
		},
		func() {
			logger.Debug("re-sending event", zap.String("label", label), zap.String("event", event))
			emitter.Send(label, event, payload)
		})
}
