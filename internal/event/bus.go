package event

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler consumes one event. A non-nil error is logged by the bus and never
// reaches the publisher.
type Handler func(Event) error

// Bus is a synchronous dispatcher: Publish runs every handler registered for
// the event's type, in subscription order, on the calling goroutine, and
// returns only after all of them ran. There is no retry and no dead-letter
// capture; a failing handler is logged and the remaining handlers still run.
type Bus struct {
	log *logrus.Logger

	mu          sync.RWMutex
	subscribers map[Type][]Handler
}

func NewBus(log *logrus.Logger) *Bus {
	return &Bus{
		log:         log,
		subscribers: make(map[Type][]Handler),
	}
}

// Subscribe registers a handler for one event type. Registrations are not
// deduplicated; callers must not double-register.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], h)
}

// Publish delivers the event to every subscriber of its type.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	handlers := b.subscribers[evt.Type]
	b.mu.RUnlock()

	b.log.WithField("event", string(evt.Type)).Debug("publishing event")

	for i, h := range handlers {
		if err := b.dispatch(h, evt); err != nil {
			b.log.WithFields(logrus.Fields{
				"event":      string(evt.Type),
				"subscriber": i,
			}).WithError(err).Error("event subscriber failed")
		}
	}
}

func (b *Bus) dispatch(h Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return h(evt)
}
