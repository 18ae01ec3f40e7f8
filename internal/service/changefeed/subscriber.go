// Package changefeed consumes change notifications published from the outbox.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/messaging"
)

// Handler reacts to a notification for one table. Notifications carry ids
// only, so handlers re-query whatever they need.
type Handler func(ctx context.Context, n model.ChangeNotification) error

type Subscriber struct {
	broker   messaging.Broker
	channel  string
	handlers map[string][]Handler
	logger   *logger.Logger
}

func NewSubscriber(broker messaging.Broker, channel string, log *logger.Logger) *Subscriber {
	return &Subscriber{
		broker:   broker,
		channel:  channel,
		handlers: make(map[string][]Handler),
		logger:   log,
	}
}

// On registers h for notifications about table. Call before Run.
func (s *Subscriber) On(table string, h Handler) {
	s.handlers[table] = append(s.handlers[table], h)
}

// Invalidator is anything holding a cache that a change can make stale.
type Invalidator interface {
	Invalidate()
}

// InvalidateOn drops c's cache whenever table changes.
func (s *Subscriber) InvalidateOn(table string, c Invalidator) {
	s.On(table, func(context.Context, model.ChangeNotification) error {
		c.Invalidate()
		return nil
	})
}

// Run blocks dispatching notifications until ctx is done or the
// subscription closes.
func (s *Subscriber) Run(ctx context.Context) error {
	msgs, err := s.broker.Subscribe(ctx, s.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to change feed: %w", err)
	}
	s.logger.Info("Listening for changes", "channel", s.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.Dispatch(ctx, msg)
		}
	}
}

// Dispatch decodes one message and runs the handlers for its table.
func (s *Subscriber) Dispatch(ctx context.Context, msg []byte) {
	var n model.ChangeNotification
	if err := json.Unmarshal(msg, &n); err != nil {
		s.logger.Warn("Dropping malformed change notification", "error", err.Error())
		return
	}
	for _, h := range s.handlers[n.Table] {
		if err := h(ctx, n); err != nil {
			s.logger.Error(err, "Change handler failed",
				"event_id", n.EventID.String(),
				"event_type", n.EventType,
				"table", n.Table)
		}
	}
}
