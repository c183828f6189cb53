package consumer

import (
	"context"
	"log/slog"
)

// Router dispatches a mixed batch to topic-specific handlers, keeping each
// topic's messages in their fetched order.
type Router struct {
	handlers map[string]BatchHandler
	fallback BatchHandler
	logger   *slog.Logger
}

// NewRouter creates a topic router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback BatchHandler) *Router {
	return &Router{
		handlers: make(map[string]BatchHandler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for a specific topic.
func (r *Router) Register(topic string, handler BatchHandler) {
	r.handlers[topic] = handler
}

// HandleBatch routes each topic's slice of the batch and merges the failures.
func (r *Router) HandleBatch(ctx context.Context, msgs []*Message) []string {
	var order []string
	groups := make(map[string][]*Message)
	for _, m := range msgs {
		if _, seen := groups[m.Topic]; !seen {
			order = append(order, m.Topic)
		}
		groups[m.Topic] = append(groups[m.Topic], m)
	}

	var failed []string
	for _, topic := range order {
		handler, ok := r.handlers[topic]
		if !ok {
			handler = r.fallback
		}
		if handler == nil {
			r.logger.WarnContext(ctx, "no handler for topic, skipping messages",
				"topic", topic,
				"count", len(groups[topic]),
			)
			continue
		}
		failed = append(failed, handler.HandleBatch(ctx, groups[topic])...)
	}
	return failed
}
