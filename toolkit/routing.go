package toolkit

import "context"

// RoutingContext carries the (channel, chat_id, message_id) a turn is being
// processed under so routing-aware tools (chiefly the message tool) can
// publish an out-of-band reply without needing the bus wired through every
// call signature.
type RoutingContext struct {
	Channel   string
	ChatID    string
	MessageID string

	// Publish delivers content to the originating channel immediately,
	// bypassing the turn's final reply.
	Publish func(content string)

	// sentInTurn is flipped by the message tool when it publishes, so the
	// agent loop can suppress the default end-of-turn reply.
	sentInTurn bool
}

// MarkSent records that the message tool published during this turn.
func (rc *RoutingContext) MarkSent() { rc.sentInTurn = true }

// SentInTurn reports whether the message tool published during this turn.
func (rc *RoutingContext) SentInTurn() bool { return rc.sentInTurn }

type routingContextKey struct{}

// WithRouting attaches a RoutingContext to ctx for the duration of a turn.
func WithRouting(ctx context.Context, rc *RoutingContext) context.Context {
	return context.WithValue(ctx, routingContextKey{}, rc)
}

// RoutingFromContext retrieves the RoutingContext attached by WithRouting.
func RoutingFromContext(ctx context.Context) (*RoutingContext, bool) {
	rc, ok := ctx.Value(routingContextKey{}).(*RoutingContext)
	return rc, ok
}
