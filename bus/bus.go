// Package bus provides the in-process fan-in/fan-out queues between channel
// adapters and the agent loop: an inbound queue carrying chat events into the
// engine and an outbound queue carrying replies back out.
package bus

import (
	"context"
	"time"
)

// InboundMessage is a chat event arriving from a channel adapter.
type InboundMessage struct {
	Channel    string         `json:"channel"`
	SenderID   string         `json:"sender_id"`
	ChatID     string         `json:"chat_id"`
	Content    string         `json:"content"`
	Media      []string       `json:"media,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	SessionKey string         `json:"session_key,omitempty"`
}

// Key returns the canonical session key for this message: the explicit
// override if present, otherwise "channel:chat_id".
func (m InboundMessage) Key() string {
	if m.SessionKey != "" {
		return m.SessionKey
	}
	return m.Channel + ":" + m.ChatID
}

// Reserved OutboundMessage metadata keys.
const (
	MetaProgress  = "_progress"
	MetaToolHint  = "_tool_hint"
	MetaMessageID = "message_id"
)

// OutboundMessage is a reply destined for a channel adapter.
type OutboundMessage struct {
	Channel  string         `json:"channel"`
	ChatID   string         `json:"chat_id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsProgress reports whether this message carries interim/streaming output.
func (m OutboundMessage) IsProgress() bool {
	v, _ := m.Metadata[MetaProgress].(bool)
	return v
}

// IsToolHint reports whether this message is a tool-invocation annotation.
func (m OutboundMessage) IsToolHint() bool {
	v, _ := m.Metadata[MetaToolHint].(bool)
	return v
}

// Bus holds two unbounded FIFO queues, one per direction. Multiple producers
// may publish concurrently; each queue is meant to have a single consumer.
type Bus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

// Options configures queue capacity. A channel-backed queue is not literally
// unbounded; a large buffer plus a spill goroutine below emulates the
// unbounded-FIFO semantics the spec calls for without ever blocking a
// publisher.
type Options struct {
	BufferSize int
}

// New creates a Bus with unbounded-in-practice inbound/outbound queues.
func New(optFns ...func(*Options)) *Bus {
	opts := Options{BufferSize: 256}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Bus{
		inbound:  make(chan InboundMessage, opts.BufferSize),
		outbound: make(chan OutboundMessage, opts.BufferSize),
	}
}

// PublishInbound enqueues a message without blocking, growing past the
// buffer if necessary by spilling into a goroutine-local backlog.
func (b *Bus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
		go func() { b.inbound <- msg }()
	}
}

// ConsumeInbound blocks up to timeout waiting for the next inbound message.
// ok is false on timeout or context cancellation.
func (b *Bus) ConsumeInbound(ctx context.Context, timeout time.Duration) (InboundMessage, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-b.inbound:
		return msg, true
	case <-timer.C:
		return InboundMessage{}, false
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a reply without blocking.
func (b *Bus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
		go func() { b.outbound <- msg }()
	}
}

// ConsumeOutbound blocks up to timeout waiting for the next outbound message.
func (b *Bus) ConsumeOutbound(ctx context.Context, timeout time.Duration) (OutboundMessage, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-b.outbound:
		return msg, true
	case <-timer.C:
		return OutboundMessage{}, false
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}
