package agentloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kodeflux/agentcore/bus"
	"github.com/kodeflux/agentcore/memory"
	"github.com/kodeflux/agentcore/session"
	"github.com/kodeflux/agentcore/toolkit"
)

const helpText = "Available commands:\n/new - archive the current conversation to long-term memory and start fresh\n/help - show this message"

// processMessage handles one inbound message end to end: session lookup,
// slash commands, context assembly, the reason-act loop, and persisting the
// resulting turn.
func (l *Loop) processMessage(ctx context.Context, msg bus.InboundMessage) (*bus.OutboundMessage, error) {
	key := msg.Key()
	sess, err := l.sessions.GetOrCreate(key)
	if err != nil {
		return nil, fmt.Errorf("agentloop: get_or_create session: %w", err)
	}

	if out := l.handleSlashCommand(ctx, sess, msg); out != nil {
		return out, nil
	}

	l.maybeTriggerConsolidation(sess)

	rc := &toolkit.RoutingContext{
		Channel:   msg.Channel,
		ChatID:    msg.ChatID,
		MessageID: fmt.Sprint(msg.Metadata[bus.MetaMessageID]),
		Publish: func(content string) {
			l.bus.PublishOutbound(bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: content})
		},
	}
	ctx = toolkit.WithRouting(ctx, rc)

	history := sess.GetHistory(l.memoryWindow)
	initial, err := l.assembler.BuildMessages(history, msg.Content, msg.Media, msg.Channel, msg.ChatID)
	if err != nil {
		return nil, fmt.Errorf("agentloop: build messages: %w", err)
	}

	onProgress := func(content string, toolHint bool) {
		meta := map[string]any{bus.MetaProgress: true}
		if toolHint {
			meta = map[string]any{bus.MetaToolHint: true}
		}
		l.bus.PublishOutbound(bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: content, Metadata: meta})
	}

	result, err := l.runAgentLoop(ctx, initial, onProgress)
	if err != nil {
		return nil, fmt.Errorf("agentloop: run_agent_loop: %w", err)
	}

	saveTurn(sess, result.messages, 1+len(history))
	if err := l.sessions.Save(sess); err != nil {
		return nil, fmt.Errorf("agentloop: save session: %w", err)
	}

	if rc.SentInTurn() {
		return nil, nil
	}

	return &bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: result.finalContent, Metadata: msg.Metadata}, nil
}

// handleSlashCommand recognizes /new and /help on the trimmed, lowercased
// content. Returns nil if msg.Content is not a recognized command.
func (l *Loop) handleSlashCommand(ctx context.Context, sess *session.Session, msg bus.InboundMessage) *bus.OutboundMessage {
	switch strings.ToLower(strings.TrimSpace(msg.Content)) {
	case "/new":
		// Advancing LastConsolidated and clearing Messages must not race with
		// a background consolidation for the same key reloading and saving
		// the session, so both paths serialize on the same per-key lock.
		lock := l.consolidation.lockFor(sess.Key)
		lock.Lock()
		defer lock.Unlock()

		turnsIn := sess.Unconsolidated()
		consolidateStart := time.Now()
		ok, err := memory.Consolidate(ctx, sess, l.memory, l.provider, l.modelName, true, l.memoryWindow)
		if l.structured != nil {
			l.structured.LogConsolidation(sess.Key, turnsIn, ok, time.Since(consolidateStart), err == nil, err)
		}
		if err != nil || !ok {
			l.logger.Warn("agentloop: /new consolidation failed", "key", sess.Key, "error", err)
			return &bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: "Memory archival failed, session not cleared. Please try again."}
		}
		sess.Clear()
		if err := l.sessions.Save(sess); err != nil {
			l.logger.Error("agentloop: save after /new failed", "key", sess.Key, "error", err)
			return &bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: "Memory archival failed, session not cleared. Please try again."}
		}
		l.sessions.Invalidate(sess.Key)
		return &bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: "New session started."}
	case "/help":
		return &bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: helpText}
	default:
		return nil
	}
}

// maybeTriggerConsolidation starts a background consolidation task for
// sess.Key if enough unconsolidated turns have accumulated and none is
// already running for that key.
func (l *Loop) maybeTriggerConsolidation(sess *session.Session) {
	if sess.Unconsolidated() < l.memoryWindow {
		return
	}
	if !l.consolidation.tryStart(sess.Key) {
		return
	}

	snapshot := sess.Clone()
	go l.runBackgroundConsolidation(snapshot)
}

// runBackgroundConsolidation consolidates the snapshot taken at trigger time,
// then reapplies only the resulting LastConsolidated cursor onto whatever the
// session looks like now, so turns appended by the foreground loop while
// consolidation was running are never clobbered by a stale Save.
func (l *Loop) runBackgroundConsolidation(snapshot *session.Session) {
	defer l.consolidation.finish(snapshot.Key)

	lock := l.consolidation.lockFor(snapshot.Key)
	lock.Lock()
	defer lock.Unlock()

	ctx := context.Background()
	turnsIn := snapshot.Unconsolidated()
	consolidateStart := time.Now()
	ok, err := memory.Consolidate(ctx, snapshot, l.memory, l.provider, l.modelName, false, l.memoryWindow)
	if l.structured != nil {
		l.structured.LogConsolidation(snapshot.Key, turnsIn, ok, time.Since(consolidateStart), err == nil, err)
	}
	if err != nil || !ok {
		l.logger.Warn("agentloop: background consolidation ended without archiving", "key", snapshot.Key, "error", err)
		return
	}

	current, err := l.sessions.GetOrCreate(snapshot.Key)
	if err != nil {
		l.logger.Error("agentloop: reload session after consolidation failed", "key", snapshot.Key, "error", err)
		return
	}
	if len(current.Messages) < snapshot.LastConsolidated {
		// The session was cleared (e.g. by /new) while this consolidation
		// was running; the stale cursor no longer fits and the clear already
		// reset it, so there is nothing left to apply.
		l.logger.Info("agentloop: session cleared during background consolidation, discarding cursor", "key", snapshot.Key)
		return
	}
	current.LastConsolidated = snapshot.LastConsolidated

	if err := l.sessions.Save(current); err != nil {
		l.logger.Error("agentloop: save after background consolidation failed", "key", snapshot.Key, "error", err)
		return
	}
	l.sessions.Invalidate(snapshot.Key)
}
