// Package orchestrator is the stateful core of the bridge: it maps inbound
// events to ongoing conversations, suppresses duplicates, correlates email
// threads, and dispatches backend replies to the originating channel.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/chatbot"
	"github.com/multikanal/multikanal/internal/dedup"
	"github.com/multikanal/multikanal/internal/session"
	"github.com/multikanal/multikanal/internal/thread"
)

const (
	closingReply = "Sama-sama! Senang bisa membantu. Sesi percakapan ini telah di-akhiri."
	timeoutReply = "Sesi Anda telah berakhir. Silakan kirim pesan baru untuk memulai percakapan kembali."
	feedbackAck  = "Terima kasih atas masukan Anda!"
)

// Backend is the chatbot collaborator. Ask never returns a Go error; failures
// are data on the Reply.
type Backend interface {
	Ask(ctx context.Context, req chatbot.AskRequest) chatbot.Reply
	SendFeedback(ctx context.Context, conversationID, messageID, rating string) error
}

// Outcome classifies one processing attempt. Unroutable and duplicate events
// produce no user-visible reply; the outcome exists for logging and tests.
type Outcome string

const (
	OutcomeProcessed  Outcome = "processed"
	OutcomeReset      Outcome = "reset"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeUnroutable Outcome = "unroutable"
	OutcomeFailed     Outcome = "failed"
)

// Options tunes the orchestrator.
type Options struct {
	// ResetKeywords close the session without a backend call when any of them
	// appears in the normalized query text.
	ResetKeywords []string
	// MaxInputChars caps the query length forwarded to the backend; zero
	// disables the cap.
	MaxInputChars int
}

// Orchestrator owns the persistence boundary (sessions, threads, dedup) and
// drives the per-message pipeline. All store mutation goes through it.
type Orchestrator struct {
	logger   *slog.Logger
	registry *channel.Registry
	backend  Backend
	sessions session.Store
	threads  thread.Store
	dedup    dedup.Store
	opts     Options
	perUser  *keyedMutex
}

// New creates an Orchestrator.
func New(log *slog.Logger, registry *channel.Registry, backend Backend, sessions session.Store, threads thread.Store, dedupStore dedup.Store, opts Options) *Orchestrator {
	return &Orchestrator{
		logger:   log.With(slog.String("component", "orchestrator")),
		registry: registry,
		backend:  backend,
		sessions: sessions,
		threads:  threads,
		dedup:    dedupStore,
		opts:     opts,
		perUser:  newKeyedMutex(),
	}
}

// ProcessMessage runs one canonical inbound message through the pipeline.
// Every step is a commit point; failures after a commit never roll it back.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg channel.InboundMessage) Outcome {
	adapter, ok := o.registry.Get(msg.Platform)
	if !ok {
		o.logger.Warn("no adapter registered, dropping message",
			slog.String("platform", msg.Platform.String()))
		return OutcomeUnroutable
	}

	if eventID := msg.EventID(); eventID != "" {
		first, err := o.dedup.MarkProcessed(ctx, eventID, msg.Platform)
		if err != nil {
			// Dedup store down: accept the at-least-once risk rather than
			// dropping the user's message.
			o.logger.Error("dedup mark failed, continuing",
				slog.String("event_id", eventID), slog.Any("error", err))
		} else if !first {
			o.logger.Info("duplicate event dropped",
				slog.String("event_id", eventID),
				slog.String("platform", msg.Platform.String()))
			return OutcomeDuplicate
		}
	}

	unlock := o.perUser.Lock(msg.Platform.String() + ":" + msg.ExternalUserID)
	defer unlock()

	userID := msg.ExternalUserID
	if o.isReset(msg.Query) {
		o.logger.Info("reset keyword received, closing session",
			slog.String("platform", msg.Platform.String()),
			slog.String("user_id", userID))
		if _, err := adapter.SendMessage(ctx, userID, closingReply, channel.ReplyContext{}); err != nil {
			o.logger.Error("send closing reply failed", slog.Any("error", err))
		}
		if err := o.sessions.Clear(ctx, msg.Platform, userID); err != nil {
			o.logger.Error("clear session failed", slog.Any("error", err))
		}
		return OutcomeReset
	}

	// Typing indicators and read receipts must never block delivery.
	if notifier, ok := o.registry.GetTypingNotifier(msg.Platform); ok {
		if err := notifier.SendTypingOn(ctx, userID, msg.Meta.MessageID); err != nil {
			o.logger.Debug("typing on failed", slog.Any("error", err))
		}
	}
	if msg.Meta.MessageID != "" {
		if marker, ok := o.registry.GetReadMarker(msg.Platform); ok {
			if err := marker.MarkAsRead(ctx, msg.Meta.MessageID); err != nil {
				o.logger.Debug("mark as read failed", slog.Any("error", err))
			}
		}
	}

	conversationID := msg.ConversationID
	threadResolved := false
	if conversationID == "" {
		conversationID, threadResolved = o.resolveIdentity(ctx, msg)
	}

	reply := o.backend.Ask(ctx, chatbot.AskRequest{
		Query:          o.capQuery(msg.Query),
		ConversationID: conversationID,
		Platform:       msg.Platform,
		UserID:         userID,
		UserName:       msg.Meta.SenderName,
	})

	outcome := OutcomeProcessed
	if reply.Failed() {
		// No state is updated on a backend error; the user still gets a reply.
		o.logger.Error("backend turn failed",
			slog.String("platform", msg.Platform.String()),
			slog.String("user_id", userID),
			slog.String("error", reply.Err))
		outcome = OutcomeFailed
	} else if reply.ConversationID != "" {
		o.commitState(ctx, msg, reply.ConversationID, threadResolved)
	}

	replyCtx := o.buildReplyContext(msg)
	if _, err := adapter.SendMessage(ctx, userID, reply.Answer, replyCtx); err != nil {
		// Session state already committed; the turn counts as answered.
		o.logger.Error("reply dispatch failed",
			slog.String("platform", msg.Platform.String()),
			slog.String("user_id", userID),
			slog.Any("error", err))
	}

	if outcome == OutcomeProcessed && reply.AskFeedback && reply.MessageID != "" {
		if requester, ok := o.registry.GetFeedbackRequester(msg.Platform); ok {
			if _, err := requester.SendFeedbackRequest(ctx, userID, reply.MessageID); err != nil {
				o.logger.Debug("feedback request failed", slog.Any("error", err))
			}
		}
	}

	if notifier, ok := o.registry.GetTypingNotifier(msg.Platform); ok {
		if err := notifier.SendTypingOff(ctx, userID); err != nil {
			o.logger.Debug("typing off failed", slog.Any("error", err))
		}
	}
	return outcome
}

// resolveIdentity finds the backend conversation for the message. Email
// resolves through the thread store only: a resolved thread takes precedence
// and there is no fallback to a prior cross-thread session for the sender.
// The second return reports whether a thread mapping already existed.
func (o *Orchestrator) resolveIdentity(ctx context.Context, msg channel.InboundMessage) (string, bool) {
	if msg.Platform == channel.PlatformEmail {
		key := msg.Meta.ThreadKey
		if key == "" {
			return "", false
		}
		mapping, ok, err := o.threads.Resolve(ctx, key)
		if err != nil {
			o.logger.Error("thread resolve failed, treating as new thread",
				slog.String("thread_key", key), slog.Any("error", err))
			return "", false
		}
		if !ok {
			return "", false
		}
		return mapping.ConversationID, true
	}

	conversationID, ok, err := o.sessions.GetActive(ctx, msg.Platform, msg.ExternalUserID)
	if err != nil {
		// Store unreachable degrades to stateless operation.
		o.logger.Error("session lookup failed, treating as miss",
			slog.String("user_id", msg.ExternalUserID), slog.Any("error", err))
		return "", false
	}
	if !ok {
		return "", false
	}
	return conversationID, false
}

// commitState persists the conversation id returned by a successful turn.
func (o *Orchestrator) commitState(ctx context.Context, msg channel.InboundMessage, conversationID string, threadResolved bool) {
	if msg.Platform != channel.PlatformEmail {
		if err := o.sessions.Save(ctx, msg.Platform, msg.ExternalUserID, conversationID); err != nil {
			o.logger.Error("save session failed", slog.Any("error", err))
		}
		return
	}
	if threadResolved || msg.Meta.ThreadKey == "" {
		return
	}
	// First turn of a new email thread: record the correlation exactly once.
	err := o.threads.Save(ctx, thread.Mapping{
		ThreadKey:      msg.Meta.ThreadKey,
		ConversationID: conversationID,
		Subject:        msg.Meta.Subject,
		InReplyTo:      msg.Meta.InReplyTo,
		References:     msg.Meta.References,
	})
	if err != nil {
		o.logger.Error("save thread mapping failed",
			slog.String("thread_key", msg.Meta.ThreadKey), slog.Any("error", err))
	}
}

// buildReplyContext derives channel-specific reply metadata. Chat platforms
// need none; email replies carry the re-subject and threading reference, with
// the Graph message id taking precedence for Graph mailboxes.
func (o *Orchestrator) buildReplyContext(msg channel.InboundMessage) channel.ReplyContext {
	if msg.Platform != channel.PlatformEmail {
		return channel.ReplyContext{}
	}
	subject := msg.Meta.Subject
	if subject == "" {
		subject = "Inquiry"
	}
	replyCtx := channel.ReplyContext{Subject: "Re: " + subject}
	if msg.Meta.GraphMessageID != "" {
		replyCtx.GraphMessageID = msg.Meta.GraphMessageID
	} else {
		replyCtx.InReplyTo = msg.Meta.MessageID
		replyCtx.References = msg.Meta.References
	}
	return replyCtx
}

// TimeoutSession notifies the user their idle session expired and clears it.
// Called by the sweeper; the notice is best-effort.
func (o *Orchestrator) TimeoutSession(ctx context.Context, platform channel.Platform, userID string) {
	if adapter, ok := o.registry.Get(platform); ok {
		if _, err := adapter.SendMessage(ctx, userID, timeoutReply, channel.ReplyContext{}); err != nil {
			o.logger.Error("send timeout notice failed",
				slog.String("user_id", userID), slog.Any("error", err))
		}
	}
	if err := o.sessions.Clear(ctx, platform, userID); err != nil {
		o.logger.Error("clear timed out session failed",
			slog.String("user_id", userID), slog.Any("error", err))
	}
}

// TimeoutEntry adapts a swept session entry to TimeoutSession.
func (o *Orchestrator) TimeoutEntry(ctx context.Context, entry session.Entry) {
	o.TimeoutSession(ctx, entry.Platform, entry.ExternalUserID)
}

func (o *Orchestrator) isReset(query string) bool {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return false
	}
	for _, keyword := range o.opts.ResetKeywords {
		if keyword != "" && strings.Contains(normalized, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) capQuery(query string) string {
	if o.opts.MaxInputChars <= 0 {
		return query
	}
	runes := []rune(query)
	if len(runes) <= o.opts.MaxInputChars {
		return query
	}
	return string(runes[:o.opts.MaxInputChars])
}
