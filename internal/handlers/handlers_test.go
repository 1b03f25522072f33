package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/orchestrator"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeProcessor records dispatched messages and signals each arrival, since
// the handlers process off the request goroutine.
type fakeProcessor struct {
	mu        sync.Mutex
	processed []channel.InboundMessage
	feedback  []channel.InboundMessage
	arrived   chan struct{}
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{arrived: make(chan struct{}, 16)}
}

func (p *fakeProcessor) ProcessMessage(_ context.Context, msg channel.InboundMessage) orchestrator.Outcome {
	p.mu.Lock()
	p.processed = append(p.processed, msg)
	p.mu.Unlock()
	p.arrived <- struct{}{}
	return orchestrator.OutcomeProcessed
}

func (p *fakeProcessor) HandleFeedback(_ context.Context, msg channel.InboundMessage) {
	p.mu.Lock()
	p.feedback = append(p.feedback, msg)
	p.mu.Unlock()
	p.arrived <- struct{}{}
}

func (p *fakeProcessor) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("no message dispatched")
	}
}

func (p *fakeProcessor) snapshot() (processed, feedback []channel.InboundMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]channel.InboundMessage(nil), p.processed...),
		append([]channel.InboundMessage(nil), p.feedback...)
}
