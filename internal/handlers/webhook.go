package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/multikanal/multikanal/internal/channel"
	"github.com/multikanal/multikanal/internal/orchestrator"
)

// processTimeout bounds background processing of a webhook event. It exceeds
// the backend turn timeout so slow turns are not cut off mid-pipeline.
const processTimeout = 3 * time.Minute

// Processor is the orchestrator surface the webhook handlers need.
type Processor interface {
	ProcessMessage(ctx context.Context, msg channel.InboundMessage) orchestrator.Outcome
	HandleFeedback(ctx context.Context, msg channel.InboundMessage)
}

// dispatchAsync routes the message to the processor off the request path.
// Platform webhooks demand a fast 200; processing can take the full backend
// turn.
func dispatchAsync(proc Processor, msg channel.InboundMessage) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		if msg.IsFeedback() {
			proc.HandleFeedback(ctx, msg)
			return
		}
		proc.ProcessMessage(ctx, msg)
	}()
}

// verifySubscription answers the Meta webhook verification handshake: echo the
// challenge when the mode and token match, otherwise 403.
func verifySubscription(c echo.Context, verifyToken string) error {
	if verifyToken != "" &&
		c.QueryParam("hub.mode") == "subscribe" &&
		c.QueryParam("hub.verify_token") == verifyToken {
		return c.String(http.StatusOK, c.QueryParam("hub.challenge"))
	}
	return echo.NewHTTPError(http.StatusForbidden, "verification failed")
}
