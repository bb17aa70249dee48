// Package transport holds the delivery clients the dispatcher sends through.
// The pipeline depends on them only via the narrow Client contract, so the
// concrete transport (chat-bot API, SMS gateway, push service) can be swapped
// freely.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

// Client sends one rendered message to a channel identifier and returns the
// external message id assigned by the provider.
type Client interface {
	Send(ctx context.Context, channelID, text string) (string, error)
}

// RateLimitError is returned when the provider reports throttling, carrying
// its suggested retry delay.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("transport rate limited, retry after %s", e.RetryAfter)
}

// Registry maps a campaign's delivery method to its transport. A method with
// no entry is unsupported in this deployment.
type Registry map[model.DeliveryMethod]Client

func (r Registry) Get(method model.DeliveryMethod) (Client, bool) {
	c, ok := r[method]
	return c, ok
}
