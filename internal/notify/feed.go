// Package notify delivers newly created alerts to the live feed, web push
// subscribers and the alert event stream.
package notify

import (
	"context"

	"carehome-go/internal/models"
	"carehome-go/internal/store"
)

// Feed publishes alerts to the Redis live feed read by the SSE endpoint.
type Feed struct {
	store store.FeedStore
}

func NewFeed(st store.FeedStore) *Feed {
	return &Feed{store: st}
}

func (f *Feed) Name() string { return "feed" }

func (f *Feed) Notify(ctx context.Context, a models.Alert) error {
	return f.store.PublishAlert(ctx, a)
}
