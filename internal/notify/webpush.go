package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"carehome-go/internal/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// SubscriptionStore lists and prunes browser push subscriptions.
type SubscriptionStore interface {
	GetPushSubscriptions(ctx context.Context) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

type WebPushOptions struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	TTL             int
	HTTPClient      webpush.HTTPClient
}

// WebPush sends every new alert to all registered browsers. Subscriptions
// the push service reports as gone are deleted.
type WebPush struct {
	subs SubscriptionStore
	opts WebPushOptions
	log  *zap.Logger
}

func NewWebPush(subs SubscriptionStore, opts WebPushOptions, log *zap.Logger) *WebPush {
	if opts.TTL <= 0 {
		opts.TTL = 30
	}
	return &WebPush{subs: subs, opts: opts, log: log}
}

func (p *WebPush) Name() string { return "webpush" }

type pushPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
	AlertID  int64  `json:"alert_id"`
	URL      string `json:"url"`
}

func urgency(severity string) webpush.Urgency {
	switch severity {
	case models.SeverityCritical:
		return webpush.UrgencyHigh
	case models.SeverityWarning:
		return webpush.UrgencyNormal
	}
	return webpush.UrgencyLow
}

// Notify returns an error only when no subscriber could be reached.
func (p *WebPush) Notify(ctx context.Context, a models.Alert) error {
	subs, err := p.subs.GetPushSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	message, err := json.Marshal(pushPayload{
		Title:    a.Title,
		Body:     a.Message,
		Severity: a.Severity,
		AlertID:  a.ID,
		URL:      fmt.Sprintf("/alerts/%d", a.ID),
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, sub := range subs {
		if err := p.send(ctx, sub, message, urgency(a.Severity)); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(subs) {
		return errors.Join(errs...)
	}
	return nil
}

func (p *WebPush) send(ctx context.Context, sub models.PushSubscription, message []byte, u webpush.Urgency) error {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, s, &webpush.Options{
		HTTPClient:      p.opts.HTTPClient,
		Subscriber:      p.opts.Subject,
		VAPIDPublicKey:  p.opts.VAPIDPublicKey,
		VAPIDPrivateKey: p.opts.VAPIDPrivateKey,
		TTL:             p.opts.TTL,
		Urgency:         u,
	})
	if err != nil {
		p.log.Warn("push send failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
	}

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		p.log.Info("removing expired push subscription", zap.String("endpoint", sub.Endpoint))
		if err := p.subs.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			p.log.Warn("delete push subscription failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return fmt.Errorf("push subscription gone: %s", sub.Endpoint)
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d for %s", resp.StatusCode, sub.Endpoint)
	}
	return nil
}
