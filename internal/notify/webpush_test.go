package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"carehome-go/internal/models"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testP256dh = "BNNL5ZaTfK81qhXOx23-wewhigUeFb632jN6LvRWCFH1ubQr77FE_9qV1FuojuRmHP42zmf34rXgW80OvUVDgTk"
	testAuth   = "zqbxT6JKstKSY9JKibZLSQ"
)

type fakeSubs struct {
	subs    []models.PushSubscription
	err     error
	deleted []string
}

func (f *fakeSubs) GetPushSubscriptions(context.Context) ([]models.PushSubscription, error) {
	return f.subs, f.err
}

func (f *fakeSubs) DeletePushSubscription(_ context.Context, endpoint string) error {
	f.deleted = append(f.deleted, endpoint)
	return nil
}

// statusClient answers each push endpoint with a fixed status code.
type statusClient struct {
	mu       sync.Mutex
	status   map[string]int
	requests []*http.Request
}

func (c *statusClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	code, ok := c.status[req.URL.String()]
	if !ok {
		code = http.StatusCreated
	}
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}, nil
}

func sub(endpoint string) models.PushSubscription {
	return models.PushSubscription{Endpoint: endpoint, P256dh: testP256dh, Auth: testAuth}
}

func newTestWebPush(t *testing.T, subs *fakeSubs, client *statusClient) *WebPush {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return NewWebPush(subs, WebPushOptions{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		Subject:         "mailto:alerts@carehome.example",
		HTTPClient:      client,
	}, zap.NewNop())
}

func TestWebPushSendsToEverySubscriber(t *testing.T) {
	subs := &fakeSubs{subs: []models.PushSubscription{sub("https://push.example/a"), sub("https://push.example/b")}}
	client := &statusClient{}
	p := newTestWebPush(t, subs, client)

	err := p.Notify(context.Background(), models.Alert{ID: 3, Title: "Medication overdue", Severity: models.SeverityCritical})
	require.NoError(t, err)
	require.Len(t, client.requests, 2)
	assert.Equal(t, "high", client.requests[0].Header.Get("Urgency"))
	assert.Empty(t, subs.deleted)
}

func TestWebPushRemovesGoneSubscriptions(t *testing.T) {
	subs := &fakeSubs{subs: []models.PushSubscription{sub("https://push.example/live"), sub("https://push.example/gone")}}
	client := &statusClient{status: map[string]int{"https://push.example/gone": http.StatusGone}}
	p := newTestWebPush(t, subs, client)

	err := p.Notify(context.Background(), models.Alert{ID: 4, Severity: models.SeverityWarning})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://push.example/gone"}, subs.deleted)
}

func TestWebPushFailsWhenNobodyReached(t *testing.T) {
	subs := &fakeSubs{subs: []models.PushSubscription{sub("https://push.example/a")}}
	client := &statusClient{status: map[string]int{"https://push.example/a": http.StatusInternalServerError}}
	p := newTestWebPush(t, subs, client)

	err := p.Notify(context.Background(), models.Alert{ID: 5, Severity: models.SeverityInfo})
	assert.Error(t, err)
}

func TestWebPushNoSubscribers(t *testing.T) {
	p := newTestWebPush(t, &fakeSubs{}, &statusClient{})
	assert.NoError(t, p.Notify(context.Background(), models.Alert{ID: 6}))

	failing := newTestWebPush(t, &fakeSubs{err: errors.New("db down")}, &statusClient{})
	assert.Error(t, failing.Notify(context.Background(), models.Alert{ID: 6}))
}

func TestUrgency(t *testing.T) {
	assert.Equal(t, webpush.UrgencyHigh, urgency(models.SeverityCritical))
	assert.Equal(t, webpush.UrgencyNormal, urgency(models.SeverityWarning))
	assert.Equal(t, webpush.UrgencyLow, urgency(models.SeverityInfo))
}
