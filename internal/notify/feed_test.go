package notify

import (
	"context"
	"testing"
	"time"

	"carehome-go/internal/models"
	"carehome-go/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPublishesToTimeline(t *testing.T) {
	mr := miniredis.RunT(t)
	rs := store.NewRedisStore(&redis.Options{Addr: mr.Addr()})
	defer rs.Close()

	f := NewFeed(rs)
	assert.Equal(t, "feed", f.Name())
	require.NoError(t, f.Notify(context.Background(), models.Alert{ID: 8, Title: "Night check overdue", CreatedAt: time.Now()}))

	recent, err := rs.RecentAlerts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Night check overdue", recent[0].Title)
}
