package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/domain/referral"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/cache"
	"github.com/afyalink/referral/internal/platform/metrics"
)

func newStatsFixture(t *testing.T) (*fixture, *StatsService, *stubReferrals, *miniredis.Miniredis, *metrics.Collector) {
	t.Helper()
	f := newFixture()
	f.user(identity.StatusPending)
	f.user(identity.StatusActive, identity.RoleDoctor, identity.RolePatient)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := prometheus.NewRegistry()
	col := metrics.NewWithRegistry("test", reg, reg)

	refs := &stubReferrals{counts: map[referral.Status]int{
		referral.StatusPending:   2,
		referral.StatusCompleted: 5,
	}}
	svc := NewStatsService(f.dir, f.dir, refs, stubCodes(4),
		cache.NewRedisFromClient(client, "afyalink"), time.Minute, col, zerolog.Nop())
	return f, svc, refs, mr, col
}

func TestStats_ComputesCounters(t *testing.T) {
	f, svc, _, _, _ := newStatsFixture(t)

	st, err := svc.Get(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalUsers)
	assert.Equal(t, 1, st.PendingUsers)
	assert.Equal(t, 7, st.TotalReferrals)
	assert.Equal(t, 2, st.PendingReferrals)
	assert.Equal(t, 4, st.TotalCodes)
	assert.Equal(t, 1, st.UsersByRole["doctor"])
	assert.Equal(t, 5, st.ReferralsByStatus["completed"])
}

func TestStats_ServedFromCacheUntilExpiry(t *testing.T) {
	f, svc, refs, mr, col := newStatsFixture(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, f.admin)
	require.NoError(t, err)
	assert.True(t, mr.Exists("afyalink:"+statsKey))

	refs.counts[referral.StatusPending] = 9
	st, err := svc.Get(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, st.PendingReferrals, "cached value served")
	assert.Equal(t, 1, refs.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(col.StatsCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(col.StatsCache.WithLabelValues("miss")))

	mr.FastForward(2 * time.Minute)
	st, err = svc.Get(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 9, st.PendingReferrals)
	assert.Equal(t, 2, refs.calls)
}

func TestStats_Invalidate(t *testing.T) {
	f, svc, refs, _, _ := newStatsFixture(t)
	ctx := context.Background()

	_, _ = svc.Get(ctx, f.admin)
	svc.Invalidate(ctx)
	_, _ = svc.Get(ctx, f.admin)
	assert.Equal(t, 2, refs.calls)
}

func TestStats_CacheDownStillServes(t *testing.T) {
	f, svc, _, mr, col := newStatsFixture(t)
	mr.Close()

	st, err := svc.Get(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalCodes)
	assert.Equal(t, 1.0, testutil.ToFloat64(col.StatsCache.WithLabelValues("error")))
}

func TestStats_AdminOnly(t *testing.T) {
	f, svc, _, _, _ := newStatsFixture(t)
	nurse := f.user(identity.StatusActive, identity.RoleNurse)

	_, err := svc.Get(context.Background(), nurse)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestStats_NilCacheComputesEachTime(t *testing.T) {
	f := newFixture()
	refs := &stubReferrals{counts: map[referral.Status]int{}}
	svc := NewStatsService(f.dir, f.dir, refs, stubCodes(0), nil, time.Minute, nil, zerolog.Nop())

	_, _ = svc.Get(context.Background(), f.admin)
	_, _ = svc.Get(context.Background(), f.admin)
	assert.Equal(t, 2, refs.calls)
}
