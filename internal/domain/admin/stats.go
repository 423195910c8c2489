package admin

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/domain/referral"
	"github.com/afyalink/referral/internal/platform/cache"
	"github.com/afyalink/referral/internal/platform/metrics"
)

const statsKey = "admin:stats"

type UserCounter interface {
	CountByStatus(ctx context.Context) (map[identity.Status]int, error)
}

type RoleCounter interface {
	CountByRole(ctx context.Context) (map[identity.Role]int, error)
}

type ReferralCounter interface {
	CountByStatus(ctx context.Context) (map[referral.Status]int, error)
}

type CodeCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatsService serves the admin counters through a short-lived cache. Cache
// failures are logged and never fail the request.
type StatsService struct {
	users     UserCounter
	roles     RoleCounter
	referrals ReferralCounter
	codes     CodeCounter
	cache     cache.Cache
	ttl       time.Duration
	metrics   *metrics.Collector
	log       zerolog.Logger
	now       func() time.Time
}

func NewStatsService(users UserCounter, roles RoleCounter, referrals ReferralCounter, codes CodeCounter,
	c cache.Cache, ttl time.Duration, m *metrics.Collector, log zerolog.Logger) *StatsService {
	if c == nil {
		c = cache.Nop{}
	}
	return &StatsService{
		users:     users,
		roles:     roles,
		referrals: referrals,
		codes:     codes,
		cache:     c,
		ttl:       ttl,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

func (s *StatsService) Get(ctx context.Context, caller access.Caller) (*Stats, error) {
	if err := caller.Require(access.StatsRead); err != nil {
		return nil, err
	}

	var cached Stats
	err := s.cache.Get(ctx, statsKey, &cached)
	switch {
	case err == nil:
		s.metrics.StatsCacheResult("hit")
		return &cached, nil
	case errors.Is(err, cache.ErrMiss):
		s.metrics.StatsCacheResult("miss")
	default:
		s.metrics.StatsCacheResult("error")
		s.log.Warn().Err(err).Msg("stats cache read failed")
	}

	st, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 {
		if err := s.cache.Set(ctx, statsKey, st, s.ttl); err != nil {
			s.log.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return st, nil
}

// Invalidate drops the cached counters so the next read recomputes them.
func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, statsKey); err != nil {
		s.log.Warn().Err(err).Msg("stats cache invalidate failed")
	}
}

func (s *StatsService) compute(ctx context.Context) (*Stats, error) {
	byStatus, err := s.users.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byRole, err := s.roles.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := s.referrals.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	codes, err := s.codes.Count(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalCodes:        codes,
		UsersByStatus:     make(map[string]int, len(byStatus)),
		UsersByRole:       make(map[string]int, len(byRole)),
		ReferralsByStatus: make(map[string]int, len(refs)),
		GeneratedAt:       s.now().UTC(),
	}
	for k, n := range byStatus {
		st.UsersByStatus[string(k)] = n
		st.TotalUsers += n
	}
	st.PendingUsers = byStatus[identity.StatusPending]
	for k, n := range byRole {
		st.UsersByRole[string(k)] = n
	}
	for k, n := range refs {
		st.ReferralsByStatus[string(k)] = n
		st.TotalReferrals += n
	}
	st.PendingReferrals = refs[referral.StatusPending]
	return st, nil
}
