package quota

import (
	"context"
	"errors"

	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/repository"
	"github.com/rs/zerolog/log"
)

type sqlGate struct {
	usage  repository.UsageRepository
	limits LimitResolver
	now    Clock
}

// NewSQLGate reserves through a conditional UPDATE on usage_records.
func NewSQLGate(usage repository.UsageRepository, limits LimitResolver, now Clock) Gate {
	return &sqlGate{usage: usage, limits: limits, now: now}
}

func (g *sqlGate) CheckAndReserve(ctx context.Context, userID string) (Reservation, error) {
	limit, err := g.limits.MonthlyLimit(ctx, userID)
	if err != nil {
		return Reservation{}, err
	}

	period := model.PeriodStart(g.now())
	used, err := g.usage.Reserve(ctx, userID, period, limit)
	if errors.Is(err, repository.ErrLimitReached) {
		log.Info().Str("userID", userID).Int("limit", limit).Time("period", period).Msg("Quota denied")
		return Reservation{Remaining: 0}, ErrQuotaExceeded
	}
	if err != nil {
		return Reservation{}, err
	}
	return reservation(used, limit), nil
}
