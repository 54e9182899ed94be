// Package quota reserves monthly interview allowance per account.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/model"
	"github.com/Jobt25/First-jobt-repo/internal/repository"
)

var ErrQuotaExceeded = errors.New("monthly interview quota exceeded")

// Reservation is the outcome of a granted CheckAndReserve.
type Reservation struct {
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

// Gate atomically checks and consumes one unit of an account's quota for the
// current period. A granted reservation is never released.
type Gate interface {
	CheckAndReserve(ctx context.Context, userID string) (Reservation, error)
}

// LimitResolver returns the monthly limit of an account; config.Unlimited
// means no cap.
type LimitResolver interface {
	MonthlyLimit(ctx context.Context, userID string) (int, error)
}

type planLimits struct {
	accounts repository.AccountRepository
	limits   map[string]int
}

// NewPlanLimitResolver maps the account's plan through the configured plan
// table. Unknown plans get the free limit.
func NewPlanLimitResolver(accounts repository.AccountRepository, cfg *config.Config) LimitResolver {
	return &planLimits{accounts: accounts, limits: cfg.Quota.PlanLimits}
}

func (p *planLimits) MonthlyLimit(ctx context.Context, userID string) (int, error) {
	account, err := p.accounts.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("lookup account %s: %w", userID, err)
	}
	if limit, ok := p.limits[string(account.Plan)]; ok {
		return limit, nil
	}
	return p.limits[string(model.PlanFree)], nil
}

func reservation(used, limit int) Reservation {
	if limit < 0 {
		return Reservation{Used: used, Remaining: config.Unlimited, Unlimited: true}
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Reservation{Used: used, Remaining: remaining}
}

// Clock lets tests move across period boundaries.
type Clock func() time.Time
