// Package loyalty tracks the session's reward points balance and tier.
package loyalty

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/swiftcart/storefront/internal/storage"
)

// WelcomeBonus is the balance every new session starts with.
const WelcomeBonus = 50

// Tier is a loyalty level derived from the points balance.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

const (
	silverAt   = 500
	goldAt     = 1000
	platinumAt = 2000
)

// TierFor maps a points balance onto its tier.
func TierFor(points int) Tier {
	switch {
	case points >= platinumAt:
		return TierPlatinum
	case points >= goldAt:
		return TierGold
	case points >= silverAt:
		return TierSilver
	default:
		return TierBronze
	}
}

// NextThreshold returns the points needed for the next tier, or 0 when the
// balance is already Platinum.
func NextThreshold(points int) int {
	switch {
	case points >= platinumAt:
		return 0
	case points >= goldAt:
		return platinumAt
	case points >= silverAt:
		return goldAt
	default:
		return silverAt
	}
}

// Account is one session's points balance, persisted under the "loyalty" key.
type Account struct {
	store storage.Store
	log   *zap.Logger

	mu     sync.Mutex
	points int
}

// NewAccount returns an account holding the welcome bonus. Call Load to pick
// up a previously persisted balance.
func NewAccount(store storage.Store, log *zap.Logger) *Account {
	return &Account{store: store, log: log, points: WelcomeBonus}
}

// Load rehydrates the balance; a missing key keeps the welcome bonus.
func (a *Account) Load(ctx context.Context) error {
	data, err := a.store.Get(ctx, "loyalty")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "load loyalty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return json.Unmarshal(data, &a.points)
}

// Award credits floor(orderTotal) points for a placed order and returns the
// points earned. Orders with a non-positive total earn nothing.
func (a *Account) Award(ctx context.Context, orderTotal decimal.Decimal) int {
	earned := int(orderTotal.IntPart())
	if earned < 0 {
		earned = 0
	}

	a.mu.Lock()
	a.points += earned
	a.persist(ctx)
	a.mu.Unlock()
	return earned
}

// Balance returns the current points balance.
func (a *Account) Balance() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.points
}

// Tier returns the tier for the current balance.
func (a *Account) Tier() Tier {
	return TierFor(a.Balance())
}

// persist is best-effort; callers hold a.mu.
func (a *Account) persist(ctx context.Context) {
	data, err := json.Marshal(a.points)
	if err == nil {
		err = a.store.Set(ctx, "loyalty", data)
	}
	if err != nil {
		a.log.Warn("loyalty persistence failed", zap.Error(err))
	}
}
