package ledger

import (
	"context"
	"time"

	"github.com/ovii/ledger-service/internal/model"
	"github.com/ovii/ledger-service/internal/repo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// sendWindow is the trailing window the daily limit is evaluated over.
const sendWindow = 24 * time.Hour

// LimitEnforcer computes the remaining daily send allowance for a wallet
// from its owner's verification tier. Tier limits are injected data, never
// cached: concurrent transfers change the 24h sum.
type LimitEnforcer struct {
	repo       repo.RepositoryInterface
	tierLimits map[int]decimal.Decimal
}

func NewLimitEnforcer(r repo.RepositoryInterface, tierLimits map[int]decimal.Decimal) *LimitEnforcer {
	return &LimitEnforcer{repo: r, tierLimits: tierLimits}
}

// TierLimit returns the configured cap for a tier. Unknown tiers get 0.00,
// which blocks all sends from unverified accounts.
func (le *LimitEnforcer) TierLimit(tier model.VerificationTier) decimal.Decimal {
	if limit, ok := le.tierLimits[int(tier)]; ok {
		return limit
	}
	return decimal.Zero
}

// RemainingAllowance is TierLimit minus the wallet's COMPLETED send volume
// in the trailing 24h. It can go to (but not below) zero.
func (le *LimitEnforcer) RemainingAllowance(ctx context.Context, db *gorm.DB, walletID uint64, tier model.VerificationTier) (decimal.Decimal, error) {
	sent, err := le.repo.SumCompletedSentSince(ctx, db, walletID, time.Now().Add(-sendWindow))
	if err != nil {
		return decimal.Zero, err
	}
	remaining := le.TierLimit(tier).Sub(sent)
	if remaining.IsNegative() {
		return decimal.Zero, nil
	}
	return remaining, nil
}

// SentInWindow exposes the raw trailing-24h sum for the engine's check.
func (le *LimitEnforcer) SentInWindow(ctx context.Context, db *gorm.DB, walletID uint64) (decimal.Decimal, error) {
	return le.repo.SumCompletedSentSince(ctx, db, walletID, time.Now().Add(-sendWindow))
}
