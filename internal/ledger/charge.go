package ledger

import (
	"context"

	"github.com/ovii/ledger-service/internal/model"
	"github.com/ovii/ledger-service/internal/repo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChargeResolver looks up the active fee rule for a transaction and computes
// the fee. Pure lookup-then-compute, no side effects.
type ChargeResolver struct {
	repo repo.RepositoryInterface
}

func NewChargeResolver(r repo.RepositoryInterface) *ChargeResolver {
	return &ChargeResolver{repo: r}
}

// Resolve returns the matching active rule and the computed charge amount.
// (nil, 0) when no rule matches: that is the no-fee case, not an error.
func (cr *ChargeResolver) Resolve(ctx context.Context, db *gorm.DB, txType model.TransactionType, payerRole model.Role, amount decimal.Decimal) (*model.TransactionCharge, decimal.Decimal, error) {
	rule, err := cr.repo.GetActiveCharge(ctx, db, txType, payerRole)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if rule == nil {
		return nil, decimal.Zero, nil
	}
	return rule, rule.Calculate(amount), nil
}
