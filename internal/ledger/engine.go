package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ovii/ledger-service/internal/model"
	"github.com/ovii/ledger-service/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxReferenceAttempts bounds regeneration on reference collisions.
const maxReferenceAttempts = 5

// Engine moves money between two wallets inside a single database
// transaction: limit check, charge resolution, ordered row locks, balance
// mutation, ledger row, outbox event. Any error before commit leaves zero
// balance change and zero transaction row.
type Engine struct {
	repo        repo.RepositoryInterface
	limits      *LimitEnforcer
	charges     *ChargeResolver
	log         *zap.SugaredLogger
	feeWallet   string
	lockTimeout time.Duration
}

func NewEngine(r repo.RepositoryInterface, limits *LimitEnforcer, charges *ChargeResolver, feeWallet string, lockTimeout time.Duration, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		repo:        r,
		limits:      limits,
		charges:     charges,
		log:         logger,
		feeWallet:   feeWallet,
		lockTimeout: lockTimeout,
	}
}

// Limits exposes the enforcer for read-only allowance queries.
func (e *Engine) Limits() *LimitEnforcer { return e.limits }

// Charges exposes the resolver for fee quotes.
func (e *Engine) Charges() *ChargeResolver { return e.charges }

// Transfer debits sender and credits receiver atomically. Callers resolve
// identifiers to wallet handles and run PIN/permission checks before calling.
// Retries without a dedup key risk double charging; the engine does not
// deduplicate.
func (e *Engine) Transfer(ctx context.Context, sender, receiver *model.Wallet, amount decimal.Decimal, txType model.TransactionType, description string) (*model.Transaction, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return nil, ErrInvalidAmount
	}
	if sender.ID == receiver.ID {
		return nil, ErrSameWallet
	}

	ctx, cancel := context.WithTimeout(ctx, e.lockTimeout)
	defer cancel()

	var (
		result             *model.Transaction
		senderBal, recvBal decimal.Decimal
	)
	err := e.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		sw, err := e.repo.GetWalletByID(ctx, tx, sender.ID)
		if err != nil {
			return err
		}
		rw, err := e.repo.GetWalletByID(ctx, tx, receiver.ID)
		if err != nil {
			return err
		}

		// Daily limit, evaluated before any lock is taken. A concurrent
		// in-flight transfer can overshoot the cap by its own amount; the
		// slack is accepted to keep lock hold time minimal.
		sent, err := e.limits.SentInWindow(ctx, tx, sw.ID)
		if err != nil {
			return err
		}
		limit := e.limits.TierLimit(sw.User.VerificationTier)
		if sent.Add(amount).GreaterThan(limit) {
			return &LimitExceededError{Limit: limit}
		}

		rule, chargeAmount, err := e.charges.Resolve(ctx, tx, txType, sw.User.Role, amount)
		if err != nil {
			return err
		}

		// Lock both wallets in ascending ID order so two opposite-direction
		// transfers between the same pair cannot deadlock.
		firstID, secondID := sw.ID, rw.ID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		w1, err := e.repo.GetWalletForUpdate(ctx, tx, firstID)
		if err != nil {
			return err
		}
		w2, err := e.repo.GetWalletForUpdate(ctx, tx, secondID)
		if err != nil {
			return err
		}
		wFrom, wTo := w1, w2
		if firstID != sw.ID {
			wFrom, wTo = w2, w1
		}

		// Funds check against the locked, up-to-date balance. The pre-lock
		// reads can be stale; this one cannot.
		senderPays := rule != nil && rule.AppliesTo == model.AppliesToSender && chargeAmount.IsPositive()
		required := amount
		if senderPays {
			required = amount.Add(chargeAmount)
		}
		if wFrom.Balance.LessThan(required) {
			return ErrInsufficientFunds
		}

		credit := amount
		if rule != nil && rule.AppliesTo == model.AppliesToReceiver {
			credit = amount.Sub(chargeAmount)
		}

		newFrom := wFrom.Balance.Sub(required)
		newTo := wTo.Balance.Add(credit)
		// A receiver-borne charge larger than the amount nets negative; the
		// receiver's existing balance must absorb the difference or the
		// transfer is rejected. No wallet ever commits below zero.
		if newTo.IsNegative() {
			return ErrChargeNotCovered
		}
		if err := e.repo.UpdateWalletBalance(ctx, tx, wFrom.ID, newFrom, wFrom.Version); err != nil {
			return err
		}
		if err := e.repo.UpdateWalletBalance(ctx, tx, wTo.ID, newTo, wTo.Version); err != nil {
			return err
		}

		if chargeAmount.IsPositive() {
			// Fee sink is locked after both transacting wallets, keeping a
			// single global lock order.
			sink, err := e.repo.GetSystemWalletForUpdate(ctx, tx, e.feeWallet)
			if err != nil {
				return err
			}
			if err := e.repo.CreditSystemWallet(ctx, tx, sink.ID, sink.Balance.Add(chargeAmount)); err != nil {
				return err
			}
		}

		reference, err := e.uniqueReference(ctx, tx, txType)
		if err != nil {
			return err
		}

		var chargeID *uint64
		if rule != nil {
			id := rule.ID
			chargeID = &id
		}
		receiverPhone := rw.User.PhoneNumber
		record := &model.Transaction{
			WalletID:             wFrom.ID,
			RelatedWalletID:      &wTo.ID,
			Amount:               amount,
			ChargeAmount:         chargeAmount,
			ChargeID:             chargeID,
			Status:               model.StatusCompleted,
			Type:                 txType,
			TransactionReference: reference,
			SenderIdentifier:     sw.User.PhoneNumber,
			ReceiverIdentifier:   &receiverPhone,
			Description:          description,
		}
		if err := e.repo.CreateTransaction(ctx, tx, record); err != nil {
			return err
		}

		payload, err := json.Marshal(TransactionCompletedEvent{
			TransactionID:    record.ID,
			Reference:        reference,
			SenderWalletID:   wFrom.ID,
			ReceiverWalletID: wTo.ID,
			Type:             txType,
			Amount:           amount,
			Currency:         sw.Currency,
		})
		if err != nil {
			return err
		}
		evt := &model.OutboxEvent{
			Aggregate:   "Transaction",
			AggregateID: record.ID,
			EventType:   EventTransactionCompleted,
			Payload:     string(payload),
		}
		if err := e.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
			return err
		}

		result = record
		senderBal, recvBal = newFrom, newTo
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit only: cache refresh is best-effort and never affects the
	// committed transfer.
	if err := e.repo.CacheBalance(ctx, sender.ID, senderBal); err != nil {
		e.log.Warnf("cache sender balance: %v", err)
	}
	if err := e.repo.CacheBalance(ctx, receiver.ID, recvBal); err != nil {
		e.log.Warnf("cache receiver balance: %v", err)
	}
	e.log.Infow("transfer completed",
		"reference", result.TransactionReference,
		"type", result.Type,
		"sender_wallet", sender.ID,
		"receiver_wallet", receiver.ID,
		"amount", result.Amount.StringFixed(2),
		"charge", result.ChargeAmount.StringFixed(2),
	)
	return result, nil
}

// uniqueReference generates a reference and regenerates on collision, up to
// maxReferenceAttempts. The unique index backs the probe up at commit time.
func (e *Engine) uniqueReference(ctx context.Context, tx *gorm.DB, txType model.TransactionType) (string, error) {
	for i := 0; i < maxReferenceAttempts; i++ {
		ref, err := NewReference(txType)
		if err != nil {
			return "", err
		}
		exists, err := e.repo.ReferenceExists(ctx, tx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", ErrReferenceGeneration
}
