package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ovii/ledger-service/internal/ledger"
	"github.com/ovii/ledger-service/internal/model"
	"github.com/ovii/ledger-service/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrPendingPaymentNotFound is returned when a payment approval references
// no PENDING row owned by the caller.
var ErrPendingPaymentNotFound = errors.New("pending payment not found")

// WalletService resolves phone-number identifiers to wallet handles and
// drives the transfer engine for each product flow. PIN and permission
// checks happen upstream in the auth layer.
type WalletService struct {
	repo   repo.RepositoryInterface
	engine *ledger.Engine
	log    *zap.SugaredLogger
}

func NewWalletService(r repo.RepositoryInterface, engine *ledger.Engine, logger *zap.SugaredLogger) *WalletService {
	return &WalletService{repo: r, engine: engine, log: logger}
}

// TransferToPhone is the peer-to-peer flow: sender wallet to the wallet
// owned by receiverPhone.
func (s *WalletService) TransferToPhone(ctx context.Context, senderPhone, receiverPhone string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	sender, err := s.repo.GetWalletByPhone(ctx, senderPhone)
	if err != nil {
		return nil, err
	}
	receiver, err := s.repo.GetWalletByPhone(ctx, receiverPhone)
	if err != nil {
		return nil, err
	}
	return s.engine.Transfer(ctx, sender, receiver, amount, model.TypeTransfer, description)
}

// AgentCashIn moves funds from the agent's float wallet to the customer's
// wallet (a deposit from the customer's point of view).
func (s *WalletService) AgentCashIn(ctx context.Context, agentPhone, customerPhone string, amount decimal.Decimal) (*model.Transaction, error) {
	agent, err := s.repo.GetWalletByPhone(ctx, agentPhone)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.GetWalletByPhone(ctx, customerPhone)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Agent cash-in for %s", customer.User.PhoneNumber)
	return s.engine.Transfer(ctx, agent, customer, amount, model.TypeDeposit, desc)
}

// CustomerCashOut moves funds from the customer's wallet to the agent's
// float wallet; the agent hands over physical cash.
func (s *WalletService) CustomerCashOut(ctx context.Context, customerPhone, agentPhone string, amount decimal.Decimal) (*model.Transaction, error) {
	customer, err := s.repo.GetWalletByPhone(ctx, customerPhone)
	if err != nil {
		return nil, err
	}
	agent, err := s.repo.GetWalletByPhone(ctx, agentPhone)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Customer cash-out with agent %s", agent.User.PhoneNumber)
	return s.engine.Transfer(ctx, customer, agent, amount, model.TypeWithdrawal, desc)
}

// RequestMerchantPayment records a PENDING payment the customer must
// approve. No funds move yet; the row carries the requested amount and both
// parties so approval can run the engine later.
func (s *WalletService) RequestMerchantPayment(ctx context.Context, customerPhone, merchantPhone string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return nil, ledger.ErrInvalidAmount
	}
	customer, err := s.repo.GetWalletByPhone(ctx, customerPhone)
	if err != nil {
		return nil, err
	}
	merchant, err := s.repo.GetWalletByPhone(ctx, merchantPhone)
	if err != nil {
		return nil, err
	}
	if customer.ID == merchant.ID {
		return nil, ledger.ErrSameWallet
	}
	ref, err := ledger.NewReference(model.TypePayment)
	if err != nil {
		return nil, err
	}
	merchantPhoneCopy := merchant.User.PhoneNumber
	pending := &model.Transaction{
		WalletID:             customer.ID,
		RelatedWalletID:      &merchant.ID,
		Amount:               amount,
		ChargeAmount:         decimal.Zero,
		Status:               model.StatusPending,
		Type:                 model.TypePayment,
		TransactionReference: ref,
		SenderIdentifier:     customer.User.PhoneNumber,
		ReceiverIdentifier:   &merchantPhoneCopy,
		Description:          description,
	}
	if err := s.repo.CreateTransaction(ctx, s.repo.DB(ctx), pending); err != nil {
		return nil, err
	}
	s.log.Infow("merchant payment requested",
		"reference", ref, "customer_wallet", customer.ID, "merchant_wallet", merchant.ID)
	return pending, nil
}

// ApproveMerchantPayment completes a PENDING payment. The row is claimed
// (PENDING to FAILED) in a single guarded update before the engine runs, so
// two racing approvals cannot both move funds; the loser sees no claimable
// row. A failed transfer reopens the row for another attempt.
func (s *WalletService) ApproveMerchantPayment(ctx context.Context, customerPhone string, transactionID uint64) (*model.Transaction, error) {
	customer, err := s.repo.GetWalletByPhone(ctx, customerPhone)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.GetPendingPayment(ctx, customer.ID, transactionID)
	if err != nil {
		return nil, ErrPendingPaymentNotFound
	}
	if pending.RelatedWalletID == nil {
		return nil, ErrPendingPaymentNotFound
	}
	merchant, err := s.repo.GetWalletByID(ctx, s.repo.DB(ctx), *pending.RelatedWalletID)
	if err != nil {
		return nil, err
	}
	claimed, err := s.repo.ClaimPendingPayment(ctx, pending.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrPendingPaymentNotFound
	}
	completed, err := s.engine.Transfer(ctx, customer, merchant, pending.Amount, model.TypePayment, pending.Description)
	if err != nil {
		if rerr := s.repo.ReopenPendingPayment(ctx, pending.ID); rerr != nil {
			s.log.Warnf("reopen pending payment %d: %v", pending.ID, rerr)
		}
		return nil, err
	}
	superseded := fmt.Sprintf("Superseded by transaction %s", completed.TransactionReference)
	if err := s.repo.SetTransactionDescription(ctx, pending.ID, supersededDescription(pending.Description, superseded)); err != nil {
		// The payment itself committed; the note is best effort.
		s.log.Warnf("supersede pending payment %d: %v", pending.ID, err)
	}
	return completed, nil
}

// PayCommission credits an agent or merchant from a system operator wallet,
// e.g. monthly agent commission runs.
func (s *WalletService) PayCommission(ctx context.Context, operatorPhone, beneficiaryPhone string, amount decimal.Decimal, description string) (*model.Transaction, error) {
	operator, err := s.repo.GetWalletByPhone(ctx, operatorPhone)
	if err != nil {
		return nil, err
	}
	beneficiary, err := s.repo.GetWalletByPhone(ctx, beneficiaryPhone)
	if err != nil {
		return nil, err
	}
	return s.engine.Transfer(ctx, operator, beneficiary, amount, model.TypeCommission, description)
}

// GetBalance returns the wallet balance, cache first.
func (s *WalletService) GetBalance(ctx context.Context, phone string) (decimal.Decimal, string, error) {
	w, err := s.repo.GetWalletByPhone(ctx, phone)
	if err != nil {
		return decimal.Zero, "", err
	}
	if bal, err := s.repo.GetCachedBalance(ctx, w.ID); err == nil {
		return bal, w.Currency, nil
	}
	if err := s.repo.CacheBalance(ctx, w.ID, w.Balance); err != nil {
		s.log.Debugf("cache balance: %v", err)
	}
	return w.Balance, w.Currency, nil
}

// GetHistory lists sent and received transactions, newest first.
func (s *WalletService) GetHistory(ctx context.Context, phone string, limit int) ([]model.Transaction, error) {
	w, err := s.repo.GetWalletByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, w.ID, limit)
}

// QuoteCharge previews the fee a payer would incur, without moving funds.
func (s *WalletService) QuoteCharge(ctx context.Context, phone string, txType model.TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	w, err := s.repo.GetWalletByPhone(ctx, phone)
	if err != nil {
		return decimal.Zero, err
	}
	_, charge, err := s.engine.Charges().Resolve(ctx, s.repo.DB(ctx), txType, w.User.Role, amount)
	return charge, err
}

// RemainingAllowance reports how much the wallet may still send today.
func (s *WalletService) RemainingAllowance(ctx context.Context, phone string) (decimal.Decimal, error) {
	w, err := s.repo.GetWalletByPhone(ctx, phone)
	if err != nil {
		return decimal.Zero, err
	}
	return s.engine.Limits().RemainingAllowance(ctx, s.repo.DB(ctx), w.ID, w.User.VerificationTier)
}

func supersededDescription(original, note string) string {
	if original == "" {
		return note
	}
	return original + "; " + note
}
