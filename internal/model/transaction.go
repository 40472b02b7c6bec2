package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeTransfer   TransactionType = "TRANSFER"
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypePayment    TransactionType = "PAYMENT"
	TypeCommission TransactionType = "COMMISSION"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable ledger entry. WalletID is the debited (or
// charged) party, RelatedWalletID the counterparty. Sender and receiver
// phone numbers are snapshotted at write time so the record stays readable
// if an account's number changes later. Once COMPLETED a row is never
// mutated; a PENDING merchant payment may be marked FAILED when superseded,
// but its amount and parties are frozen.
type Transaction struct {
	ID                   uint64            `gorm:"primaryKey"`
	WalletID             uint64            `gorm:"not null;index"`
	Wallet               Wallet            `gorm:"foreignKey:WalletID"`
	RelatedWalletID      *uint64           `gorm:"index"`
	RelatedWallet        *Wallet           `gorm:"foreignKey:RelatedWalletID"`
	Amount               decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	ChargeAmount         decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:'0'"`
	ChargeID             *uint64
	Status               TransactionStatus `gorm:"size:10;not null;default:'PENDING'"`
	Type                 TransactionType   `gorm:"column:transaction_type;size:20;not null"`
	TransactionReference string            `gorm:"size:20;not null;uniqueIndex"`
	SenderIdentifier     string            `gorm:"size:50;not null"`
	ReceiverIdentifier   *string           `gorm:"size:50"`
	Description          string            `gorm:"size:255"`
	Timestamp            time.Time         `gorm:"autoCreateTime;index"`
}

func (Transaction) TableName() string { return "transaction" }
