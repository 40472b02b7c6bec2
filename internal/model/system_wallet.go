package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SystemWallet is a named accumulator not tied to any user. The fee sink is
// one of these; it is credited with every collected charge, always locked
// after the two transacting wallets.
type SystemWallet struct {
	ID        uint64          `gorm:"primaryKey"`
	Name      string          `gorm:"size:64;not null;uniqueIndex"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:'0'"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (SystemWallet) TableName() string { return "system_wallet" }

// FeeWalletName is the default fee sink; overridable in config.
const FeeWalletName = "transaction_fees"
