package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a user's stored-value balance in a single currency. One wallet
// per user. Balance is mutated only by the transfer engine, under a row lock.
type Wallet struct {
	ID        uint64          `gorm:"primaryKey"`
	UserID    uint64          `gorm:"not null;uniqueIndex"`
	User      User            `gorm:"foreignKey:UserID"`
	Balance   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:'0'"`
	Currency  string          `gorm:"type:char(3);not null;default:'USD'"`
	Version   uint64          `gorm:"not null;default:0"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallet" }
