package model

import "github.com/shopspring/decimal"

type ChargeType string

const (
	ChargePercentage ChargeType = "PERCENTAGE"
	ChargeFixed      ChargeType = "FIXED"
)

// ChargeBearer names the party a charge is deducted from.
type ChargeBearer string

const (
	AppliesToSender   ChargeBearer = "SENDER"
	AppliesToReceiver ChargeBearer = "RECEIVER"
)

// TransactionCharge is an administratively configured fee rule, looked up by
// (transaction type, payer role). Read-only from the engine's perspective.
type TransactionCharge struct {
	ID              uint64           `gorm:"primaryKey"`
	Name            string           `gorm:"size:64;not null;uniqueIndex"`
	TransactionType TransactionType  `gorm:"size:20;not null;index:idx_charge_lookup"`
	PayerRole       Role             `gorm:"size:20;not null;index:idx_charge_lookup"`
	ChargeType      ChargeType       `gorm:"size:10;not null"`
	Value           decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	AppliesTo       ChargeBearer     `gorm:"size:10;not null;default:'SENDER'"`
	MinCharge       decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:'0'"`
	MaxCharge       *decimal.Decimal `gorm:"type:numeric(12,2)"`
	// no column default: gorm would drop an explicit false on insert
	IsActive bool `gorm:"not null"`
}

func (TransactionCharge) TableName() string { return "transaction_charge" }

// Calculate applies the rule to amount and clamps the result to
// [MinCharge, MaxCharge]. A nil MaxCharge means no upper clamp.
func (c *TransactionCharge) Calculate(amount decimal.Decimal) decimal.Decimal {
	var charge decimal.Decimal
	switch c.ChargeType {
	case ChargePercentage:
		charge = c.Value.Div(decimal.NewFromInt(100)).Mul(amount)
	default:
		charge = c.Value
	}
	if charge.LessThan(c.MinCharge) {
		charge = c.MinCharge
	}
	if c.MaxCharge != nil && charge.GreaterThan(*c.MaxCharge) {
		charge = *c.MaxCharge
	}
	return charge.Round(2)
}
