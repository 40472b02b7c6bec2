package model

import "time"

// Role determines which charge rules apply to a payer.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleMerchant Role = "MERCHANT"
)

// VerificationTier is the user's KYC level. It bounds the daily send limit.
type VerificationTier int

const (
	TierUnverified       VerificationTier = 0
	TierMobileVerified   VerificationTier = 1
	TierIdentityVerified VerificationTier = 2
	TierAddressVerified  VerificationTier = 3
)

// User holds the account fields the ledger needs: a stable identifier for
// transaction snapshots, a role for charge lookups and a tier for limits.
// Registration/KYC lifecycle lives in a separate service.
type User struct {
	ID               uint64           `gorm:"primaryKey"`
	PhoneNumber      string           `gorm:"size:50;not null;uniqueIndex"`
	FullName         string           `gorm:"size:150"`
	Role             Role             `gorm:"size:20;not null;default:'CUSTOMER'"`
	VerificationTier VerificationTier `gorm:"not null;default:0"`
	CreatedAt        time.Time        `gorm:"autoCreateTime"`
}

func (User) TableName() string { return "users" }
