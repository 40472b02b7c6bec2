package ledger

import (
	"testing"

	"github.com/ovii/ledger-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitEnforcer_TierLimit(t *testing.T) {
	h := newLedgerHarness(t, map[int]string{1: "500.00", 2: "2000.00"})
	le := h.engine.Limits()

	assert.Equal(t, "500.00", le.TierLimit(model.TierMobileVerified).StringFixed(2))
	assert.Equal(t, "2000.00", le.TierLimit(model.TierIdentityVerified).StringFixed(2))
	// unconfigured tiers send nothing
	assert.Equal(t, "0.00", le.TierLimit(model.TierUnverified).StringFixed(2))
	assert.Equal(t, "0.00", le.TierLimit(model.TierAddressVerified).StringFixed(2))
}

func TestLimitEnforcer_RemainingAllowance(t *testing.T) {
	h := newLedgerHarness(t, map[int]string{1: "500.00"})
	a := h.seedWallet(t, 1, "+263770000001", model.RoleCustomer, model.TierMobileVerified, "400.00")
	b := h.seedWallet(t, 2, "+263770000002", model.RoleCustomer, model.TierMobileVerified, "0.00")

	le := h.engine.Limits()
	remaining, err := le.RemainingAllowance(h.ctx, h.repo.DB(h.ctx), a.ID, model.TierMobileVerified)
	require.NoError(t, err)
	assert.Equal(t, "500.00", remaining.StringFixed(2))

	_, err = h.engine.Transfer(h.ctx, a, b, dec("120.00"), model.TypeTransfer, "")
	require.NoError(t, err)

	remaining, err = le.RemainingAllowance(h.ctx, h.repo.DB(h.ctx), a.ID, model.TierMobileVerified)
	require.NoError(t, err)
	assert.Equal(t, "380.00", remaining.StringFixed(2))
}
