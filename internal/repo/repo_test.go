package repo

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/ovii/ledger-service/internal/logger"
	"github.com/ovii/ledger-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Wallet{}, &model.Transaction{},
		&model.TransactionCharge{}, &model.SystemWallet{}, &model.OutboxEvent{},
	))

	rdb, _ := redismock.NewClientMock()
	log, err := logger.NewLogger("test")
	require.NoError(t, err)
	return NewRepository(db, rdb, &kafka.Writer{}, log), db
}

func TestUpdateWalletBalance_VersionConflict(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.User{ID: 1, PhoneNumber: "+263770000001"}).Error)
	require.NoError(t, db.Create(&model.Wallet{ID: 1, UserID: 1, Balance: decimal.NewFromInt(100)}).Error)

	w, err := r.GetWalletForUpdate(ctx, db, 1)
	require.NoError(t, err)

	// first writer wins and bumps the version
	require.NoError(t, r.UpdateWalletBalance(ctx, db, 1, decimal.NewFromInt(110), w.Version))

	// a stale version must not overwrite the committed balance
	err = r.UpdateWalletBalance(ctx, db, 1, decimal.NewFromInt(999), w.Version)
	assert.Error(t, err)

	final, err := r.GetWalletForUpdate(ctx, db, 1)
	require.NoError(t, err)
	assert.Equal(t, "110", final.Balance.StringFixed(0))
}

func TestGetWalletByPhone(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.User{ID: 7, PhoneNumber: "+263770000007", Role: model.RoleAgent}).Error)
	require.NoError(t, db.Create(&model.Wallet{ID: 7, UserID: 7, Balance: decimal.Zero, Currency: "USD"}).Error)

	w, err := r.GetWalletByPhone(ctx, "+263770000007")
	require.NoError(t, err)
	assert.EqualValues(t, 7, w.ID)
	assert.Equal(t, model.RoleAgent, w.User.Role)

	_, err = r.GetWalletByPhone(ctx, "+263770000099")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestSumCompletedSentSince(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.User{ID: 1, PhoneNumber: "+263770000001"}).Error)
	require.NoError(t, db.Create(&model.Wallet{ID: 1, UserID: 1, Balance: decimal.Zero}).Error)

	rows := []model.Transaction{
		{WalletID: 1, Amount: decimal.NewFromInt(30), ChargeAmount: decimal.Zero, Status: model.StatusCompleted,
			Type: model.TypeTransfer, TransactionReference: "TR-AAAA0001", SenderIdentifier: "+263770000001",
			Timestamp: time.Now().Add(-2 * time.Hour)},
		{WalletID: 1, Amount: decimal.NewFromInt(20), ChargeAmount: decimal.Zero, Status: model.StatusCompleted,
			Type: model.TypeTransfer, TransactionReference: "TR-AAAA0002", SenderIdentifier: "+263770000001",
			Timestamp: time.Now().Add(-23 * time.Hour)},
		// outside the window
		{WalletID: 1, Amount: decimal.NewFromInt(500), ChargeAmount: decimal.Zero, Status: model.StatusCompleted,
			Type: model.TypeTransfer, TransactionReference: "TR-AAAA0003", SenderIdentifier: "+263770000001",
			Timestamp: time.Now().Add(-26 * time.Hour)},
		// failed rows never count
		{WalletID: 1, Amount: decimal.NewFromInt(75), ChargeAmount: decimal.Zero, Status: model.StatusFailed,
			Type: model.TypeTransfer, TransactionReference: "TR-AAAA0004", SenderIdentifier: "+263770000001",
			Timestamp: time.Now().Add(-time.Hour)},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	sum, err := r.SumCompletedSentSince(ctx, db, 1, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "50.00", sum.StringFixed(2))

	// no rows at all
	sum, err = r.SumCompletedSentSince(ctx, db, 99, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestOutboxLifecycle(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	evt := &model.OutboxEvent{Aggregate: "Transaction", AggregateID: 1, EventType: "TransactionCompleted", Payload: `{"transaction_id":1}`}
	require.NoError(t, r.CreateOutboxEvent(ctx, db, evt))

	pending, err := r.PollOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, r.MarkOutboxProcessed(ctx, pending[0].ID))

	pending, err = r.PollOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
