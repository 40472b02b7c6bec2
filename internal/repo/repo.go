package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ovii/ledger-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrWalletNotFound is returned when a wallet handle cannot be resolved.
var ErrWalletNotFound = errors.New("wallet not found")

// RepositoryInterface restricts Repo methods so the engine and services can
// be unit tested against a narrow surface.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	GetWalletByID(ctx context.Context, db *gorm.DB, walletID uint64) (*model.Wallet, error)
	GetWalletByPhone(ctx context.Context, phone string) (*model.Wallet, error)
	GetWalletForUpdate(ctx context.Context, tx *gorm.DB, walletID uint64) (*model.Wallet, error)
	UpdateWalletBalance(ctx context.Context, tx *gorm.DB, walletID uint64, newBalance decimal.Decimal, oldVersion uint64) error

	GetSystemWalletForUpdate(ctx context.Context, tx *gorm.DB, name string) (*model.SystemWallet, error)
	CreditSystemWallet(ctx context.Context, tx *gorm.DB, id uint64, newBalance decimal.Decimal) error

	SumCompletedSentSince(ctx context.Context, db *gorm.DB, walletID uint64, since time.Time) (decimal.Decimal, error)
	GetActiveCharge(ctx context.Context, db *gorm.DB, txType model.TransactionType, role model.Role) (*model.TransactionCharge, error)

	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	ReferenceExists(ctx context.Context, tx *gorm.DB, reference string) (bool, error)
	GetPendingPayment(ctx context.Context, walletID, transactionID uint64) (*model.Transaction, error)
	ClaimPendingPayment(ctx context.Context, transactionID uint64) (bool, error)
	ReopenPendingPayment(ctx context.Context, transactionID uint64) error
	SetTransactionDescription(ctx context.Context, transactionID uint64, description string) error
	ListTransactions(ctx context.Context, walletID uint64, limit int) ([]model.Transaction, error)

	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error

	CacheBalance(ctx context.Context, walletID uint64, bal decimal.Decimal) error
	GetCachedBalance(ctx context.Context, walletID uint64) (decimal.Decimal, error)
}

// Repository implements RepositoryInterface.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// GetWalletByID fetches a wallet with its owning user, no lock.
func (r *Repository) GetWalletByID(ctx context.Context, db *gorm.DB, walletID uint64) (*model.Wallet, error) {
	var w model.Wallet
	err := db.WithContext(ctx).Preload("User").Where("id = ?", walletID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWalletByPhone resolves a phone number to the owner's wallet.
func (r *Repository) GetWalletByPhone(ctx context.Context, phone string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = wallet.user_id").
		Where("users.phone_number = ?", phone).
		Preload("User").
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWalletForUpdate locks the wallet row for the remainder of tx.
// SQLite has no FOR UPDATE; its single-writer lock covers tests.
func (r *Repository) GetWalletForUpdate(ctx context.Context, tx *gorm.DB, walletID uint64) (*model.Wallet, error) {
	q := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var w model.Wallet
	if err := q.Where("id = ?", walletID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

// UpdateWalletBalance writes the new balance with a version bump. The row is
// already locked; the version check is a tripwire against any write path
// that bypassed the lock.
func (r *Repository) UpdateWalletBalance(ctx context.Context, tx *gorm.DB, walletID uint64, newBalance decimal.Decimal, oldVersion uint64) error {
	res := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND version = ?", walletID, oldVersion).
		Updates(map[string]interface{}{
			"balance":    newBalance,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("wallet version conflict")
	}
	return nil
}

// GetSystemWalletForUpdate locks the named system wallet, creating it on
// first use.
func (r *Repository) GetSystemWalletForUpdate(ctx context.Context, tx *gorm.DB, name string) (*model.SystemWallet, error) {
	q := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sw model.SystemWallet
	err := q.Where("name = ?", name).First(&sw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sw = model.SystemWallet{Name: name, Balance: decimal.Zero}
		if err := tx.WithContext(ctx).Create(&sw).Error; err != nil {
			return nil, err
		}
		return &sw, nil
	}
	if err != nil {
		return nil, err
	}
	return &sw, nil
}

// CreditSystemWallet writes the fee sink's new balance.
func (r *Repository) CreditSystemWallet(ctx context.Context, tx *gorm.DB, id uint64, newBalance decimal.Decimal) error {
	return tx.WithContext(ctx).
		Model(&model.SystemWallet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"balance": newBalance, "updated_at": time.Now()}).Error
}

// SumCompletedSentSince aggregates COMPLETED outbound amounts for the daily
// limit check. Re-derived on every call; concurrent transfers move it.
func (r *Repository) SumCompletedSentSince(ctx context.Context, db *gorm.DB, walletID uint64, since time.Time) (decimal.Decimal, error) {
	var total sql.NullString
	err := db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("CAST(SUM(amount) AS TEXT)").
		Where("wallet_id = ? AND status = ? AND timestamp >= ?", walletID, model.StatusCompleted, since).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid || total.String == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(total.String)
}

// GetActiveCharge looks up the fee rule for (type, payer role). A nil result
// with nil error means no fee applies.
func (r *Repository) GetActiveCharge(ctx context.Context, db *gorm.DB, txType model.TransactionType, role model.Role) (*model.TransactionCharge, error) {
	var c model.TransactionCharge
	err := db.WithContext(ctx).
		Where("transaction_type = ? AND payer_role = ? AND is_active = ?", txType, role, true).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateTransaction inserts the ledger row.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	return tx.WithContext(ctx).Create(t).Error
}

// ReferenceExists probes for a reference collision before insert; the unique
// index remains the backstop.
func (r *Repository) ReferenceExists(ctx context.Context, tx *gorm.DB, reference string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_reference = ?", reference).
		Count(&n).Error
	return n > 0, err
}

// GetPendingPayment fetches a PENDING merchant payment owned by walletID.
func (r *Repository) GetPendingPayment(ctx context.Context, walletID, transactionID uint64) (*model.Transaction, error) {
	var t model.Transaction
	err := r.db.WithContext(ctx).
		Where("id = ? AND wallet_id = ? AND status = ? AND transaction_type = ?",
			transactionID, walletID, model.StatusPending, model.TypePayment).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ClaimPendingPayment flips a PENDING payment to FAILED in one guarded
// update, so exactly one approver proceeds to the transfer. Returns false
// when another approval already claimed the row.
func (r *Repository) ClaimPendingPayment(ctx context.Context, transactionID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ? AND transaction_type = ?",
			transactionID, model.StatusPending, model.TypePayment).
		Update("status", model.StatusFailed)
	return res.RowsAffected > 0, res.Error
}

// ReopenPendingPayment puts a claimed payment back to PENDING after a
// failed transfer, so the customer can retry the approval.
func (r *Repository) ReopenPendingPayment(ctx context.Context, transactionID uint64) error {
	return r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", transactionID, model.StatusFailed).
		Update("status", model.StatusPending).Error
}

// SetTransactionDescription annotates a superseded payment row. Amount and
// parties stay immutable.
func (r *Repository) SetTransactionDescription(ctx context.Context, transactionID uint64, description string) error {
	return r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", transactionID).
		Update("description", description).Error
}

// ListTransactions returns sent and received entries, newest first.
func (r *Repository) ListTransactions(ctx context.Context, walletID uint64, limit int) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? OR related_wallet_id = ?", walletID, walletID).
		Order("timestamp desc").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = false").Order("created_at").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.AggregateID)),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

// CacheBalance writes Redis.
func (r *Repository) CacheBalance(ctx context.Context, walletID uint64, bal decimal.Decimal) error {
	return r.rdb.Set(ctx, fmt.Sprintf("balance:%d", walletID), bal.String(), 5*time.Minute).Err()
}

// GetCachedBalance reads Redis.
func (r *Repository) GetCachedBalance(ctx context.Context, walletID uint64) (decimal.Decimal, error) {
	str, err := r.rdb.Get(ctx, fmt.Sprintf("balance:%d", walletID)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(str)
}
