package ledger

import (
	"github.com/ovii/ledger-service/internal/model"
	"github.com/shopspring/decimal"
)

// EventTransactionCompleted is the outbox event type consumed by the
// notification fan-out.
const EventTransactionCompleted = "TransactionCompleted"

// TransactionCompletedEvent is the payload published once per committed
// transfer. Delivery is at-least-once; consumers must be idempotent.
type TransactionCompletedEvent struct {
	TransactionID    uint64                `json:"transaction_id"`
	Reference        string                `json:"reference"`
	SenderWalletID   uint64                `json:"sender_wallet_id"`
	ReceiverWalletID uint64                `json:"receiver_wallet_id"`
	Type             model.TransactionType `json:"transaction_type"`
	Amount           decimal.Decimal       `json:"amount"`
	Currency         string                `json:"currency"`
}
