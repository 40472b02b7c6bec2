package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ovii/ledger-service/internal/model"
)

// referencePrefixes maps a transaction type to its human-readable reference
// prefix: transfer, cash-out, merchant payment, deposit, commission.
var referencePrefixes = map[model.TransactionType]string{
	model.TypeTransfer:   "TR",
	model.TypeWithdrawal: "CO",
	model.TypePayment:    "MP",
	model.TypeDeposit:    "DP",
	model.TypeCommission: "CM",
}

// NewReference builds a reference like TR-A1B2C3D4: type prefix plus 8
// random uppercase hex characters. Uniqueness is enforced at the storage
// layer; callers regenerate on collision.
func NewReference(txType model.TransactionType) (string, error) {
	prefix, ok := referencePrefixes[txType]
	if !ok {
		prefix = "TR"
	}
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(hex.EncodeToString(b[:]))), nil
}
