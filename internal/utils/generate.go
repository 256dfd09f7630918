package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingCode returns a public booking id: prefix, the booking date as
// YYYYMMDD and six upper-case random characters, e.g. NF20260301A1B2C3.
func BookingCode(prefix string, now time.Time) string {
	return prefix + now.UTC().Format("20060102") + randomUpper(6)
}

// TransactionID returns the ledger id of a captured charge: TXN, the unix
// time and four random characters.
func TransactionID(now time.Time) string {
	return fmt.Sprintf("TXN%d%s", now.Unix(), randomUpper(4))
}

// RefundTransactionID returns the ledger id of a refund.
func RefundTransactionID(refundID string) string {
	return "REFUND_" + refundID
}

// Receipt returns the provider order receipt: NF_<unix>_<user>.
func Receipt(prefix string, now time.Time, userID uint64) string {
	return fmt.Sprintf("%s_%d_%d", prefix, now.Unix(), userID)
}

// RequestID returns a new random request id.
func RequestID() string {
	return uuid.NewString()
}

func randomUpper(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return s[:n]
}
