package model

import (
	"encoding/json"
	"time"
)

// Payment methods written to the payment ledger.
const (
	PaymentMethodProvider = "razorpay"
	PaymentMethodRefund   = "refund"
)

// PaymentRecordSuccess is the status of every ledger entry; failed
// attempts are never recorded.
const PaymentRecordSuccess = "success"

// Payment is an append-only ledger entry for a charge or a refund.
type Payment struct {
	ID             uint64          // payments.id
	BookingID      uint64          // payments.booking_id (bookings.id)
	TransactionID  string          // payments.transaction_id
	AmountMinor    int64           // payments.amount_minor
	Method         string          // payments.payment_method
	Status         string          // payments.payment_status
	PaymentDetails json.RawMessage // payments.payment_details (nullable JSON)
	CreatedAt      time.Time       // payments.created_at
}
