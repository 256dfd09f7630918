package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// PaymentRepo appends to the payments ledger. Rows are never updated.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// AppendPayment inserts a ledger entry and sets its generated ID.
func (r *PaymentRepo) AppendPayment(ctx context.Context, p *model.Payment) error {
	var details interface{}
	if len(p.PaymentDetails) > 0 {
		details = string(p.PaymentDetails)
	}
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO payments (booking_id, transaction_id, amount_minor, payment_method, payment_status, payment_details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.BookingID, p.TransactionID, p.AmountMinor, p.Method, p.Status, details, p.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListPayments returns the ledger entries of a booking in insertion order.
func (r *PaymentRepo) ListPayments(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, booking_id, transaction_id, amount_minor, payment_method, payment_status, payment_details, created_at
		 FROM payments WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		var (
			p       model.Payment
			details []byte
		)
		if err := rows.Scan(&p.ID, &p.BookingID, &p.TransactionID, &p.AmountMinor, &p.Method, &p.Status, &details, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			p.PaymentDetails = append([]byte(nil), details...)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
