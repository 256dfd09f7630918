package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/utils"
)

// RefundInput asks for a full refund of a paid booking.
type RefundInput struct {
	BookingID string
	Reason    string
	AdminID   uint64
}

// RefundResult is the provider refund.
type RefundResult struct {
	RefundID          string
	BookingID         string
	RefundAmountMinor int64
}

// RefundAmount is the refunded total in major units.
func (r RefundResult) RefundAmount() float64 { return model.ToMajor(r.RefundAmountMinor) }

// RefundService reverses confirmed bookings.
type RefundService struct {
	*deps
	log *zap.Logger
}

const defaultRefundReason = "Customer request"

// Refund refunds the booking total through the provider, cancels the
// booking, frees its seats and records the refund in the payment ledger.
// A provider failure changes nothing locally.
func (s *RefundService) Refund(ctx context.Context, in RefundInput) (*RefundResult, error) {
	if in.BookingID == "" {
		return nil, invalid("booking_id is required")
	}
	if in.Reason == "" {
		in.Reason = defaultRefundReason
	}

	var (
		res    *RefundResult
		detail *model.BookingDetail
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBooking(ctx, in.BookingID, true)
		if err != nil {
			return translate(err)
		}
		switch {
		case b.PaymentStatus == model.PaymentRefunded:
			return ErrAlreadyRefunded
		case b.PaymentStatus != model.PaymentCompleted, b.ExternalPaymentID == "":
			return ErrPaymentNotCompleted
		}

		refund, err := s.gateway.Refund(ctx, b.ExternalPaymentID, payment.RefundRequest{
			Amount: b.TotalAmountMinor,
			Speed:  "normal",
			Notes: map[string]string{
				"reason":      in.Reason,
				"booking_id":  b.BookingID,
				"refunded_by": "admin:" + strconv.FormatUint(in.AdminID, 10),
			},
		})
		if err != nil {
			return providerError("refund", err)
		}

		if err := s.repo.RefundBooking(ctx, b); err != nil {
			return translate(err)
		}
		details, _ := json.Marshal(map[string]string{"refund_id": refund.ID, "reason": in.Reason})
		if err := s.repo.AppendPayment(ctx, &model.Payment{
			BookingID:      b.ID,
			TransactionID:  utils.RefundTransactionID(refund.ID),
			AmountMinor:    b.TotalAmountMinor,
			Method:         model.PaymentMethodRefund,
			Status:         model.PaymentRecordSuccess,
			PaymentDetails: details,
			CreatedAt:      s.clock(),
		}); err != nil {
			return fmt.Errorf("append refund: %w", err)
		}
		detail, err = s.repo.GetBookingDetail(ctx, b.BookingID)
		if err != nil {
			return translate(err)
		}
		res = &RefundResult{RefundID: refund.ID, BookingID: b.BookingID, RefundAmountMinor: b.TotalAmountMinor}
		return nil
	})
	if err != nil {
		logFailure(s.log, "refund failed", err, zap.String("booking_id", in.BookingID))
		return nil, err
	}

	s.log.Info("booking refunded",
		zap.String("booking_id", res.BookingID),
		zap.String("refund_id", res.RefundID),
		zap.Uint64("admin_id", in.AdminID),
	)
	d, reason := *detail, in.Reason
	s.notify(s.log, d.BookingID, func(ctx context.Context) error {
		return s.notifier.BookingRefunded(ctx, d, res.RefundID, reason)
	})
	return res, nil
}
