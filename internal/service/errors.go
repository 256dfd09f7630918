package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by every booking operation. Handlers map these to
// HTTP statuses at the request boundary.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("seat conflict")
	ErrProvider           = errors.New("payment provider error")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrAlreadyProcessed   = errors.New("already processed")

	// ErrAlreadyRefunded is an ErrAlreadyProcessed for refunds.
	ErrAlreadyRefunded = fmt.Errorf("booking already refunded: %w", ErrAlreadyProcessed)
	// ErrPaymentNotCompleted rejects refunds of unpaid bookings.
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// ConflictError lists the seats that are booked or locked by someone else.
type ConflictError struct {
	Seats []string
}

func (e *ConflictError) Error() string {
	return "seats unavailable: " + strings.Join(e.Seats, ", ")
}

// Is makes errors.Is(err, ErrConflict) hold.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ProviderError wraps a failed payment provider call. Retryable is set for
// timeouts and provider side failures.
type ProviderError struct {
	Op        string
	Message   string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s failed: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProvider) hold.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
