package service

import (
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
)

// BookingConfig is passed to every orchestrator at construction.
type BookingConfig struct {
	LockTTL           time.Duration
	AbandonAfter      time.Duration
	TaxRate           float64
	Currency          string
	BookingPrefix     string
	PollInterval      time.Duration
	PendingHoldsSeats bool
}

// DefaultBookingConfig returns the production constants.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		LockTTL:       10 * time.Minute,
		AbandonAfter:  30 * time.Minute,
		TaxRate:       0.18,
		Currency:      "INR",
		BookingPrefix: "NF",
		PollInterval:  3 * time.Second,
	}
}

// BookingConfigFrom converts the loaded application config, filling zero
// values with defaults.
func BookingConfigFrom(c config.BookingConfig) BookingConfig {
	d := DefaultBookingConfig()
	if c.LockTTL > 0 {
		d.LockTTL = c.LockTTL
	}
	if c.AbandonAfter > 0 {
		d.AbandonAfter = c.AbandonAfter
	}
	if c.TaxRate >= 0 {
		d.TaxRate = c.TaxRate
	}
	if c.Currency != "" {
		d.Currency = c.Currency
	}
	if c.BookingPrefix != "" {
		d.BookingPrefix = c.BookingPrefix
	}
	if c.PollInterval > 0 {
		d.PollInterval = c.PollInterval
	}
	d.PendingHoldsSeats = c.PendingHoldsSeats
	return d
}

// taxBasisPoints is the tax rate in hundredths of a percent so amounts
// can be computed in integer minor units.
func (c BookingConfig) taxBasisPoints() int64 {
	return int64(c.TaxRate*10000 + 0.5)
}

// Quote splits a base amount into tax and total, all in minor units.
// Tax rounds half up to the nearest minor unit.
func (c BookingConfig) Quote(baseMinor int64) (taxMinor, totalMinor int64) {
	taxMinor = (baseMinor*c.taxBasisPoints() + 5000) / 10000
	return taxMinor, baseMinor + taxMinor
}
