package model

import "math"

// ToMinor converts a major-unit amount (rupees) to minor units (paise),
// rounding half away from zero.
func ToMinor(amount float64) int64 { return int64(math.Round(amount * 100)) }

// ToMajor converts minor units back to a major-unit amount.
func ToMajor(minor int64) float64 { return float64(minor) / 100 }
