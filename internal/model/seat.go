package model

import (
	"strconv"
	"strings"
)

// Seats are not persisted. A seat id is the row label followed by the
// one-based seat number ("A1", "C12", "AA3"); the grid comes from the
// screen geometry.

// RowLabel converts a zero-based row index to an alphabetical label like A, B, AA.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// Seat ids are stored in VARCHAR(8) columns; three letters already cover
// 18,278 rows.
const (
	MaxSeatIDLen   = 8
	MaxRowLabelLen = 3
)

// RowIndex converts a row label like A or AA into its zero-based index.
// Labels longer than MaxRowLabelLen are rejected.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" || len(s) > MaxRowLabelLen {
		return -1, false
	}
	idx := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return -1, false
		}
		idx = idx*26 + int(r-'A'+1)
	}
	return idx - 1, true
}

// SeatID builds the seat id for a zero-based row index and a one-based seat number.
func SeatID(row, number int) string {
	return RowLabel(row) + strconv.Itoa(number)
}

// NormalizeSeatID trims and upper-cases a client supplied seat id.
func NormalizeSeatID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseSeatID splits a seat id into its zero-based row index and one-based
// seat number. It reports false for anything that is not letters followed
// by a positive number, or for ids longer than MaxSeatIDLen.
func ParseSeatID(id string) (row, number int, ok bool) {
	s := NormalizeSeatID(id)
	if len(s) > MaxSeatIDLen {
		return 0, 0, false
	}
	split := 0
	for split < len(s) && s[split] >= 'A' && s[split] <= 'Z' {
		split++
	}
	if split == 0 || split == len(s) {
		return 0, 0, false
	}
	row, ok = RowIndex(s[:split])
	if !ok {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[split:])
	if err != nil || n <= 0 || s[split] == '0' {
		return 0, 0, false
	}
	return row, n, true
}

// UniqueSeats normalizes seat ids and drops blanks and duplicates while
// keeping the first-seen order.
func UniqueSeats(seats []string) []string {
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		s = NormalizeSeatID(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
