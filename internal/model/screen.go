package model

// Screen is an auditorium with a fixed rectangular seat grid. The first
// PremiumRows rows are sold at the premium price.
type Screen struct {
	ID                 uint64 // screens.id
	Name               string // screens.name
	ScreenType         string // screens.screen_type (2D, 3D, IMAX)
	RowsCount          int    // screens.rows_count
	SeatsPerRow        int    // screens.seats_per_row
	PriceStandardMinor int64  // screens.price_standard_minor
	PricePremiumMinor  int64  // screens.price_premium_minor
}

// PremiumRows is the number of front rows sold at the premium price.
const PremiumRows = 3

// Capacity is the number of seats in the grid.
func (s Screen) Capacity() int { return s.RowsCount * s.SeatsPerRow }

// Contains reports whether a seat id lies inside the screen grid.
func (s Screen) Contains(seatID string) bool {
	row, n, ok := ParseSeatID(seatID)
	if !ok {
		return false
	}
	return row >= 0 && row < s.RowsCount && n <= s.SeatsPerRow
}

// IsPremium reports whether the seat sits in one of the premium rows.
func (s Screen) IsPremium(seatID string) bool {
	row, _, ok := ParseSeatID(seatID)
	return ok && row < PremiumRows
}

// LayoutRow is one row of a screen layout.
type LayoutRow struct {
	Label   string   `json:"row"`
	Premium bool     `json:"premium"`
	Seats   []string `json:"seats"`
}

// Layout returns the seat grid row by row.
func (s Screen) Layout() []LayoutRow {
	rows := make([]LayoutRow, 0, s.RowsCount)
	for r := 0; r < s.RowsCount; r++ {
		seats := make([]string, 0, s.SeatsPerRow)
		for n := 1; n <= s.SeatsPerRow; n++ {
			seats = append(seats, SeatID(r, n))
		}
		rows = append(rows, LayoutRow{Label: RowLabel(r), Premium: r < PremiumRows, Seats: seats})
	}
	return rows
}
