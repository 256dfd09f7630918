package model

// Showtime is a scheduled screening of a movie on a screen. Prices may
// override the screen defaults; capacity is derived from the screen.
//
// Fields:
//  ShowDate – "YYYY-MM-DD" as stored in showtimes.show_date.
//  ShowTime – "HH:MM" as stored in showtimes.show_time.
//  Status   – active, cancelled or completed.
type Showtime struct {
	ID                 uint64 // showtimes.id
	MovieID            uint64 // showtimes.movie_id
	ScreenID           uint64 // showtimes.screen_id
	ShowDate           string // showtimes.show_date
	ShowTime           string // showtimes.show_time
	PriceStandardMinor int64  // showtimes.price_standard_minor
	PricePremiumMinor  int64  // showtimes.price_premium_minor
	Status             string // showtimes.status
	MovieTitle         string // movies.title
	Screen             Screen // joined screens row
}

// Capacity is the number of seats on the showtime's screen.
func (s Showtime) Capacity() int { return s.Screen.Capacity() }
