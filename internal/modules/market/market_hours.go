package market

import (
	"time"

	"github.com/rs/zerolog"
)

// MarketHours reports whether the Taiwan stock exchange is trading.
// The continuous session runs 09:00-13:25 Taipei time on weekdays,
// excluding exchange holidays.
type MarketHours struct {
	loc      *time.Location
	holidays map[string]struct{}
	log      zerolog.Logger
}

// taiwanHolidays2025 lists TWSE closures for 2025: New Year, the Lunar
// New Year block, Peace Memorial Day, Children's Day / Tomb Sweeping,
// Labour Day, Dragon Boat Festival, Mid-Autumn Festival and National
// Day, including make-up holidays.
var taiwanHolidays2025 = []string{
	"2025-01-01",
	"2025-01-28", "2025-01-29", "2025-01-30", "2025-01-31",
	"2025-02-01", "2025-02-02", "2025-02-03",
	"2025-02-28",
	"2025-04-03", "2025-04-04", "2025-04-05", "2025-04-07",
	"2025-05-01",
	"2025-05-31", "2025-06-02",
	"2025-10-06", "2025-10-07",
	"2025-10-10", "2025-10-11",
}

// NewMarketHours creates the Taiwan market calendar
func NewMarketHours(log zerolog.Logger) *MarketHours {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		// CST has no DST; a fixed offset is an exact fallback.
		loc = time.FixedZone("Asia/Taipei", 8*60*60)
	}

	holidays := make(map[string]struct{}, len(taiwanHolidays2025))
	for _, day := range taiwanHolidays2025 {
		holidays[day] = struct{}{}
	}

	return &MarketHours{
		loc:      loc,
		holidays: holidays,
		log:      log.With().Str("component", "market_hours").Logger(),
	}
}

// IsOpen reports whether the market is trading at the given instant,
// or now when no instant is given
func (m *MarketHours) IsOpen(at ...time.Time) bool {
	t := time.Now()
	if len(at) > 0 {
		t = at[0]
	}
	local := t.In(m.loc)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	if m.IsHoliday(local) {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	const open = 9 * 60
	const close = 13*60 + 25

	return minutes >= open && minutes <= close
}

// IsHoliday reports whether the given instant falls on an exchange holiday
func (m *MarketHours) IsHoliday(t time.Time) bool {
	_, ok := m.holidays[t.In(m.loc).Format("2006-01-02")]
	return ok
}

// NextOpen returns the next session open strictly after the given
// instant's trading day. It returns the zero time when no session is
// found within 30 days.
func (m *MarketHours) NextOpen(from ...time.Time) time.Time {
	t := time.Now()
	if len(from) > 0 {
		t = from[0]
	}
	local := t.In(m.loc)

	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.loc).AddDate(0, 0, 1)
	for i := 0; i < 30; i++ {
		candidate := day.AddDate(0, 0, i)
		if candidate.Weekday() == time.Saturday || candidate.Weekday() == time.Sunday {
			continue
		}
		if m.IsHoliday(candidate) {
			continue
		}
		return time.Date(candidate.Year(), candidate.Month(), candidate.Day(), 9, 0, 0, 0, m.loc)
	}

	m.log.Warn().Time("from", t).Msg("No market open found within 30 days")
	return time.Time{}
}
