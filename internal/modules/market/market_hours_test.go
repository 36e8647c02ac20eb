package market

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taipei(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	return loc
}

func TestMarketHours_IsOpen(t *testing.T) {
	hours := NewMarketHours(zerolog.Nop())
	loc := taipei(t)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{
			name: "weekday mid-session",
			at:   time.Date(2025, 3, 12, 10, 30, 0, 0, loc), // Wednesday
			want: true,
		},
		{
			name: "session open boundary",
			at:   time.Date(2025, 3, 12, 9, 0, 0, 0, loc),
			want: true,
		},
		{
			name: "session close boundary",
			at:   time.Date(2025, 3, 12, 13, 25, 0, 0, loc),
			want: true,
		},
		{
			name: "just after close",
			at:   time.Date(2025, 3, 12, 13, 26, 0, 0, loc),
			want: false,
		},
		{
			name: "before open",
			at:   time.Date(2025, 3, 12, 8, 59, 0, 0, loc),
			want: false,
		},
		{
			name: "saturday",
			at:   time.Date(2025, 3, 15, 10, 0, 0, 0, loc),
			want: false,
		},
		{
			name: "sunday",
			at:   time.Date(2025, 3, 16, 10, 0, 0, 0, loc),
			want: false,
		},
		{
			name: "lunar new year holiday",
			at:   time.Date(2025, 1, 29, 10, 0, 0, 0, loc), // Wednesday, holiday
			want: false,
		},
		{
			name: "national day holiday",
			at:   time.Date(2025, 10, 10, 10, 0, 0, 0, loc), // Friday, holiday
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hours.IsOpen(tt.at))
		})
	}
}

func TestMarketHours_IsOpen_ConvertsTimezone(t *testing.T) {
	hours := NewMarketHours(zerolog.Nop())

	// 02:30 UTC Wednesday is 10:30 Taipei, mid-session.
	assert.True(t, hours.IsOpen(time.Date(2025, 3, 12, 2, 30, 0, 0, time.UTC)))
	// 06:00 UTC is 14:00 Taipei, after close.
	assert.False(t, hours.IsOpen(time.Date(2025, 3, 12, 6, 0, 0, 0, time.UTC)))
}

func TestMarketHours_NextOpen(t *testing.T) {
	hours := NewMarketHours(zerolog.Nop())
	loc := taipei(t)

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "weekday rolls to next day",
			from: time.Date(2025, 3, 12, 10, 0, 0, 0, loc), // Wednesday
			want: time.Date(2025, 3, 13, 9, 0, 0, 0, loc),
		},
		{
			name: "friday skips the weekend",
			from: time.Date(2025, 3, 14, 14, 0, 0, 0, loc),
			want: time.Date(2025, 3, 17, 9, 0, 0, 0, loc),
		},
		{
			name: "lunar new year block skipped",
			from: time.Date(2025, 1, 27, 14, 0, 0, 0, loc), // Monday before the block
			want: time.Date(2025, 2, 4, 9, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hours.NextOpen(tt.from)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestMarketHours_IsHoliday(t *testing.T) {
	hours := NewMarketHours(zerolog.Nop())
	loc := taipei(t)

	assert.True(t, hours.IsHoliday(time.Date(2025, 1, 1, 12, 0, 0, 0, loc)))
	assert.False(t, hours.IsHoliday(time.Date(2025, 3, 12, 12, 0, 0, 0, loc)))
}
