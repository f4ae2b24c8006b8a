package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/grubsight/grubsight/internal/core/dataset"
)

func txAt(id string, ts time.Time) dataset.Transaction {
	return dataset.Transaction{OrderID: id, MerchantID: "m1", OrderedAt: ts}
}

func TestResolveWindow_Inclusivity(t *testing.T) {
	latest := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	win, err := ResolveWindow([]dataset.Transaction{txAt("t1", latest)}, 7)
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), win.Start)
	require.Equal(t, latest, win.End)

	require.True(t, win.Contains(time.Date(2024, 1, 4, 0, 0, 1, 0, time.UTC)))
	require.True(t, win.Contains(win.Start))
	require.True(t, win.Contains(win.End))
	require.False(t, win.Contains(time.Date(2024, 1, 3, 23, 59, 59, 0, time.UTC)))
	require.False(t, win.Contains(latest.Add(time.Second)))
}

func TestResolveWindow_KeepsZoneOfLatest(t *testing.T) {
	loc := time.FixedZone("MYT", 8*60*60)
	latest := time.Date(2024, 3, 15, 22, 30, 0, 0, loc)
	win, err := ResolveWindow([]dataset.Transaction{
		txAt("t1", time.Date(2024, 3, 1, 9, 0, 0, 0, loc)),
		txAt("t2", latest),
	}, 30)
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, loc), win.Start)
	require.Equal(t, latest, win.End)
}

func TestResolveWindow_SingleDayCoversFullLatestDay(t *testing.T) {
	latest := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	win, err := ResolveWindow([]dataset.Transaction{txAt("t1", latest)}, 1)
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), win.Start)
	require.True(t, win.Contains(time.Date(2024, 1, 10, 0, 0, 1, 0, time.UTC)))
}

func TestResolveWindow_NoTimestampsIsNoData(t *testing.T) {
	_, err := ResolveWindow(nil, 7)
	require.ErrorIs(t, err, ErrNoData)

	_, err = ResolveWindow([]dataset.Transaction{}, 7)
	require.ErrorIs(t, err, ErrNoData)
}

func TestResolveWindow_RejectsNonPositiveDays(t *testing.T) {
	latest := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	_, err := ResolveWindow([]dataset.Transaction{txAt("t1", latest)}, 0)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoData)
}

func TestPeriodDays(t *testing.T) {
	tests := []struct {
		name     string
		period   string
		fallback int
		want     int
	}{
		{name: "seven", period: PeriodLast7Days, fallback: 30, want: 7},
		{name: "thirty", period: PeriodLast30Days, fallback: 90, want: 30},
		{name: "ninety", period: PeriodLast90Days, fallback: 30, want: 90},
		{name: "unknown uses fallback", period: "last_year", fallback: 30, want: 30},
		{name: "empty uses fallback", period: "", fallback: 90, want: 90},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, PeriodDays(tc.period, tc.fallback))
		})
	}
}
