package types

import (
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func TestDateKeyInTimeZone(t *testing.T) {
	bue := mustLoad(t, "America/Argentina/Buenos_Aires")

	tests := []struct {
		name    string
		instant time.Time
		loc     *time.Location
		want    string
	}{
		{
			name:    "midday maps to same day",
			instant: time.Date(2024, time.June, 15, 15, 0, 0, 0, time.UTC),
			loc:     bue,
			want:    "2024-06-15",
		},
		{
			name:    "early UTC morning is still previous civil day in Buenos Aires",
			instant: time.Date(2024, time.June, 15, 2, 30, 0, 0, time.UTC),
			loc:     bue,
			want:    "2024-06-14",
		},
		{
			name:    "local midnight boundary",
			instant: time.Date(2024, time.June, 15, 3, 0, 0, 0, time.UTC),
			loc:     bue,
			want:    "2024-06-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateKeyInTimeZone(tt.instant, tt.loc); got != tt.want {
				t.Errorf("DateKeyInTimeZone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStartOfLocalDay(t *testing.T) {
	bue := mustLoad(t, "America/Argentina/Buenos_Aires")

	got, err := StartOfLocalDay("2024-06-15", bue)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, time.June, 15, 0, 0, 0, 0, bue)
	if !got.Equal(want) {
		t.Errorf("StartOfLocalDay() = %v, want %v", got, want)
	}

	// round trip with DateKeyInTimeZone
	if key := DateKeyInTimeZone(got, bue); key != "2024-06-15" {
		t.Errorf("round trip date key = %v, want 2024-06-15", key)
	}

	if _, err := StartOfLocalDay("15/06/2024", bue); err == nil {
		t.Error("expected error for malformed date key")
	}
}

func TestAnchorDateForMonth_ClampsToMonthLength(t *testing.T) {
	bue := mustLoad(t, "America/Argentina/Buenos_Aires")

	// property: for every anchor day 1-31 and every month of a leap and a
	// non-leap year, the anchor lands inside that month, clamped to its
	// last day
	for _, year := range []int{2023, 2024} {
		for month := time.January; month <= time.December; month++ {
			instant := time.Date(year, month, 10, 12, 0, 0, 0, bue)
			lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, bue).Day()

			for anchorDay := 1; anchorDay <= 31; anchorDay++ {
				got := AnchorDateForMonth(instant, anchorDay, bue)

				if got.Month() != month || got.Year() != year {
					t.Fatalf("anchor %d for %d-%02d landed outside month: %v", anchorDay, year, month, got)
				}

				wantDay := anchorDay
				if wantDay > lastDay {
					wantDay = lastDay
				}
				if got.Day() != wantDay {
					t.Errorf("anchor %d for %d-%02d = day %d, want %d", anchorDay, year, month, got.Day(), wantDay)
				}
				if got.Hour() != 0 || got.Minute() != 0 {
					t.Errorf("anchor date is not local midnight: %v", got)
				}
			}
		}
	}
}

func TestAnchorDateForMonth_Examples(t *testing.T) {
	bue := mustLoad(t, "America/Argentina/Buenos_Aires")

	tests := []struct {
		name      string
		instant   time.Time
		anchorDay int
		want      time.Time
	}{
		{
			name:      "day 31 in April clamps to 30",
			instant:   time.Date(2024, time.April, 5, 12, 0, 0, 0, bue),
			anchorDay: 31,
			want:      time.Date(2024, time.April, 30, 0, 0, 0, 0, bue),
		},
		{
			name:      "day 31 in leap February clamps to 29",
			instant:   time.Date(2024, time.February, 1, 12, 0, 0, 0, bue),
			anchorDay: 31,
			want:      time.Date(2024, time.February, 29, 0, 0, 0, 0, bue),
		},
		{
			name:      "day 31 in non-leap February clamps to 28",
			instant:   time.Date(2023, time.February, 1, 12, 0, 0, 0, bue),
			anchorDay: 31,
			want:      time.Date(2023, time.February, 28, 0, 0, 0, 0, bue),
		},
		{
			name:      "day within month is untouched",
			instant:   time.Date(2024, time.June, 20, 12, 0, 0, 0, bue),
			anchorDay: 15,
			want:      time.Date(2024, time.June, 15, 0, 0, 0, 0, bue),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnchorDateForMonth(tt.instant, tt.anchorDay, bue); !got.Equal(tt.want) {
				t.Errorf("AnchorDateForMonth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextAnchorDate_ReclampsEachMonth(t *testing.T) {
	bue := mustLoad(t, "America/Argentina/Buenos_Aires")

	// day-31 subscription: Jan 31 -> Feb 29 (leap) -> Mar 31
	jan := time.Date(2024, time.January, 31, 0, 0, 0, 0, bue)
	feb := NextAnchorDate(jan, 31, bue)
	if want := time.Date(2024, time.February, 29, 0, 0, 0, 0, bue); !feb.Equal(want) {
		t.Errorf("NextAnchorDate(jan) = %v, want %v", feb, want)
	}

	mar := NextAnchorDate(feb, 31, bue)
	if want := time.Date(2024, time.March, 31, 0, 0, 0, 0, bue); !mar.Equal(want) {
		t.Errorf("NextAnchorDate(feb) = %v, want %v", mar, want)
	}
}

func TestAddDaysLocal_DSTImmune(t *testing.T) {
	// Santiago leaves DST in early April: one local day is 25 hours long
	scl := mustLoad(t, "America/Santiago")

	start := time.Date(2024, time.April, 5, 0, 0, 0, 0, scl)
	got := AddDaysLocal(start, 3, scl)
	want := time.Date(2024, time.April, 8, 0, 0, 0, 0, scl)
	if !got.Equal(want) {
		t.Errorf("AddDaysLocal() = %v, want %v", got, want)
	}
}

func TestFullDaysBetweenLocal(t *testing.T) {
	scl := mustLoad(t, "America/Santiago")
	bue := mustLoad(t, "America/Argentina/Buenos_Aires")

	tests := []struct {
		name string
		a    time.Time
		b    time.Time
		loc  *time.Location
		want int
	}{
		{
			name: "plain ten days",
			a:    time.Date(2024, time.June, 1, 10, 0, 0, 0, bue),
			b:    time.Date(2024, time.June, 11, 4, 0, 0, 0, bue),
			loc:  bue,
			want: 10,
		},
		{
			name: "across DST exit still counts civil days",
			a:    time.Date(2024, time.April, 5, 0, 0, 0, 0, scl),
			b:    time.Date(2024, time.April, 8, 0, 0, 0, 0, scl),
			loc:  scl,
			want: 3,
		},
		{
			name: "same day is zero",
			a:    time.Date(2024, time.June, 1, 1, 0, 0, 0, bue),
			b:    time.Date(2024, time.June, 1, 23, 0, 0, 0, bue),
			loc:  bue,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FullDaysBetweenLocal(tt.a, tt.b, tt.loc); got != tt.want {
				t.Errorf("FullDaysBetweenLocal() = %v, want %v", got, tt.want)
			}
		})
	}
}
