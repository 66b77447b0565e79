package models

import "testing"

func TestEarnedBadges(t *testing.T) {
	cases := []struct {
		days int
		want int
	}{
		{0, 0},
		{6, 0},
		{7, 1},
		{14, 2},
		{100, 5},
		{365, 7},
		{1000, 7},
	}
	for _, tc := range cases {
		if got := len(EarnedBadges(tc.days)); got != tc.want {
			t.Errorf("EarnedBadges(%d) = %d badges, want %d", tc.days, got, tc.want)
		}
	}
}

func TestNextBadge(t *testing.T) {
	if got := NextBadge(0); got == nil || got.RequiredDays != 7 {
		t.Fatalf("NextBadge(0) = %+v, want 7-day badge", got)
	}
	if got := NextBadge(7); got == nil || got.RequiredDays != 14 {
		t.Fatalf("NextBadge(7) = %+v, want 14-day badge", got)
	}
	if got := NextBadge(365); got != nil {
		t.Fatalf("NextBadge(365) = %+v, want nil", got)
	}
}

func TestProgressToNext(t *testing.T) {
	cases := []struct {
		days int
		want int
	}{
		{0, 0},
		{3, 42}, // 3 of 7
		{7, 0},  // fresh window toward 14
		{21, 43},
		{365, 100},
		{999, 100},
	}
	for _, tc := range cases {
		if got := ProgressToNext(tc.days); got != tc.want {
			t.Errorf("ProgressToNext(%d) = %d, want %d", tc.days, got, tc.want)
		}
	}
}
