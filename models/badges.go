package models

// Badge is a milestone earned once a streak's longest run reaches the
// required day count. Earned badges never expire since longest_streak
// never decreases.
type Badge struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Emoji        string `json:"emoji"`
	Description  string `json:"description"`
	RequiredDays int    `json:"required_days"`
	Color        string `json:"color"`
}

// Badges lists all milestones in ascending order of required days.
var Badges = []Badge{
	{ID: "week", Name: "Week Warrior", Emoji: "🥉", Description: "7-day streak", RequiredDays: 7, Color: "#cd7f32"},
	{ID: "fortnight", Name: "Two Weeks Strong", Emoji: "⚡", Description: "14-day streak", RequiredDays: 14, Color: "#f97316"},
	{ID: "month", Name: "Month Master", Emoji: "🥈", Description: "30-day streak", RequiredDays: 30, Color: "#94a3b8"},
	{ID: "sixty", Name: "Ironclad", Emoji: "💎", Description: "60-day streak", RequiredDays: 60, Color: "#06b6d4"},
	{ID: "hundred", Name: "Century Club", Emoji: "🥇", Description: "100-day streak", RequiredDays: 100, Color: "#f59e0b"},
	{ID: "halfyear", Name: "Legend", Emoji: "👑", Description: "180-day streak", RequiredDays: 180, Color: "#a855f7"},
	{ID: "year", Name: "Mythic", Emoji: "🌟", Description: "365-day streak", RequiredDays: 365, Color: "#ec4899"},
}

// EarnedBadges returns every badge unlocked at the given longest streak.
func EarnedBadges(longestStreak int) []Badge {
	earned := []Badge{}
	for _, b := range Badges {
		if longestStreak >= b.RequiredDays {
			earned = append(earned, b)
		}
	}
	return earned
}

// NextBadge returns the first badge not yet unlocked, or nil when all
// badges are earned.
func NextBadge(longestStreak int) *Badge {
	for i := range Badges {
		if longestStreak < Badges[i].RequiredDays {
			return &Badges[i]
		}
	}
	return nil
}

// ProgressToNext returns percent progress from the previous milestone
// toward the next one, 100 when everything is earned.
func ProgressToNext(longestStreak int) int {
	next := NextBadge(longestStreak)
	if next == nil {
		return 100
	}
	from := 0
	for _, b := range Badges {
		if b.RequiredDays <= longestStreak {
			from = b.RequiredDays
		}
	}
	return (longestStreak - from) * 100 / (next.RequiredDays - from)
}
