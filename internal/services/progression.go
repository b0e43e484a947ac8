package services

import (
	"time"

	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/money"
)

const (
	XPPerLevel    = 1000
	LevelsPerRank = 5

	AchievementFirstTransaction = "First Transaction"
)

// Ranks is ordered from lowest to highest; the last rank absorbs every level above it.
var Ranks = []string{"Bronze", "Silver", "Gold", "Platinum", "Diamond"}

// LevelForXP returns floor(xp/1000)+1.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// RankForLevel bands levels five at a time, clamped at the top rank.
func RankForLevel(level int) string {
	idx := (level - 1) / LevelsPerRank
	if idx < 0 {
		idx = 0
	}
	if idx > len(Ranks)-1 {
		idx = len(Ranks) - 1
	}
	return Ranks[idx]
}

// NewProfile returns the starting profile for a user.
func NewProfile(userID string, now time.Time) models.Profile {
	return models.Profile{
		UserID:         userID,
		Level:          1,
		Rank:           Ranks[0],
		Achievements:   []string{},
		LastActivityAt: now,
	}
}

// ApplyTransaction advances a profile for one completed transaction. XP grows by
// the whole currency units of amountCents; non-positive amounts leave the
// profile untouched.
func ApplyTransaction(p models.Profile, amountCents int64, now time.Time) models.Profile {
	if amountCents <= 0 {
		return p
	}
	prevRank := p.Rank
	p.XP += money.WholeUnits(amountCents)
	p.Level = LevelForXP(p.XP)
	p.Rank = RankForLevel(p.Level)
	p.TransactionCount++
	p.LastActivityAt = now

	achievements := make([]string, len(p.Achievements), len(p.Achievements)+2)
	copy(achievements, p.Achievements)
	if p.TransactionCount == 1 {
		achievements = appendOnce(achievements, AchievementFirstTransaction)
	}
	if prevRank != "" && p.Rank != prevRank {
		achievements = appendOnce(achievements, "Reached "+p.Rank)
	}
	p.Achievements = achievements
	return p
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
