package services

import (
	"testing"
	"time"
)

func TestLevelAndRankMapping(t *testing.T) {
	cases := []struct {
		xp    int64
		level int
		rank  string
	}{
		{0, 1, "Bronze"},
		{999, 1, "Bronze"},
		{1000, 2, "Bronze"},
		{4999, 5, "Bronze"},
		{5000, 6, "Silver"},
		{10000, 11, "Gold"},
		{15000, 16, "Platinum"},
		{20000, 21, "Diamond"},
		{1_000_000, 1001, "Diamond"},
	}
	for _, tc := range cases {
		level := LevelForXP(tc.xp)
		if level != tc.level {
			t.Errorf("LevelForXP(%d) = %d, want %d", tc.xp, level, tc.level)
		}
		if rank := RankForLevel(level); rank != tc.rank {
			t.Errorf("RankForLevel(%d) = %q, want %q", level, rank, tc.rank)
		}
	}
}

func TestApplyTransaction(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewProfile("u1", now.Add(-time.Hour))

	p = ApplyTransaction(p, 1099, now)
	if p.XP != 10 {
		t.Errorf("xp: got %d, want 10 (fractional cents dropped)", p.XP)
	}
	if p.TransactionCount != 1 || !p.LastActivityAt.Equal(now) {
		t.Errorf("counters not refreshed: %+v", p)
	}
	if len(p.Achievements) != 1 || p.Achievements[0] != AchievementFirstTransaction {
		t.Errorf("achievements: got %v", p.Achievements)
	}

	p = ApplyTransaction(p, 499_000, now)
	if p.Level != 6 || p.Rank != "Silver" {
		t.Errorf("after 5000 xp: level %d rank %s", p.Level, p.Rank)
	}
	if p.Achievements[len(p.Achievements)-1] != "Reached Silver" {
		t.Errorf("expected rank achievement, got %v", p.Achievements)
	}
}

func TestApplyTransaction_IgnoresNonPositive(t *testing.T) {
	now := time.Now()
	p := NewProfile("u1", now)
	got := ApplyTransaction(p, 0, now.Add(time.Minute))
	if got.TransactionCount != 0 || got.XP != 0 {
		t.Errorf("zero amount should not change profile: %+v", got)
	}
}
