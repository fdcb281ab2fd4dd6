package gamification

import "math"

const (
	MultiplierStep = 0.1
	MultiplierCap  = 1.5
)

// MultiplierForStreak returns min(1 + streak*0.1, 1.5). Negative streaks count as zero.
func MultiplierForStreak(streak int) float64 {
	if streak < 0 {
		streak = 0
	}
	return math.Min(1+float64(streak)*MultiplierStep, MultiplierCap)
}

// PointsFor returns the streak-adjusted delta for a base award. Negative bases score nothing.
func PointsFor(basePoints, streak int) int {
	if basePoints <= 0 {
		return 0
	}
	return int(math.Round(float64(basePoints) * MultiplierForStreak(streak)))
}

// AddPoints applies one scoring event: the multiplied delta, the games-played counter and
// the mission achievement the event's tags map to. p is left untouched.
func AddPoints(p Progress, basePoints int, meta ScoreMeta) Progress {
	out := p.Clone()
	out.Points += PointsFor(basePoints, p.Streak)
	out.GamesPlayed++
	if id, ok := missionAchievement(meta); ok {
		out.Achievements = out.Achievements.With(id)
	}
	return out
}

func missionAchievement(meta ScoreMeta) (string, bool) {
	switch {
	case meta.Mission == MissionQuiz && meta.Event == EventCompleted:
		return AchievementFirstQuiz, true
	case meta.Mission == MissionTrash && meta.Event == EventProgress:
		return AchievementFirstTrash, true
	case meta.Mission == MissionDaily && meta.Event == EventClaimed:
		return AchievementFirstDaily, true
	default:
		return "", false
	}
}

// UpdateStreak moves the play date to today and advances, keeps or restarts the streak
// based on the whole-day gap. An unset or unreadable previous date starts a new streak.
func UpdateStreak(p Progress, today string) Progress {
	out := p.Clone()
	out.LastPlayDate = today

	if p.LastPlayDate == "" {
		out.Streak = 1
		return out
	}

	gap, err := DaysBetween(p.LastPlayDate, today)
	if err != nil {
		out.Streak = 1
		return out
	}

	switch gap {
	case 0:
	case 1:
		out.Streak = p.Streak + 1
	default:
		out.Streak = 1
	}
	return out
}

// ApplyStreakAchievements grants streak-3 and streak-7 on the exact day the streak hits them.
func ApplyStreakAchievements(p Progress) Progress {
	switch p.Streak {
	case 3:
		return withAchievement(p, AchievementStreak3)
	case 7:
		return withAchievement(p, AchievementStreak7)
	default:
		return p
	}
}

func withAchievement(p Progress, id string) Progress {
	if p.Achievements.Has(id) {
		return p
	}
	out := p.Clone()
	out.Achievements = out.Achievements.With(id)
	return out
}

// ApplyBadgeUnlocks adds every badge whose threshold the points have reached. Badges are
// never removed here.
func ApplyBadgeUnlocks(p Progress) Progress {
	out := p
	cloned := false
	for _, rule := range badgeRules {
		if rule.Threshold > p.Points || out.Badges.Has(rule.ID) {
			continue
		}
		if !cloned {
			out = p.Clone()
			cloned = true
		}
		out.Badges = out.Badges.With(rule.ID)
	}
	return out
}

// Unlocks summarises what changed between two snapshots of the same profile.
type Unlocks struct {
	Delta           int      `json:"delta"`
	NewBadges       []string `json:"newBadges"`
	NewAchievements []string `json:"newAchievements"`
}

// Diff reports the point delta and the ids present in after but not in before.
func Diff(before, after Progress) Unlocks {
	out := Unlocks{
		Delta:           after.Points - before.Points,
		NewBadges:       []string{},
		NewAchievements: []string{},
	}
	for _, id := range after.Badges.Items() {
		if !before.Badges.Has(id) {
			out.NewBadges = append(out.NewBadges, id)
		}
	}
	for _, id := range after.Achievements.Items() {
		if !before.Achievements.Has(id) {
			out.NewAchievements = append(out.NewAchievements, id)
		}
	}
	return out
}
