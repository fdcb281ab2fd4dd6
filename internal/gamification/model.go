package gamification

import (
	"encoding/json"
	"strings"
)

// Mission tags route scoring events to achievement triggers.
type Mission string

const (
	MissionQuiz  Mission = "quiz"
	MissionTrash Mission = "trash"
	MissionDaily Mission = "daily"
)

// Event tags describe what happened inside a mission.
type Event string

const (
	EventProgress  Event = "progress"
	EventCompleted Event = "completed"
	EventClaimed   Event = "claimed"
)

// ScoreMeta tags a scoring event with its mission and event.
type ScoreMeta struct {
	Mission Mission `json:"mission"`
	Event   Event   `json:"event"`
}

// Progress is the per-profile gamification record.
type Progress struct {
	Points       int
	Badges       Set
	GamesPlayed  int
	Achievements Set
	LastPlayDate string // YYYY-MM-DD, empty when the profile never played
	Streak       int
}

// NewProgress returns the zeroed defaults used on first read and after a reset.
func NewProgress() Progress {
	return Progress{Badges: NewSet(), Achievements: NewSet()}
}

// Clone returns a deep copy so derived values never share set storage.
func (p Progress) Clone() Progress {
	out := p
	out.Badges = p.Badges.Clone()
	out.Achievements = p.Achievements.Clone()
	return out
}

// Equal compares two records field by field.
func (p Progress) Equal(other Progress) bool {
	return p.Points == other.Points &&
		p.GamesPlayed == other.GamesPlayed &&
		p.LastPlayDate == other.LastPlayDate &&
		p.Streak == other.Streak &&
		p.Badges.Equal(other.Badges) &&
		p.Achievements.Equal(other.Achievements)
}

type progressWire struct {
	Points       int     `json:"points"`
	Badges       Set     `json:"badges"`
	GamesPlayed  int     `json:"gamesPlayed"`
	Achievements Set     `json:"achievements"`
	LastPlayDate *string `json:"lastPlayDate"`
	Streak       int     `json:"streak"`
}

// MarshalJSON writes the persisted record shape; an unset play date is null.
func (p Progress) MarshalJSON() ([]byte, error) {
	wire := progressWire{
		Points:       p.Points,
		Badges:       p.Badges,
		GamesPlayed:  p.GamesPlayed,
		Achievements: p.Achievements,
		Streak:       p.Streak,
	}
	if p.LastPlayDate != "" {
		date := p.LastPlayDate
		wire.LastPlayDate = &date
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the persisted record and sanitises it.
func (p *Progress) UnmarshalJSON(data []byte) error {
	var wire progressWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := Progress{
		Points:       wire.Points,
		Badges:       wire.Badges,
		GamesPlayed:  wire.GamesPlayed,
		Achievements: wire.Achievements,
		Streak:       wire.Streak,
	}
	if wire.LastPlayDate != nil {
		out.LastPlayDate = strings.TrimSpace(*wire.LastPlayDate)
	}
	*p = Sanitize(out)
	return nil
}

// Sanitize clamps counters that a misbehaving writer could have pushed negative and drops
// an unparsable play date.
func Sanitize(p Progress) Progress {
	if p.Points < 0 {
		p.Points = 0
	}
	if p.GamesPlayed < 0 {
		p.GamesPlayed = 0
	}
	if p.Streak < 0 {
		p.Streak = 0
	}
	if p.LastPlayDate != "" {
		if _, err := ParseDay(p.LastPlayDate); err != nil {
			p.LastPlayDate = ""
		}
	}
	return p
}

// BadgeRule unlocks a badge once cumulative points reach Threshold.
type BadgeRule struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Threshold int    `json:"threshold"`
}

// Achievement is a one-off unlock tied to a trigger.
type Achievement struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Achievement identifiers. Clients persist these, keep them stable.
const (
	AchievementFirstQuiz  = "first-quiz"
	AchievementFirstTrash = "first-trash"
	AchievementFirstDaily = "first-daily"
	AchievementStreak3    = "streak-3"
	AchievementStreak7    = "streak-7"
)

var badgeRules = []BadgeRule{
	{ID: "seedling", Label: "Seedling", Threshold: 25},
	{ID: "streamkeeper", Label: "Streamkeeper", Threshold: 75},
	{ID: "river-guardian", Label: "River Guardian", Threshold: 150},
	{ID: "ghat-champion", Label: "Ghat Champion", Threshold: 300},
	{ID: "ganga-legend", Label: "Ganga Legend", Threshold: 600},
}

var achievements = []Achievement{
	{ID: AchievementFirstQuiz, Label: "Quiz Explorer"},
	{ID: AchievementFirstTrash, Label: "Clean Ghats Helper"},
	{ID: AchievementFirstDaily, Label: "Daily Devotee"},
	{ID: AchievementStreak3, Label: "Three Day Flow"},
	{ID: AchievementStreak7, Label: "Week Long Current"},
}

// Badges returns the badge ladder ordered by ascending threshold.
func Badges() []BadgeRule {
	out := make([]BadgeRule, len(badgeRules))
	copy(out, badgeRules)
	return out
}

// Achievements returns the achievement catalog.
func Achievements() []Achievement {
	out := make([]Achievement, len(achievements))
	copy(out, achievements)
	return out
}
