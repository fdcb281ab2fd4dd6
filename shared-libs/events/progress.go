package events

import "time"

// ProgressChanged is published after a profile's progress record is written or observed to change.
type ProgressChanged struct {
	ProfileID  string    `json:"profileId"`
	Reason     string    `json:"reason"`
	Points     int       `json:"points"`
	Streak     int       `json:"streak"`
	Delta      int       `json:"delta,omitempty"`
	NewBadges  []string  `json:"newBadges,omitempty"`
	External   bool      `json:"external,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// LeaderboardChanged is published whenever the ranked list is rewritten or cleared. Score is
// the stored best for Name, not the submitted value. External changes carry no Name.
type LeaderboardChanged struct {
	Name       string    `json:"name,omitempty"`
	Score      int       `json:"score,omitempty"`
	Cleared    bool      `json:"cleared,omitempty"`
	External   bool      `json:"external,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// DailyRewardClaimed is published after a profile claims its once-per-day reward.
type DailyRewardClaimed struct {
	ProfileID  string    `json:"profileId"`
	ClaimDate  string    `json:"claimDate"`
	Delta      int       `json:"delta"`
	OccurredAt time.Time `json:"occurredAt"`
}
