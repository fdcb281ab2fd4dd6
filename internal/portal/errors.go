package portal

import "errors"

var (
	// ErrInvalidScore rejects client-reported scoring events outside the mini-game missions.
	ErrInvalidScore = errors.New("score must be a non-negative quiz or trash event")
	// ErrReportLimit rejects client-reported points beyond the profile's daily allowance.
	ErrReportLimit = errors.New("daily allowance for reported points is used up")
	// ErrNameRequired keeps anonymous profiles off the shared leaderboard.
	ErrNameRequired = errors.New("set a player name before joining the leaderboard")
)

const (
	// MaxReportedBasePoints caps a single client-reported award.
	MaxReportedBasePoints = 100
	// MaxReportedBasePointsPerDay caps the base points a profile may self-report per
	// calendar day. Server-run quiz and trash sessions do not count against it.
	MaxReportedBasePointsPerDay = 100
)
