package pubsub

// Topic names for change notifications emitted by the gamification stores.
const (
	TopicProgressEvents    = "progress.changed"
	TopicLeaderboardEvents = "leaderboard.changed"
	TopicDailyRewardEvents = "daily_reward.claimed"
)
