package savings

import "kosh/internal/models"

const NeutralScore = 50

// HealthScore is the rounded percentage of on-time contributions across
// every campaign the user has ever run. With no history it is neutral.
func HealthScore(campaigns []models.Campaign) int {
	onTime, due := 0, 0
	for _, c := range campaigns {
		onTime += c.OnTimeContributions
		due += c.TotalContributionsDue
	}
	if due <= 0 {
		return NeutralScore
	}
	if onTime < 0 {
		onTime = 0
	}
	// round half up: (100*on/due + 0.5) in integers
	score := (200*onTime + due) / (2 * due)
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
