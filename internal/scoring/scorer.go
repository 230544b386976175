// Package scoring tracks how often drafts for a topic survive human review.
// Scores live in [0,1] and feed the stats surface, nothing else.
package scoring

// SignalWeight is the score increment per review outcome.
const SignalWeight = 0.02

// Record is the per-topic acceptance state.
type Record struct {
	Topic          string  `json:"topic"`
	Score          float64 `json:"score"`
	TotalReviews   int     `json:"total_reviews"`
	AcceptedDrafts int     `json:"accepted_drafts"`
}

// UpdateScore returns the new acceptance score after a review outcome.
// Rejections degrade the score 2x faster than acceptances raise it.
func UpdateScore(current float64, accepted bool) float64 {
	if accepted {
		return clamp(current + SignalWeight)
	}
	return clamp(current - SignalWeight*2.0)
}

// Apply folds one review outcome into a record.
func Apply(rec Record, accepted bool) Record {
	rec.Score = UpdateScore(rec.Score, accepted)
	rec.TotalReviews++
	if accepted {
		rec.AcceptedDrafts++
	}
	return rec
}

func clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}
