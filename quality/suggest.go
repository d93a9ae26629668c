package quality

import (
	"fmt"
	"math"
)

// Suggested actions for a category's scoring weights.
const (
	ActionUp   = "UP"
	ActionDown = "DOWN"
	ActionHold = "HOLD"
)

// Thresholds are the CTR/CVR bands of the tuning rules. All values are whole
// percents except the sample-size floor.
type Thresholds struct {
	MinRecommended   int
	LowCtrPercent    int
	HighCtrPercent   int
	LowCvrPercent    int
	HighCvrPercent   int
	MaxAdjustPercent int
}

// Suggestion is the tuning verdict for one category.
type Suggestion struct {
	Action       string
	DeltaPercent int
}

// Suggest evaluates a category's metrics against the thresholds. Small
// samples always hold; clear over/under-performance scales the delta with
// the distance from the band, capped at MaxAdjustPercent.
func Suggest(recommended, ctrPercent, cvrPercent int, thresholds Thresholds) Suggestion {
	if recommended < thresholds.MinRecommended {
		return Suggestion{Action: ActionHold}
	}

	if ctrPercent >= thresholds.HighCtrPercent && cvrPercent >= thresholds.HighCvrPercent {
		gap := (ctrPercent - thresholds.HighCtrPercent) + (cvrPercent - thresholds.HighCvrPercent)
		return Suggestion{Action: ActionUp, DeltaPercent: boundedDelta(gap, thresholds.MaxAdjustPercent)}
	}

	if ctrPercent <= thresholds.LowCtrPercent || cvrPercent <= thresholds.LowCvrPercent {
		gap := max(0, thresholds.LowCtrPercent-ctrPercent) + max(0, thresholds.LowCvrPercent-cvrPercent)
		return Suggestion{Action: ActionDown, DeltaPercent: -boundedDelta(gap, thresholds.MaxAdjustPercent)}
	}

	return Suggestion{Action: ActionHold}
}

func boundedDelta(gap, maxAdjust int) int {
	return min(maxAdjust, max(5, gap/2))
}

// RatePercent computes round(numerator*100/denominator), zero on an empty
// denominator.
func RatePercent(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(float64(numerator) * 100.0 / float64(denominator)))
}

// Evidence renders the metric line stored next to a suggestion.
func Evidence(recommended, redirects, ctrPercent, uniqueClicked, cvrPercent int) string {
	return fmt.Sprintf("추천 %d건, 클릭 %d건(CTR %d%%), 고유 클릭 %d건(CVR %d%%)",
		recommended, redirects, ctrPercent, uniqueClicked, cvrPercent)
}
