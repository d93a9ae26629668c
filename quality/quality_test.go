package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAccount(t *testing.T) {
	assert.Equal(t, CategorySavings, ClassifyAccount([]string{"savings", "goal"}))
	assert.Equal(t, CategoryTravel, ClassifyAccount([]string{"fx"}))
	assert.Equal(t, CategoryStarter, ClassifyAccount([]string{"young", "low-fee"}))
	assert.Equal(t, CategorySalary, ClassifyAccount([]string{"daily"}))
	assert.Equal(t, CategoryOther, ClassifyAccount([]string{"unknown"}))
	assert.Equal(t, CategoryOther, ClassifyAccount(nil))

	// savings wins over salary when both match
	assert.Equal(t, CategorySavings, ClassifyAccount([]string{"salary", "auto"}))

	// case and whitespace are normalized
	assert.Equal(t, CategoryTravel, ClassifyAccount([]string{" Global "}))
}

func TestClassifyCard(t *testing.T) {
	assert.Equal(t, CategoryTravel, ClassifyCard([]string{"mileage"}, nil))
	assert.Equal(t, CategoryStarter, ClassifyCard([]string{"no-fee"}, []string{"online"}))
	assert.Equal(t, CategoryOnline, ClassifyCard(nil, []string{"subscription"}))
	assert.Equal(t, CategoryLifestyle, ClassifyCard(nil, []string{"grocery"}))
	assert.Equal(t, CategoryLifestyle, ClassifyCard([]string{"daily"}, nil))
	assert.Equal(t, CategoryOther, ClassifyCard(nil, nil))
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "저축/금리", LabelFor(CategorySavings))
	assert.Equal(t, "생활소비", LabelFor(CategoryLifestyle))
	assert.Equal(t, "기타", LabelFor("whatever"))
}

func TestSuggest(t *testing.T) {
	thresholds := Thresholds{
		MinRecommended:   20,
		LowCtrPercent:    5,
		HighCtrPercent:   18,
		LowCvrPercent:    3,
		HighCvrPercent:   12,
		MaxAdjustPercent: 20,
	}

	// below the sample floor nothing moves
	assert.Equal(t, Suggestion{Action: ActionHold}, Suggest(19, 50, 50, thresholds))

	// strong performance scales up, floored at 5
	assert.Equal(t, Suggestion{Action: ActionUp, DeltaPercent: 5}, Suggest(20, 18, 12, thresholds))
	assert.Equal(t, Suggestion{Action: ActionUp, DeltaPercent: 9}, Suggest(20, 30, 18, thresholds))

	// the delta never exceeds the cap
	assert.Equal(t, Suggestion{Action: ActionUp, DeltaPercent: 20}, Suggest(20, 90, 60, thresholds))

	// weak CTR or CVR pushes down
	assert.Equal(t, Suggestion{Action: ActionDown, DeltaPercent: -5}, Suggest(20, 5, 10, thresholds))
	assert.Equal(t, Suggestion{Action: ActionDown, DeltaPercent: -5}, Suggest(20, 4, 2, thresholds))

	// middle band holds
	assert.Equal(t, Suggestion{Action: ActionHold}, Suggest(20, 10, 8, thresholds))
}

func TestRatePercent(t *testing.T) {
	assert.Equal(t, 0, RatePercent(5, 0))
	assert.Equal(t, 50, RatePercent(1, 2))
	assert.Equal(t, 33, RatePercent(1, 3))
	assert.Equal(t, 67, RatePercent(2, 3))
}

func TestEvidence(t *testing.T) {
	assert.Equal(t,
		"추천 9건, 클릭 4건(CTR 44%), 고유 클릭 2건(CVR 22%)",
		Evidence(9, 4, 44, 2, 22))
}
