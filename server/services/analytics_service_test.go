package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benepick/server/types"
)

func TestGetRunAnalyticsAggregatesClicks(t *testing.T) {
	db := newRecommendationTestDB(t)
	recommendations := newRecommendationService(t, db)
	analytics := NewAnalyticsService(db)

	simulated, err := recommendations.Simulate(simulateRequest())
	require.NoError(t, err)

	clicked := simulated.Accounts[0]
	for i := 0; i < 2; i++ {
		_, err := recommendations.Redirect(simulated.RunID, types.RecommendationRedirectRequest{
			ProductType: "ACCOUNT",
			ProductID:   clicked.ProductID,
		}, "agent", "10.0.0.1", "")
		require.NoError(t, err)
	}
	_, err = recommendations.Redirect(simulated.RunID, types.RecommendationRedirectRequest{
		ProductType: "CARD",
		ProductID:   simulated.Cards[0].ProductID,
	}, "agent", "10.0.0.1", "")
	require.NoError(t, err)

	report, err := analytics.GetRunAnalytics(simulated.RunID)
	require.NoError(t, err)

	assert.Equal(t, simulated.RunID, report.RunID)
	assert.Equal(t, 6, report.TotalRecommendationItems)
	assert.Equal(t, 3, report.TotalRedirects)
	assert.Equal(t, 2, report.UniqueClickedProducts)
	assert.Equal(t, 33, report.UniqueClickRatePercent) // round(2*100/6)

	require.NotEmpty(t, report.TopClickedProducts)
	top := report.TopClickedProducts[0]
	assert.Equal(t, clicked.ProductID, top.ProductID)
	assert.Equal(t, 2, top.ClickCount)
	require.NotNil(t, top.LastClickedAt)

	require.NotEmpty(t, report.CategoryStats)
	for i := 1; i < len(report.CategoryStats); i++ {
		assert.GreaterOrEqual(t,
			report.CategoryStats[i-1].TotalRedirects,
			report.CategoryStats[i].TotalRedirects)
	}
	total := 0
	for _, stat := range report.CategoryStats {
		total += stat.RecommendedProducts
	}
	assert.Equal(t, 6, total)
}

func TestGetRunAnalyticsNoClicks(t *testing.T) {
	db := newRecommendationTestDB(t)
	recommendations := newRecommendationService(t, db)
	analytics := NewAnalyticsService(db)

	simulated, err := recommendations.Simulate(simulateRequest())
	require.NoError(t, err)

	report, err := analytics.GetRunAnalytics(simulated.RunID)
	require.NoError(t, err)
	assert.Zero(t, report.TotalRedirects)
	assert.Zero(t, report.UniqueClickedProducts)
	assert.Empty(t, report.TopClickedProducts)
	for _, stat := range report.CategoryStats {
		assert.Zero(t, stat.TotalRedirects)
		assert.Zero(t, stat.ClickRatePercent)
	}
}

func TestGetRunAnalyticsNotFound(t *testing.T) {
	db := newRecommendationTestDB(t)
	analytics := NewAnalyticsService(db)

	_, err := analytics.GetRunAnalytics("00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, statusCodeOf(t, err))
}
