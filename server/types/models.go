// Package types holds the request and response models of the recommendation
// API.
package types

import "time"

// SimulateRecommendationRequest is the body of POST /api/recommendations/simulate.
type SimulateRecommendationRequest struct {
	Age               *int     `json:"age" binding:"required"`
	Income            *int     `json:"income" binding:"required"`
	MonthlySpend      *int     `json:"monthlySpend" binding:"required"`
	Priority          string   `json:"priority" binding:"required"`
	AccountPriority   string   `json:"accountPriority"`
	CardPriority      string   `json:"cardPriority"`
	SalaryTransfer    string   `json:"salaryTransfer" binding:"required"`
	TravelLevel       string   `json:"travelLevel" binding:"required"`
	Categories        []string `json:"categories" binding:"required"`
	AccountCategories []string `json:"accountCategories"`
	CardCategories    []string `json:"cardCategories"`
}

// RecommendationDetailField is one label/value line of a product detail card.
type RecommendationDetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Link  bool   `json:"link"`
}

// BenefitComponent is one line of a monetary estimate breakdown.
type BenefitComponent struct {
	Key               string `json:"key"`
	Label             string `json:"label"`
	Condition         string `json:"condition"`
	AmountWonPerMonth int    `json:"amountWonPerMonth"`
	Applied           bool   `json:"applied"`
}

// RecommendationItem is one ranked product in a run response.
type RecommendationItem struct {
	Rank                      int                         `json:"rank"`
	ProductType               string                      `json:"productType"`
	ProductID                 string                      `json:"productId"`
	Provider                  string                      `json:"provider"`
	Name                      string                      `json:"name"`
	Summary                   string                      `json:"summary"`
	Meta                      string                      `json:"meta"`
	Score                     int                         `json:"score"`
	Reason                    string                      `json:"reason"`
	MinExpectedMonthlyBenefit int                         `json:"minExpectedMonthlyBenefit"`
	ExpectedMonthlyBenefit    int                         `json:"expectedMonthlyBenefit"`
	MaxExpectedMonthlyBenefit int                         `json:"maxExpectedMonthlyBenefit"`
	EstimateMethod            string                      `json:"estimateMethod"`
	BenefitComponents         []BenefitComponent          `json:"benefitComponents"`
	DetailFields              []RecommendationDetailField `json:"detailFields"`
}

// RecommendationBundle is a composed account+card package.
type RecommendationBundle struct {
	Rank                               int                `json:"rank"`
	Title                              string             `json:"title"`
	AccountProductID                   string             `json:"accountProductId"`
	AccountLabel                       string             `json:"accountLabel"`
	CardProductID                      string             `json:"cardProductId"`
	CardLabel                          string             `json:"cardLabel"`
	MinExtraMonthlyBenefit             int                `json:"minExtraMonthlyBenefit"`
	ExpectedExtraMonthlyBenefit        int                `json:"expectedExtraMonthlyBenefit"`
	MaxExtraMonthlyBenefit             int                `json:"maxExtraMonthlyBenefit"`
	AccountExpectedExtraMonthlyBenefit int                `json:"accountExpectedExtraMonthlyBenefit"`
	CardExpectedExtraMonthlyBenefit    int                `json:"cardExpectedExtraMonthlyBenefit"`
	SynergyExtraMonthlyBenefit         int                `json:"synergyExtraMonthlyBenefit"`
	EstimateMethod                     string             `json:"estimateMethod"`
	BenefitComponents                  []BenefitComponent `json:"benefitComponents"`
	Reason                             string             `json:"reason"`
}

// RecommendationRunResponse is the simulate / getRun response.
type RecommendationRunResponse struct {
	RunID                    string                 `json:"runId"`
	Priority                 string                 `json:"priority"`
	ExpectedNetMonthlyProfit int                    `json:"expectedNetMonthlyProfit"`
	Accounts                 []RecommendationItem   `json:"accounts"`
	Cards                    []RecommendationItem   `json:"cards"`
	Bundles                  []RecommendationBundle `json:"bundles"`
}

// RecommendationRunHistoryItem is one row of the history listing.
type RecommendationRunHistoryItem struct {
	RunID                    string    `json:"runId"`
	Priority                 string    `json:"priority"`
	ExpectedNetMonthlyProfit int       `json:"expectedNetMonthlyProfit"`
	RedirectCount            int       `json:"redirectCount"`
	CreatedAt                time.Time `json:"createdAt"`
}

// RecommendationRedirectRequest is the body of the redirect endpoint.
type RecommendationRedirectRequest struct {
	ProductType string `json:"productType" binding:"required"`
	ProductID   string `json:"productId" binding:"required"`
}

// RecommendationRedirectResponse returns the resolved official URL.
type RecommendationRedirectResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

// RecommendationClickStat is a top-clicked product row in run analytics.
type RecommendationClickStat struct {
	ProductType   string     `json:"productType"`
	ProductID     string     `json:"productId"`
	Provider      string     `json:"provider"`
	Name          string     `json:"name"`
	Rank          int        `json:"rank"`
	ClickCount    int        `json:"clickCount"`
	LastClickedAt *time.Time `json:"lastClickedAt"`
}

// RecommendationCategoryStat is a per-category row in run analytics.
type RecommendationCategoryStat struct {
	CategoryKey           string `json:"categoryKey"`
	CategoryLabel         string `json:"categoryLabel"`
	RecommendedProducts   int    `json:"recommendedProducts"`
	TotalRedirects        int    `json:"totalRedirects"`
	UniqueClickedProducts int    `json:"uniqueClickedProducts"`
	ClickRatePercent      int    `json:"clickRatePercent"`
	ConversionRatePercent int    `json:"conversionRatePercent"`
}

// RecommendationAnalyticsResponse is the per-run analytics payload.
type RecommendationAnalyticsResponse struct {
	RunID                    string                       `json:"runId"`
	TotalRecommendationItems int                          `json:"totalRecommendationItems"`
	TotalRedirects           int                          `json:"totalRedirects"`
	UniqueClickedProducts    int                          `json:"uniqueClickedProducts"`
	UniqueClickRatePercent   int                          `json:"uniqueClickRatePercent"`
	TopClickedProducts       []RecommendationClickStat    `json:"topClickedProducts"`
	CategoryStats            []RecommendationCategoryStat `json:"categoryStats"`
}

// QualityCategoryMetric is a per-category row of a quality report.
type QualityCategoryMetric struct {
	CategoryKey                 string `json:"categoryKey"`
	CategoryLabel               string `json:"categoryLabel"`
	RecommendedProducts         int    `json:"recommendedProducts"`
	TotalRedirects              int    `json:"totalRedirects"`
	UniqueClickedProducts       int    `json:"uniqueClickedProducts"`
	CtrPercent                  int    `json:"ctrPercent"`
	CvrPercent                  int    `json:"cvrPercent"`
	SuggestedAction             string `json:"suggestedAction"`
	SuggestedWeightDeltaPercent int    `json:"suggestedWeightDeltaPercent"`
	Evidence                    string `json:"evidence"`
}

// QualityReportResponse is the quality latest / recompute payload.
type QualityReportResponse struct {
	SnapshotID               string                  `json:"snapshotId"`
	TriggerSource            string                  `json:"triggerSource"`
	GeneratedAt              *time.Time              `json:"generatedAt"`
	WindowStartAt            *time.Time              `json:"windowStartAt"`
	WindowEndAt              *time.Time              `json:"windowEndAt"`
	TotalRuns                int                     `json:"totalRuns"`
	TotalRecommendationItems int                     `json:"totalRecommendationItems"`
	TotalRedirects           int                     `json:"totalRedirects"`
	UniqueClickedProducts    int                     `json:"uniqueClickedProducts"`
	OverallCtrPercent        int                     `json:"overallCtrPercent"`
	OverallCvrPercent        int                     `json:"overallCvrPercent"`
	Notes                    string                  `json:"notes"`
	Categories               []QualityCategoryMetric `json:"categories"`
}

// CatalogSummaryResponse is the catalog count summary.
type CatalogSummaryResponse struct {
	TotalAccounts   int `json:"totalAccounts"`
	FinlifeAccounts int `json:"finlifeAccounts"`
	TotalCards      int `json:"totalCards"`
	ExternalCards   int `json:"externalCards"`
}

// SyncResultResponse reports the counters of one sync run.
type SyncResultResponse struct {
	Fetched     int `json:"fetched"`
	Upserted    int `json:"upserted"`
	Deactivated int `json:"deactivated"`
	Skipped     int `json:"skipped"`
}

// SyncTargetStatus is one source inside the sync status response.
type SyncTargetStatus struct {
	Source                  string     `json:"source"`
	LastResult              string     `json:"lastResult"`
	LastTrigger             string     `json:"lastTrigger"`
	LastRunAt               *time.Time `json:"lastRunAt"`
	LastSuccessAt           *time.Time `json:"lastSuccessAt"`
	LastFailureAt           *time.Time `json:"lastFailureAt"`
	LastMessage             string     `json:"lastMessage"`
	LastFetched             int        `json:"lastFetched"`
	LastUpserted            int        `json:"lastUpserted"`
	LastDeactivated         int        `json:"lastDeactivated"`
	LastSkipped             int        `json:"lastSkipped"`
	ConsecutiveFailureCount int        `json:"consecutiveFailureCount"`
}

// SyncStatusResponse is the combined sync status payload.
type SyncStatusResponse struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Finlife     SyncTargetStatus `json:"finlife"`
	Cards       SyncTargetStatus `json:"cards"`
}

// CatalogSearchHit is one result of the catalog search endpoint.
type CatalogSearchHit struct {
	ProductType string  `json:"productType"`
	ProductID   string  `json:"productId"`
	Provider    string  `json:"provider"`
	Name        string  `json:"name"`
	Summary     string  `json:"summary"`
	Score       float64 `json:"score"`
}

// CatalogSearchResponse is the catalog search payload.
type CatalogSearchResponse struct {
	Query string             `json:"query"`
	Hits  []CatalogSearchHit `json:"hits"`
}
