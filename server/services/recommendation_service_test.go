package services

import (
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benepick/database"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

func newRecommendationTestDB(t *testing.T) *database.CatalogDB {
	t.Helper()
	db, err := database.NewCatalogDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.SeedCatalogIfEmpty())
	return db
}

func newRecommendationService(t *testing.T, db *database.CatalogDB) *RecommendationService {
	t.Helper()
	overrides := NewURLOverrideService("", nil)
	return NewRecommendationService(db, overrides, "balanced", nil)
}

func intPtr(value int) *int {
	return &value
}

func simulateRequest() types.SimulateRecommendationRequest {
	return types.SimulateRecommendationRequest{
		Age:            intPtr(29),
		Income:         intPtr(3200),
		MonthlySpend:   intPtr(120),
		Priority:       "savings",
		SalaryTransfer: "yes",
		TravelLevel:    "rarely",
		Categories:     []string{"grocery", "transport"},
	}
}

func statusCodeOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.StatusCode()
}

func TestSimulateRanksAndPersistsRun(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	response, err := service.Simulate(simulateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, response.RunID)
	assert.Equal(t, "savings", response.Priority)
	assert.Len(t, response.Accounts, 3)
	assert.Len(t, response.Cards, 3)

	totalScore := 0
	for i, item := range response.Accounts {
		assert.Equal(t, i+1, item.Rank)
		assert.Equal(t, "ACCOUNT", item.ProductType)
		assert.Contains(t, item.Reason, "핵심근거:")
		assert.Contains(t, item.Reason, "동점처리: 총점 동점 시 기관명/상품명 순")
		assert.NotEmpty(t, item.BenefitComponents)
		assert.GreaterOrEqual(t, item.ExpectedMonthlyBenefit, item.MinExpectedMonthlyBenefit)
		assert.GreaterOrEqual(t, item.MaxExpectedMonthlyBenefit, item.ExpectedMonthlyBenefit)
		totalScore += item.Score
	}
	for _, item := range response.Cards {
		assert.Equal(t, "CARD", item.ProductType)
		totalScore += item.Score
	}
	assert.Equal(t, totalScore*120, response.ExpectedNetMonthlyProfit)

	// score descending within each side
	for i := 1; i < len(response.Accounts); i++ {
		assert.GreaterOrEqual(t, response.Accounts[i-1].Score, response.Accounts[i].Score)
	}

	run, items, err := db.GetRun(response.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "SAVINGS", run.Priority)
	assert.Len(t, items, 6)
	for _, item := range items {
		assert.NotEmpty(t, item.OfficialURL)
	}
}

func TestSimulatePrefersSavingsAccountForSavingsPriority(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	response, err := service.Simulate(simulateRequest())
	require.NoError(t, err)

	require.NotEmpty(t, response.Accounts)
	var savingsAccount *types.RecommendationItem
	for i := range response.Accounts {
		if response.Accounts[i].ProductID == "acc_sh_save" {
			savingsAccount = &response.Accounts[i]
		}
	}
	require.NotNil(t, savingsAccount, "savings account should rank in the top 3")
	assert.Contains(t, savingsAccount.Reason, "저축/금리 우선순위와 상품 성격 일치")
}

func TestSimulateBuildsBundles(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	response, err := service.Simulate(simulateRequest())
	require.NoError(t, err)

	require.Len(t, response.Bundles, 3)
	assert.Equal(t, "주거래 집중 패키지", response.Bundles[0].Title)
	assert.Equal(t, response.Accounts[0].ProductID, response.Bundles[0].AccountProductID)
	assert.Equal(t, response.Cards[0].ProductID, response.Bundles[0].CardProductID)

	seen := map[string]struct{}{}
	for i, bundle := range response.Bundles {
		assert.Equal(t, i+1, bundle.Rank)
		pairKey := bundle.AccountProductID + "::" + bundle.CardProductID
		_, duplicate := seen[pairKey]
		assert.False(t, duplicate, "bundle pair repeated: %s", pairKey)
		seen[pairKey] = struct{}{}

		assert.GreaterOrEqual(t, bundle.ExpectedExtraMonthlyBenefit, 6000)
		assert.GreaterOrEqual(t, bundle.MinExtraMonthlyBenefit, 6000)
		assert.GreaterOrEqual(t, bundle.MaxExtraMonthlyBenefit, bundle.ExpectedExtraMonthlyBenefit)
		assert.Contains(t, bundle.Reason, "조합 최적화")
		assert.NotEmpty(t, bundle.BenefitComponents)
	}
}

func TestSimulateValidation(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	tooYoung := simulateRequest()
	tooYoung.Age = intPtr(15)
	_, err := service.Simulate(tooYoung)
	assert.Equal(t, http.StatusBadRequest, statusCodeOf(t, err))

	negativeSpend := simulateRequest()
	negativeSpend.MonthlySpend = intPtr(-1)
	_, err = service.Simulate(negativeSpend)
	assert.Equal(t, http.StatusBadRequest, statusCodeOf(t, err))

	noPriority := simulateRequest()
	noPriority.Priority = "  "
	_, err = service.Simulate(noPriority)
	assert.Equal(t, http.StatusBadRequest, statusCodeOf(t, err))

	noCategories := simulateRequest()
	noCategories.Categories = nil
	_, err = service.Simulate(noCategories)
	assert.Equal(t, http.StatusBadRequest, statusCodeOf(t, err))
}

func TestSimulateEmptyAccountCatalog(t *testing.T) {
	db, err := database.NewCatalogDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	service := newRecommendationService(t, db)

	_, err = service.Simulate(simulateRequest())
	assert.Equal(t, http.StatusServiceUnavailable, statusCodeOf(t, err))
	assert.Contains(t, err.Error(), "Account catalog is empty")
}

func TestSimulateExcludesStatOnlyCards(t *testing.T) {
	db, err := database.NewCatalogDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.UpsertAccount(database.AccountProduct{
		ProductKey:   "acc_test",
		ProviderName: "테스트은행",
		ProductName:  "테스트 통장",
		AccountKind:  "입출금",
		Summary:      "기본 입출금 계좌",
		OfficialURL:  "https://example.com/acc",
		Tags:         []string{"daily"},
	}))
	require.NoError(t, db.UpsertCard(database.CardProduct{
		ProductKey:    "card_stats",
		ProviderName:  "통계카드",
		ProductName:   "통계 전용",
		AnnualFeeText: "없음",
		Summary:       "통계 데이터",
		OfficialURL:   "https://example.com/card",
		Tags:          []string{"external", "stat-only"},
		Categories:    []string{"online"},
	}))

	service := newRecommendationService(t, db)
	_, err = service.Simulate(simulateRequest())
	assert.Equal(t, http.StatusServiceUnavailable, statusCodeOf(t, err))
	assert.Contains(t, err.Error(), "Card catalog is empty")
}

func TestGetRunRebuildsStoredRun(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	simulated, err := service.Simulate(simulateRequest())
	require.NoError(t, err)

	loaded, err := service.GetRun(simulated.RunID)
	require.NoError(t, err)

	assert.Equal(t, simulated.RunID, loaded.RunID)
	assert.Equal(t, "savings", loaded.Priority)
	assert.Equal(t, simulated.ExpectedNetMonthlyProfit, loaded.ExpectedNetMonthlyProfit)
	assert.Len(t, loaded.Accounts, len(simulated.Accounts))
	assert.Len(t, loaded.Cards, len(simulated.Cards))
	assert.Len(t, loaded.Bundles, 3)

	// stored reason text has no itemized line, so the estimate collapses to
	// one base component carrying the full score
	first := loaded.Accounts[0]
	require.Len(t, first.BenefitComponents, 1)
	assert.Equal(t, "account_score_0", first.BenefitComponents[0].Key)
	assert.Equal(t, "계좌 기본 절감액", first.BenefitComponents[0].Label)
	assert.Equal(t, first.Score*130, first.ExpectedMonthlyBenefit)

	// detail fields are resolved against the live catalog
	labels := map[string]string{}
	for _, field := range first.DetailFields {
		labels[field.Label] = field.Value
	}
	assert.Equal(t, first.Name, labels["상품명"])
	assert.Contains(t, labels, "상품유형")
	assert.Contains(t, labels, "공식 설명서/상세")
}

func TestGetRunNotFound(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	_, err := service.GetRun("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, http.StatusNotFound, statusCodeOf(t, err))
	assert.Contains(t, err.Error(), "Recommendation run not found")
}

func TestGetRunFallbackDetailFieldsWhenProductLeftCatalog(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	simulated, err := service.Simulate(simulateRequest())
	require.NoError(t, err)

	_, items, err := db.GetRun(simulated.RunID)
	require.NoError(t, err)
	require.NotEmpty(t, items)

	item := items[0]
	item.ProductID = "gone_" + item.ProductID

	fields := buildFallbackDetailFields(item, "")
	labels := map[string]string{}
	for _, field := range fields {
		labels[field.Label] = field.Value
	}
	assert.Equal(t, item.ProductName, labels["상품명"])
	assert.Equal(t, item.Summary, labels["요약"])
	assert.NotContains(t, labels, "공식 설명서/상세")
}

func TestGetRecentRuns(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	first, err := service.Simulate(simulateRequest())
	require.NoError(t, err)
	second, err := service.Simulate(simulateRequest())
	require.NoError(t, err)

	history, err := service.GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	ids := []string{history[0].RunID, history[1].RunID}
	assert.Contains(t, ids, first.RunID)
	assert.Contains(t, ids, second.RunID)
	for _, entry := range history {
		assert.Equal(t, "savings", entry.Priority)
		assert.Zero(t, entry.RedirectCount)
	}

	clamped, err := service.GetRecentRuns(0)
	require.NoError(t, err)
	assert.Len(t, clamped, 1)
}

func TestRedirectRecordsEventAndResolvesURL(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	simulated, err := service.Simulate(simulateRequest())
	require.NoError(t, err)
	target := simulated.Accounts[0]

	response, err := service.Redirect(simulated.RunID, types.RecommendationRedirectRequest{
		ProductType: "account",
		ProductID:   target.ProductID,
	}, "test-agent", "127.0.0.1", "https://benepick.example/app")
	require.NoError(t, err)
	assert.True(t, len(response.RedirectURL) > 0)

	events, err := db.ListRedirectEventsForRun(simulated.RunID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ACCOUNT", events[0].ProductType)
	assert.Equal(t, target.ProductID, events[0].ProductID)
	assert.Equal(t, "test-agent", events[0].UserAgent)
	assert.Equal(t, "127.0.0.1", events[0].IPAddress)
}

func TestRedirectUnknownItem(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	simulated, err := service.Simulate(simulateRequest())
	require.NoError(t, err)

	_, err = service.Redirect(simulated.RunID, types.RecommendationRedirectRequest{
		ProductType: "CARD",
		ProductID:   "does-not-exist",
	}, "", "", "")
	assert.Equal(t, http.StatusNotFound, statusCodeOf(t, err))
	assert.Contains(t, err.Error(), "Recommendation item not found")
}

func TestRedirectUnknownRun(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	_, err := service.Redirect("99999999-0000-0000-0000-000000000000", types.RecommendationRedirectRequest{
		ProductType: "ACCOUNT",
		ProductID:   "acc_sh_save",
	}, "", "", "")
	assert.Equal(t, http.StatusNotFound, statusCodeOf(t, err))
}

func TestParseScorePartsFromReason(t *testing.T) {
	parts := parseScorePartsFromReason(
		"핵심근거: 테스트\n점수구성: 기본점수(45점), 고금리 보너스(8점), 연회비 패널티(-6점) = 47점\n동점처리: 총점 동점 시 기관명/상품명 순",
		99,
	)
	require.Len(t, parts, 3)
	assert.Equal(t, scorePart{label: "기본점수", points: 45}, parts[0])
	assert.Equal(t, scorePart{label: "고금리 보너스", points: 8}, parts[1])
	assert.Equal(t, scorePart{label: "연회비 패널티", points: -6}, parts[2])

	fallback := parseScorePartsFromReason("핵심근거: 없음", 77)
	require.Len(t, fallback, 1)
	assert.Equal(t, scorePart{label: "기본점수", points: 77}, fallback[0])
}

func TestEstimateProductBenefitBands(t *testing.T) {
	parts := []scorePart{
		{label: "기본점수", points: 45},
		{label: "연회비 패널티", points: -6},
	}
	estimate := estimateProductBenefit("CARD", 39, parts, "")

	assert.Equal(t, (45-6)*120, estimate.expected)
	assert.Equal(t, 3370, estimate.min)  // round(4680 * 0.72)
	assert.Equal(t, 5522, estimate.max)  // round(4680 * 1.18)
	require.Len(t, estimate.components, 2)
	assert.Equal(t, "카드 기본 절감액", estimate.components[0].Label)
	assert.Equal(t, "조건 충족 시 반영", estimate.components[0].Condition)
	assert.Equal(t, "카드: 연회비 패널티", estimate.components[1].Label)
	assert.Equal(t, "비용/패널티 반영", estimate.components[1].Condition)
	assert.Equal(t, -720, estimate.components[1].AmountWonPerMonth)
}

func TestLimitLength(t *testing.T) {
	assert.Equal(t, "short", limitLength("short", 20))
	assert.Equal(t, "ab...", limitLength("abcdefgh", 5))
	assert.Equal(t, "abc", limitLength("abcdef", 3))
}

func TestIsLikelyGenericOfficialURL(t *testing.T) {
	assert.True(t, isLikelyGenericOfficialURL("https://www.shinhan.com"))
	assert.True(t, isLikelyGenericOfficialURL("https://finlife.fss.or.kr/finlife/svc/depositSearch"))
	assert.True(t, isLikelyGenericOfficialURL("https://www.kdb.co.kr/main/index.jsp"))
	assert.False(t, isLikelyGenericOfficialURL("https://bank.example.com/products/detail?prdCode=123"))
	assert.False(t, isLikelyGenericOfficialURL("https://bank.example.com/deposit/items/detail/42"))
}

func TestResolveOfficialLinkPlan(t *testing.T) {
	blank := resolveOfficialLinkPlan("  ")
	assert.Empty(t, blank.redirectURL)
	assert.Equal(t, "공식 링크 미제공", blank.kind)

	detail := resolveOfficialLinkPlan("bank.example.com/products/detail?prdCode=1")
	assert.Equal(t, "https://bank.example.com/products/detail?prdCode=1", detail.redirectURL)
	assert.Equal(t, "공식 상품 상세 링크", detail.kind)

	generic := resolveOfficialLinkPlan("https://www.wooribank.com")
	assert.Equal(t, "공식 홈페이지/목록 링크", generic.kind)
}

func TestSimulateAcceptsVariedProfiles(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := newRecommendationService(t, db)

	faker := gofakeit.New(7)
	priorities := []string{"savings", "cashback", "travel", "starter", "annualfee"}
	levels := []string{"none", "rarely", "often"}
	categoryPool := []string{"grocery", "transport", "dining", "cafe", "online", "subscription"}

	for i := 0; i < 20; i++ {
		request := types.SimulateRecommendationRequest{
			Age:            intPtr(faker.Number(19, 100)),
			Income:         intPtr(faker.Number(0, 12000)),
			MonthlySpend:   intPtr(faker.Number(0, 600)),
			Priority:       priorities[faker.Number(0, len(priorities)-1)],
			SalaryTransfer: faker.RandomString([]string{"yes", "no"}),
			TravelLevel:    levels[faker.Number(0, len(levels)-1)],
			Categories:     []string{categoryPool[faker.Number(0, len(categoryPool)-1)]},
		}

		response, err := service.Simulate(request)
		require.NoError(t, err, "profile %d: %+v", i, request)
		assert.Len(t, response.Accounts, 3)
		assert.Len(t, response.Cards, 3)
		assert.Greater(t, response.ExpectedNetMonthlyProfit, 0)
	}
}
