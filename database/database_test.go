package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *CatalogDB {
	t.Helper()

	db, err := NewCatalogDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedCatalogIfEmpty(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SeedCatalogIfEmpty())

	accounts, err := db.ListActiveAccounts()
	require.NoError(t, err)
	assert.Len(t, accounts, 4)

	cards, err := db.ListActiveCards()
	require.NoError(t, err)
	assert.Len(t, cards, 4)

	// A second call must not duplicate rows.
	require.NoError(t, db.SeedCatalogIfEmpty())
	counts, err := db.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Total)
}

func TestUpsertAccountUpdatesExistingRow(t *testing.T) {
	db := newTestDB(t)

	account := AccountProduct{
		ProductKey:   "finlife:deposit:0010001:wr0001",
		ProviderName: "우리은행",
		ProductName:  "WON플러스예금",
		AccountKind:  "예금",
		Summary:      "최고 3.5% (기본 3.2%)",
		OfficialURL:  "https://finlife.fss.or.kr",
		Tags:         []string{"finlife", "savings"},
	}
	require.NoError(t, db.UpsertAccount(account))

	account.Summary = "기본 금리 3.2%"
	account.Tags = []string{"finlife", "savings", "starter"}
	require.NoError(t, db.UpsertAccount(account))

	stored, err := db.GetAccountByKey(account.ProductKey)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "기본 금리 3.2%", stored.Summary)
	assert.Equal(t, []string{"finlife", "savings", "starter"}, stored.Tags)

	counts, err := db.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Total)
}

func TestDeactivateAccountsNotSeen(t *testing.T) {
	db := newTestDB(t)

	keep := AccountProduct{ProductKey: "finlife:deposit:a:1", ProviderName: "A", ProductName: "P1"}
	drop := AccountProduct{ProductKey: "finlife:deposit:a:2", ProviderName: "A", ProductName: "P2"}
	seed := AccountProduct{ProductKey: "acc_manual", ProviderName: "B", ProductName: "Manual"}
	require.NoError(t, db.UpsertAccount(keep))
	require.NoError(t, db.UpsertAccount(drop))
	require.NoError(t, db.UpsertAccount(seed))

	deactivated, err := db.DeactivateAccountsNotSeen("finlife:", []string{keep.ProductKey})
	require.NoError(t, err)
	assert.Equal(t, 1, deactivated)

	active, err := db.ListActiveAccounts()
	require.NoError(t, err)
	require.Len(t, active, 2)

	// Rows outside the prefix stay untouched.
	manual, err := db.GetAccountByKey("acc_manual")
	require.NoError(t, err)
	assert.True(t, manual.Active)

	stale, err := db.GetAccountByKey(drop.ProductKey)
	require.NoError(t, err)
	assert.False(t, stale.Active)

	prefixCount, err := db.CountAccountsWithKeyPrefix("finlife:")
	require.NoError(t, err)
	assert.Equal(t, 1, prefixCount)
}

func TestRunLifecycle(t *testing.T) {
	db := newTestDB(t)

	run := RecommendationRun{
		ID:                       uuid.NewString(),
		Priority:                 "SAVINGS",
		ExpectedNetMonthlyProfit: 21600,
		CreatedAt:                time.Now(),
	}
	items := []RecommendationItem{
		{ID: uuid.NewString(), RunID: run.ID, Rank: 1, ProductType: "ACCOUNT", ProductID: "acc_sh_save", ProviderName: "신한은행", ProductName: "목표저축 챌린지 적금", Score: 95},
		{ID: uuid.NewString(), RunID: run.ID, Rank: 1, ProductType: "CARD", ProductID: "card_kb_online", ProviderName: "KB국민카드", ProductName: "온라인 맥스", Score: 85},
	}
	require.NoError(t, db.InsertRun(run, items))

	stored, storedItems, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "SAVINGS", stored.Priority)
	assert.Len(t, storedItems, 2)
	assert.Equal(t, "ACCOUNT", storedItems[0].ProductType)

	item, err := db.FindRunItem(run.ID, "CARD", "card_kb_online")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 85, item.Score)

	missing, err := db.FindRunItem(run.ID, "CARD", "card_unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.InsertRedirectEvent(RedirectEvent{
		ID:          uuid.NewString(),
		RunID:       run.ID,
		ProductType: "CARD",
		ProductID:   "card_kb_online",
		OfficialURL: "https://card.kbcard.com",
		ClickedAt:   time.Now(),
		UserAgent:   "test-agent",
	}))

	history, err := db.ListRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].ItemCount)
	assert.Equal(t, 1, history[0].RedirectCount)

	events, err := db.ListRedirectEventsForRun(run.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "test-agent", events[0].UserAgent)
}

func TestWindowedQueries(t *testing.T) {
	db := newTestDB(t)

	run := RecommendationRun{ID: uuid.NewString(), Priority: "CASHBACK", CreatedAt: time.Now()}
	items := []RecommendationItem{
		{ID: uuid.NewString(), RunID: run.ID, Rank: 1, ProductType: "CARD", ProductID: "card_a"},
	}
	require.NoError(t, db.InsertRun(run, items))

	since := time.Now().Add(-24 * time.Hour)
	count, err := db.CountRunsSince(since)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	windowed, err := db.ListItemsSince(since)
	require.NoError(t, err)
	assert.Len(t, windowed, 1)

	future, err := db.CountRunsSince(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, future)
}

func TestSyncStatusTransitions(t *testing.T) {
	db := newTestDB(t)

	missing, err := db.GetSyncStatus("FINLIFE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, db.MarkSyncSuccess("FINLIFE", "manual", "Finlife sync completed",
		SyncCounts{Fetched: 12, Upserted: 10, Deactivated: 1, Skipped: 1}))

	status, err := db.GetSyncStatus("FINLIFE")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "SUCCESS", status.LastResult)
	assert.Equal(t, 12, status.Counts.Fetched)
	assert.Zero(t, status.ConsecutiveFailureCount)
	assert.NotNil(t, status.LastSuccessAt)

	require.NoError(t, db.MarkSyncFailure("FINLIFE", "scheduled", "boom"))
	require.NoError(t, db.MarkSyncFailure("FINLIFE", "scheduled", "boom again"))

	status, err = db.GetSyncStatus("FINLIFE")
	require.NoError(t, err)
	assert.Equal(t, "FAILED", status.LastResult)
	assert.Equal(t, 2, status.ConsecutiveFailureCount)
	assert.Equal(t, "boom again", status.LastMessage)
	// Counts of the last successful run survive failures.
	assert.Equal(t, 10, status.Counts.Upserted)
	assert.NotNil(t, status.LastFailureAt)
}

func TestQualitySnapshotLatest(t *testing.T) {
	db := newTestDB(t)

	none, _, err := db.GetLatestQualitySnapshot()
	require.NoError(t, err)
	assert.Nil(t, none)

	now := time.Now()
	first := QualitySnapshot{
		ID: uuid.NewString(), TriggerSource: "manual",
		GeneratedAt: now.Add(-time.Hour), WindowStartAt: now.AddDate(0, 0, -14), WindowEndAt: now.Add(-time.Hour),
		TotalRuns: 5, TotalItems: 20,
	}
	require.NoError(t, db.InsertQualitySnapshot(first, nil))

	second := QualitySnapshot{
		ID: uuid.NewString(), TriggerSource: "scheduled",
		GeneratedAt: now, WindowStartAt: now.AddDate(0, 0, -14), WindowEndAt: now,
		TotalRuns: 8, TotalItems: 30, TotalRedirects: 6, CtrPercent: 20,
		Notes: "최근 14일 추천 8건 기준 자동 집계",
	}
	metrics := []QualityCategoryMetric{
		{CategoryKey: "lifestyle", CategoryLabel: "생활소비", RecommendedCount: 9, RedirectCount: 4, CtrPercent: 44, SuggestedAction: "UP", SuggestedDelta: 10, Evidence: "추천 9건, 클릭 4건(CTR 44%), 고유 클릭 0건(CVR 0%)"},
		{CategoryKey: "savings", CategoryLabel: "저축/금리", RecommendedCount: 12, RedirectCount: 2, CtrPercent: 17, SuggestedAction: "HOLD"},
	}
	require.NoError(t, db.InsertQualitySnapshot(second, metrics))

	latest, latestMetrics, err := db.GetLatestQualitySnapshot()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, "scheduled", latest.TriggerSource)
	require.Len(t, latestMetrics, 2)
	// Sorted by redirects desc.
	assert.Equal(t, "lifestyle", latestMetrics[0].CategoryKey)
	assert.Equal(t, "UP", latestMetrics[0].SuggestedAction)
}
