package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benepick/database"
	"benepick/internal/config"
)

type fakeFinlifeAPI struct {
	companies map[string][]*FinlifeResult
	deposits  map[string][]*FinlifeResult
	savings   map[string][]*FinlifeResult
}

func pageOf(pages []*FinlifeResult, pageNo int) *FinlifeResult {
	if pageNo >= 1 && pageNo <= len(pages) {
		return pages[pageNo-1]
	}
	return &FinlifeResult{NowPageNo: FlexInt(pageNo), MaxPageNo: FlexInt(len(pages))}
}

func (f *fakeFinlifeAPI) Companies(_ context.Context, topGroup string, pageNo int) (*FinlifeResult, error) {
	return pageOf(f.companies[topGroup], pageNo), nil
}

func (f *fakeFinlifeAPI) DepositProducts(_ context.Context, topGroup string, pageNo int) (*FinlifeResult, error) {
	return pageOf(f.deposits[topGroup], pageNo), nil
}

func (f *fakeFinlifeAPI) SavingProducts(_ context.Context, topGroup string, pageNo int) (*FinlifeResult, error) {
	return pageOf(f.savings[topGroup], pageNo), nil
}

type fakeCardFeed struct {
	result *CardFeedResult
	err    error
}

func (f *fakeCardFeed) FetchCards(context.Context) (*CardFeedResult, error) {
	return f.result, f.err
}

func newSyncTestDB(t *testing.T) *database.CatalogDB {
	t.Helper()
	db, err := database.NewCatalogDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newSyncService(t *testing.T, db *database.CatalogDB, finlife FinlifeAPI, cards CardFeedAPI, finlifeCfg config.FinlifeConfig) *CatalogSyncService {
	t.Helper()
	status := NewSyncStatusService(db, nil)
	return NewCatalogSyncService(db, finlife, cards, status, finlifeCfg, nil)
}

func singlePage(result *FinlifeResult) []*FinlifeResult {
	result.NowPageNo = 1
	result.MaxPageNo = 1
	return []*FinlifeResult{result}
}

func TestSyncFinlifeUpsertsProducts(t *testing.T) {
	db := newSyncTestDB(t)
	finlife := &fakeFinlifeAPI{
		companies: map[string][]*FinlifeResult{
			"020000": singlePage(&FinlifeResult{BaseList: []FinlifeBaseItem{
				{FinCoNo: "0010001", KorCoNm: "우리은행", HompURL: "https://spot.wooribank.com"},
			}}),
		},
		deposits: map[string][]*FinlifeResult{
			"020000": singlePage(&FinlifeResult{
				BaseList: []FinlifeBaseItem{{
					FinCoNo:   "0010001",
					FinPrdtCd: "WR0001",
					KorCoNm:   "우리은행",
					FinPrdtNm: "WON플러스예금",
					SpclCnd:   "급여이체 시 우대금리",
					JoinWay:   "인터넷,스마트폰",
				}},
				OptionList: []FinlifeOptionItem{{
					FinCoNo: "0010001", FinPrdtCd: "WR0001", IntrRate: 3.1, IntrRate2: 3.55,
				}},
			}),
		},
		savings: map[string][]*FinlifeResult{
			"020000": singlePage(&FinlifeResult{BaseList: []FinlifeBaseItem{
				{FinCoNo: "0010001", FinPrdtCd: "WR0002", KorCoNm: "우리은행", FinPrdtNm: "청년 적금"},
			}}),
		},
	}

	service := newSyncService(t, db, finlife, &fakeCardFeed{}, config.FinlifeConfig{
		AuthKey:          "key",
		TopFinGrpNos:     []string{"020000"},
		MaxPagesPerGroup: 2,
	})

	result, err := service.SyncFinlife(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Upserted)
	assert.Equal(t, 0, result.Skipped)

	deposit, err := db.GetAccountByKey("finlife:deposit:0010001:wr0001")
	require.NoError(t, err)
	require.NotNil(t, deposit)
	assert.Equal(t, "우리은행", deposit.ProviderName)
	assert.Equal(t, "예금", deposit.AccountKind)
	assert.Contains(t, deposit.Summary, "최고 3.55% (기본 3.1%)")
	assert.Contains(t, deposit.Summary, "급여이체 시 우대금리")
	assert.Equal(t, "https://spot.wooribank.com", deposit.OfficialURL)
	assert.Contains(t, deposit.Tags, "finlife")
	assert.Contains(t, deposit.Tags, "salary")
	assert.Contains(t, deposit.Tags, "starter")

	saving, err := db.GetAccountByKey("finlife:saving:0010001:wr0002")
	require.NoError(t, err)
	require.NotNil(t, saving)
	assert.Equal(t, "적금", saving.AccountKind)
	assert.Contains(t, saving.Tags, "goal")
	assert.Contains(t, saving.Tags, "young")
	assert.Contains(t, saving.Summary, "금리 정보는 상세 페이지에서 확인")

	status, err := db.GetSyncStatus(SyncSourceFinlife)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "SUCCESS", status.LastResult)
	assert.Equal(t, "Finlife sync completed", status.LastMessage)
}

func TestSyncFinlifeSkipsBlankRows(t *testing.T) {
	db := newSyncTestDB(t)
	finlife := &fakeFinlifeAPI{
		deposits: map[string][]*FinlifeResult{
			"020000": singlePage(&FinlifeResult{BaseList: []FinlifeBaseItem{
				{FinCoNo: "1", FinPrdtCd: "", KorCoNm: "A은행", FinPrdtNm: "무코드 상품"},
				{FinCoNo: "1", FinPrdtCd: "C1", KorCoNm: "A은행", FinPrdtNm: "정상 상품"},
			}}),
		},
	}

	service := newSyncService(t, db, finlife, &fakeCardFeed{}, config.FinlifeConfig{
		AuthKey:      "key",
		TopFinGrpNos: []string{"020000"},
	})

	result, err := service.SyncFinlife(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Upserted)
}

func TestSyncFinlifeMissingAuthKey(t *testing.T) {
	db := newSyncTestDB(t)
	service := newSyncService(t, db, &fakeFinlifeAPI{}, &fakeCardFeed{}, config.FinlifeConfig{
		TopFinGrpNos: []string{"020000"},
	})

	_, err := service.SyncFinlife(context.Background(), "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINLIFE_AUTH_KEY is not configured")

	status, statusErr := db.GetSyncStatus(SyncSourceFinlife)
	require.NoError(t, statusErr)
	require.NotNil(t, status)
	assert.Equal(t, "FAILED", status.LastResult)
	assert.Equal(t, 1, status.ConsecutiveFailureCount)
	assert.Contains(t, status.LastMessage, "FINLIFE_AUTH_KEY")
}

func TestSyncFinlifeNoProducts(t *testing.T) {
	db := newSyncTestDB(t)
	service := newSyncService(t, db, &fakeFinlifeAPI{}, &fakeCardFeed{}, config.FinlifeConfig{
		AuthKey:      "key",
		TopFinGrpNos: []string{"020000"},
	})

	_, err := service.SyncFinlife(context.Background(), "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Finlife sync returned no products")
}

func TestSyncFinlifeDeactivatesUnseen(t *testing.T) {
	db := newSyncTestDB(t)
	require.NoError(t, db.UpsertAccount(database.AccountProduct{
		ProductKey:   "finlife:deposit:old:gone",
		ProviderName: "구은행",
		ProductName:  "사라진 예금",
		AccountKind:  "예금",
	}))

	finlife := &fakeFinlifeAPI{
		deposits: map[string][]*FinlifeResult{
			"020000": singlePage(&FinlifeResult{BaseList: []FinlifeBaseItem{
				{FinCoNo: "1", FinPrdtCd: "C1", KorCoNm: "A은행", FinPrdtNm: "살아있는 예금"},
			}}),
		},
	}

	service := newSyncService(t, db, finlife, &fakeCardFeed{}, config.FinlifeConfig{
		AuthKey:      "key",
		TopFinGrpNos: []string{"020000"},
	})

	result, err := service.SyncFinlife(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deactivated)

	stale, err := db.GetAccountByKey("finlife:deposit:old:gone")
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.False(t, stale.Active)
}

func TestSyncCardsUpsertsAndDefaults(t *testing.T) {
	db := newSyncTestDB(t)
	feed := &fakeCardFeed{result: &CardFeedResult{
		Products: []CardFeedProduct{
			{
				ProductKey:    "KG-001",
				ProviderName:  "고릴라카드",
				ProductName:   "쇼핑의 정석",
				AnnualFeeText: "연 15,000원",
				Summary:       "온라인 쇼핑 최대 5% 적립",
				OfficialURL:   "www.card-gorilla.com/card/detail/1",
				Tags:          []string{"Cashback", "daily"},
				Categories:    []string{"온라인", "장보기"},
			},
			{ProductKey: "KG-002", ProviderName: "고릴라카드", ProductName: "무정보 카드"},
		},
	}}

	service := newSyncService(t, db, &fakeFinlifeAPI{}, feed, config.FinlifeConfig{})
	result, err := service.SyncCards(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Upserted)

	card, err := db.GetCardByKey("external:kg-001")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, []string{"cashback", "daily", "external"}, card.Tags)
	assert.ElementsMatch(t, []string{"online", "grocery"}, card.Categories)
	assert.Equal(t, "https://www.card-gorilla.com/card/detail/1", card.OfficialURL)

	fallbackCard, err := db.GetCardByKey("external:kg-002")
	require.NoError(t, err)
	require.NotNil(t, fallbackCard)
	assert.Equal(t, "연회비 정보 없음", fallbackCard.AnnualFeeText)
	assert.Equal(t, "외부 카드 데이터 동기화", fallbackCard.Summary)
	assert.Equal(t, []string{"online"}, fallbackCard.Categories)

	status, err := db.GetSyncStatus(SyncSourceCards)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "SUCCESS", status.LastResult)
	assert.Equal(t, "Card external sync completed", status.LastMessage)
}

func TestSyncCardsFeedFailureRecorded(t *testing.T) {
	db := newSyncTestDB(t)
	feed := &fakeCardFeed{err: errors.New("card source down")}

	service := newSyncService(t, db, &fakeFinlifeAPI{}, feed, config.FinlifeConfig{})
	_, err := service.SyncCards(context.Background(), "manual")
	require.Error(t, err)

	status, statusErr := db.GetSyncStatus(SyncSourceCards)
	require.NoError(t, statusErr)
	require.NotNil(t, status)
	assert.Equal(t, "FAILED", status.LastResult)
}

func TestNormalizedCardCategoriesSorted(t *testing.T) {
	categories := normalizedCardCategories([]string{"여행", "캐시백", "구독", "온라인"})
	assert.Equal(t, []string{"daily", "online", "subscription", "travel"}, categories)
}

func TestSanitizeIDPart(t *testing.T) {
	assert.Equal(t, "na", sanitizeIDPart("  "))
	assert.Equal(t, "wr0001", sanitizeIDPart("WR0001"))
	assert.Equal(t, "a-b_c-1", sanitizeIDPart("A b_c:1"))
}

func TestSyncStatusNeverRun(t *testing.T) {
	db := newSyncTestDB(t)
	status := NewSyncStatusService(db, nil)

	response, err := status.Status()
	require.NoError(t, err)
	assert.Equal(t, "NEVER", response.Finlife.LastResult)
	assert.Equal(t, "아직 동기화 실행 이력이 없습니다.", response.Finlife.LastMessage)
	assert.Equal(t, "NEVER", response.Cards.LastResult)
}
