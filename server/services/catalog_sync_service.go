package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"benepick/database"
	"benepick/internal/config"
	"benepick/normalization"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

// Catalog key prefixes per ingestion source.
const (
	FinlifeKeyPrefix = "finlife:"
	CardKeyPrefix    = "external:"
)

const (
	finlifeFallbackURL = "https://finlife.fss.or.kr"
	cardFallbackURL    = "https://www.card-gorilla.com"
)

// FinlifeAPI is the slice of the Finlife client the sync needs.
type FinlifeAPI interface {
	Companies(ctx context.Context, topFinGrpNo string, pageNo int) (*FinlifeResult, error)
	DepositProducts(ctx context.Context, topFinGrpNo string, pageNo int) (*FinlifeResult, error)
	SavingProducts(ctx context.Context, topFinGrpNo string, pageNo int) (*FinlifeResult, error)
}

// CardFeedAPI is the slice of the card feed client the sync needs.
type CardFeedAPI interface {
	FetchCards(ctx context.Context) (*CardFeedResult, error)
}

// CatalogSyncService ingests Finlife deposit/saving products and external card
// feeds into the catalog tables.
type CatalogSyncService struct {
	db         *database.CatalogDB
	finlife    FinlifeAPI
	cardFeed   CardFeedAPI
	status     *SyncStatusService
	finlifeCfg config.FinlifeConfig
	logger     LoggerInterface
}

// NewCatalogSyncService builds the sync service.
func NewCatalogSyncService(
	db *database.CatalogDB,
	finlife FinlifeAPI,
	cardFeed CardFeedAPI,
	status *SyncStatusService,
	finlifeCfg config.FinlifeConfig,
	logger LoggerInterface,
) *CatalogSyncService {
	if logger == nil {
		logger = newDefaultLogger()
	}
	return &CatalogSyncService{
		db:         db,
		finlife:    finlife,
		cardFeed:   cardFeed,
		status:     status,
		finlifeCfg: finlifeCfg,
		logger:     logger,
	}
}

// SyncFinlife ingests deposit and saving products for every configured top
// group. The outcome is recorded in the sync status table either way.
func (s *CatalogSyncService) SyncFinlife(ctx context.Context, trigger string) (*types.SyncResultResponse, error) {
	result, err := s.syncFinlife(ctx)
	if err != nil {
		s.status.RecordFailure(SyncSourceFinlife, trigger, err)
		return nil, err
	}

	s.status.RecordSuccess(SyncSourceFinlife, trigger, "Finlife sync completed", database.SyncCounts{
		Fetched:     result.Fetched,
		Upserted:    result.Upserted,
		Deactivated: result.Deactivated,
		Skipped:     result.Skipped,
	})
	s.logger.Info("Finlife sync completed",
		"fetched", result.Fetched, "upserted", result.Upserted,
		"deactivated", result.Deactivated, "skipped", result.Skipped)
	return result, nil
}

func (s *CatalogSyncService) syncFinlife(ctx context.Context) (*types.SyncResultResponse, error) {
	if strings.TrimSpace(s.finlifeCfg.AuthKey) == "" {
		return nil, apperrors.NewConfigurationError("FINLIFE_AUTH_KEY is not configured", nil)
	}
	topGroups := nonBlankValues(s.finlifeCfg.TopFinGrpNos)
	if len(topGroups) == 0 {
		return nil, apperrors.NewConfigurationError("FINLIFE_TOP_FIN_GRP_NOS is not configured", nil)
	}

	result := &types.SyncResultResponse{}
	var seenKeys []string

	for _, topGroup := range topGroups {
		companyURLs, err := s.fetchCompanyURLs(ctx, topGroup)
		if err != nil {
			return nil, err
		}

		for _, source := range []struct {
			kind  string
			label string
			fetch func(context.Context, string, int) (*FinlifeResult, error)
		}{
			{kind: "deposit", label: "예금", fetch: s.finlife.DepositProducts},
			{kind: "saving", label: "적금", fetch: s.finlife.SavingProducts},
		} {
			baseItems, rates, err := s.fetchFinlifeProducts(ctx, topGroup, source.fetch)
			if err != nil {
				return nil, err
			}
			result.Fetched += len(baseItems)

			for _, item := range baseItems {
				product, ok := buildFinlifeAccount(item, source.kind, source.label, rates, companyURLs)
				if !ok {
					result.Skipped++
					continue
				}
				if err := s.db.UpsertAccount(product); err != nil {
					return nil, apperrors.WrapError(err, "failed to upsert Finlife account")
				}
				seenKeys = append(seenKeys, product.ProductKey)
				result.Upserted++
			}
		}
	}

	if result.Upserted == 0 {
		return nil, apperrors.NewUpstreamUnavailableError(
			"Finlife sync returned no products. Check FINLIFE_AUTH_KEY and top group code.", nil)
	}

	deactivated, err := s.db.DeactivateAccountsNotSeen(FinlifeKeyPrefix, seenKeys)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to deactivate stale Finlife accounts")
	}
	result.Deactivated = deactivated
	return result, nil
}

func (s *CatalogSyncService) fetchCompanyURLs(ctx context.Context, topGroup string) (map[string]string, error) {
	urls := map[string]string{}

	err := s.forEachFinlifePage(ctx, topGroup, s.finlife.Companies, func(page *FinlifeResult) {
		for _, company := range page.BaseList {
			url := normalization.FirstNonBlank(company.HompURL, company.HomeURL)
			if company.FinCoNo != "" && url != "" {
				urls[company.FinCoNo] = url
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return urls, nil
}

type finlifeRates struct {
	max  map[string]float64
	base map[string]float64
}

func (s *CatalogSyncService) fetchFinlifeProducts(
	ctx context.Context, topGroup string,
	fetch func(context.Context, string, int) (*FinlifeResult, error),
) ([]FinlifeBaseItem, finlifeRates, error) {
	var baseItems []FinlifeBaseItem
	rates := finlifeRates{max: map[string]float64{}, base: map[string]float64{}}

	err := s.forEachFinlifePage(ctx, topGroup, fetch, func(page *FinlifeResult) {
		baseItems = append(baseItems, page.BaseList...)
		for _, option := range page.OptionList {
			recordRate(rates.base, option.FinCoNo, option.FinPrdtCd, float64(option.IntrRate))
			recordRate(rates.max, option.FinCoNo, option.FinPrdtCd, float64(option.IntrRate2))
		}
	})
	if err != nil {
		return nil, finlifeRates{}, err
	}
	return baseItems, rates, nil
}

func (s *CatalogSyncService) forEachFinlifePage(
	ctx context.Context, topGroup string,
	fetch func(context.Context, string, int) (*FinlifeResult, error),
	consume func(*FinlifeResult),
) error {
	maxPages := s.finlifeCfg.MaxPagesPerGroup
	if maxPages < 1 {
		maxPages = 1
	}

	page := 1
	for {
		result, err := fetch(ctx, topGroup, page)
		if err != nil {
			return err
		}
		consume(result)

		lastPage := int(result.MaxPageNo)
		if lastPage < 1 {
			lastPage = page
		}
		if page >= lastPage || page >= maxPages {
			return nil
		}
		page++
	}
}

// recordRate keeps the maximum rate per exact company|code key and per
// fallback na|code key so option rows missing the company still match.
func recordRate(store map[string]float64, finCoNo, code string, rate float64) {
	if rate <= 0 || strings.TrimSpace(code) == "" {
		return
	}
	keys := []string{
		sanitizeIDPart(finCoNo) + "|" + code,
		"na|" + code,
	}
	for _, key := range keys {
		if rate > store[key] {
			store[key] = rate
		}
	}
}

func lookupRate(store map[string]float64, finCoNo, code string) float64 {
	if rate, ok := store[sanitizeIDPart(finCoNo)+"|"+code]; ok {
		return rate
	}
	return store["na|"+code]
}

func buildFinlifeAccount(
	item FinlifeBaseItem, kind, kindLabel string,
	rates finlifeRates, companyURLs map[string]string,
) (database.AccountProduct, bool) {
	code := strings.TrimSpace(item.FinPrdtCd)
	provider := strings.TrimSpace(item.KorCoNm)
	name := strings.TrimSpace(item.FinPrdtNm)
	if code == "" || provider == "" || name == "" {
		return database.AccountProduct{}, false
	}

	maxRate := lookupRate(rates.max, item.FinCoNo, code)
	baseRate := lookupRate(rates.base, item.FinCoNo, code)

	return database.AccountProduct{
		ProductKey:   FinlifeKeyPrefix + kind + ":" + sanitizeIDPart(item.FinCoNo) + ":" + sanitizeIDPart(code),
		ProviderName: provider,
		ProductName:  name,
		AccountKind:  kindLabel,
		Summary:      buildFinlifeSummary(item, maxRate, baseRate),
		OfficialURL:  resolveFinlifeURL(item, companyURLs),
		Tags:         deriveFinlifeTags(item, kindLabel),
	}, true
}

func buildFinlifeSummary(item FinlifeBaseItem, maxRate, baseRate float64) string {
	var rateText string
	switch {
	case maxRate > 0:
		rateText = fmt.Sprintf("최고 %s%% (기본 %s%%)",
			normalization.FormatPercent(maxRate), normalization.FormatPercent(baseRate))
	case baseRate > 0:
		rateText = fmt.Sprintf("기본 금리 %s%%", normalization.FormatPercent(baseRate))
	default:
		rateText = "금리 정보는 상세 페이지에서 확인"
	}

	conditionText := normalization.FirstNonBlank(
		normalization.CompactSpaces(item.SpclCnd),
		normalization.CompactSpaces(item.EtcNote),
		"우대조건은 상품설명서를 확인",
	)
	return rateText + " · " + conditionText
}

func resolveFinlifeURL(item FinlifeBaseItem, companyURLs map[string]string) string {
	return ensureURLScheme(normalization.FirstNonBlank(
		item.HompURL, companyURLs[item.FinCoNo], finlifeFallbackURL))
}

func deriveFinlifeTags(item FinlifeBaseItem, kindLabel string) []string {
	tags := []string{"finlife", "savings"}
	add := func(tag string) {
		for _, existing := range tags {
			if existing == tag {
				return
			}
		}
		tags = append(tags, tag)
	}

	if strings.Contains(kindLabel, "적금") {
		add("goal")
	}

	text := strings.ToLower(item.FinPrdtNm + " " + item.SpclCnd + " " + item.EtcNote)
	if strings.Contains(text, "급여") || strings.Contains(text, "salary") {
		add("salary")
		add("daily")
	}
	if strings.Contains(text, "청년") || strings.Contains(text, "young") {
		add("young")
	}
	if strings.Contains(text, "자동이체") || strings.Contains(text, "auto") {
		add("auto")
		add("daily")
	}

	joinWay := item.JoinWay
	if strings.Contains(joinWay, "인터넷") || strings.Contains(joinWay, "스마트폰") ||
		strings.Contains(joinWay, "모바일") || strings.Contains(joinWay, "비대면") {
		add("starter")
		add("daily")
	}
	return tags
}

// SyncCards ingests the configured external card feed. The outcome is recorded
// in the sync status table either way.
func (s *CatalogSyncService) SyncCards(ctx context.Context, trigger string) (*types.SyncResultResponse, error) {
	result, err := s.syncCards(ctx)
	if err != nil {
		s.status.RecordFailure(SyncSourceCards, trigger, err)
		return nil, err
	}

	s.status.RecordSuccess(SyncSourceCards, trigger, "Card external sync completed", database.SyncCounts{
		Fetched:     result.Fetched,
		Upserted:    result.Upserted,
		Deactivated: result.Deactivated,
		Skipped:     result.Skipped,
	})
	s.logger.Info("Card external sync completed",
		"fetched", result.Fetched, "upserted", result.Upserted,
		"deactivated", result.Deactivated, "skipped", result.Skipped)
	return result, nil
}

func (s *CatalogSyncService) syncCards(ctx context.Context) (*types.SyncResultResponse, error) {
	feed, err := s.cardFeed.FetchCards(ctx)
	if err != nil {
		return nil, err
	}

	if feed.ItemsPathFallback {
		s.logger.Warn("card feed items path fallback used")
	}
	for source, message := range feed.FeedErrors {
		s.logger.Warn("card feed source issue", "feed", source, "detail", message)
	}

	result := &types.SyncResultResponse{Fetched: len(feed.Products)}
	var seenKeys []string

	for _, row := range feed.Products {
		product, ok := buildExternalCard(row)
		if !ok {
			result.Skipped++
			continue
		}
		if err := s.db.UpsertCard(product); err != nil {
			return nil, apperrors.WrapError(err, "failed to upsert external card")
		}
		seenKeys = append(seenKeys, product.ProductKey)
		result.Upserted++
	}

	if result.Upserted == 0 {
		return nil, apperrors.NewUpstreamUnavailableError(
			"External card sync returned no products. Check the card source configuration.", nil)
	}

	deactivated, err := s.db.DeactivateCardsNotSeen(CardKeyPrefix, seenKeys)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to deactivate stale external cards")
	}
	result.Deactivated = deactivated
	return result, nil
}

func buildExternalCard(row CardFeedProduct) (database.CardProduct, bool) {
	provider := strings.TrimSpace(row.ProviderName)
	name := strings.TrimSpace(row.ProductName)
	externalKey := strings.TrimSpace(row.ProductKey)
	if provider == "" || name == "" || externalKey == "" {
		return database.CardProduct{}, false
	}

	tags := []string{"external"}
	for _, tag := range row.Tags {
		normalized := normalization.Normalize(tag)
		if normalized == "" || normalized == "external" {
			continue
		}
		tags = append(tags, normalized)
	}

	categories := normalizedCardCategories(row.Categories)
	if len(categories) == 0 {
		categories = []string{normalization.CategoryOnline}
	}

	return database.CardProduct{
		ProductKey:    CardKeyPrefix + sanitizeIDPart(externalKey),
		ProviderName:  provider,
		ProductName:   name,
		AnnualFeeText: normalization.FirstNonBlank(row.AnnualFeeText, "연회비 정보 없음"),
		Summary:       normalization.FirstNonBlank(row.Summary, "외부 카드 데이터 동기화"),
		OfficialURL:   ensureURLScheme(normalization.FirstNonBlank(row.OfficialURL, cardFallbackURL)),
		Tags:          tags,
		Categories:    categories,
	}, true
}

func normalizedCardCategories(raw []string) []string {
	canonical := normalization.CanonicalCategories(raw)
	var categories []string
	for category := range canonical {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// sanitizeIDPart makes a raw identifier safe for a catalog key.
func sanitizeIDPart(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "na"
	}

	var builder strings.Builder
	for _, r := range strings.ToLower(trimmed) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			builder.WriteRune(r)
		} else {
			builder.WriteByte('-')
		}
	}
	return builder.String()
}

func nonBlankValues(values []string) []string {
	var result []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
