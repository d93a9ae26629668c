package services

import (
	"sort"
	"strings"
	"time"

	"benepick/database"
	"benepick/quality"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

// AnalyticsService aggregates click-through behavior for a single run.
type AnalyticsService struct {
	db *database.CatalogDB
}

func NewAnalyticsService(db *database.CatalogDB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

type categoryAggregate struct {
	key               string
	label             string
	recommended       int
	redirects         int
	uniqueClickedKeys map[string]struct{}
}

// GetRunAnalytics reports the top clicked products and per-category click
// rates of one run.
func (s *AnalyticsService) GetRunAnalytics(runID string) (*types.RecommendationAnalyticsResponse, error) {
	run, items, err := s.db.GetRun(runID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load recommendation run")
	}
	if run == nil {
		return nil, apperrors.NewNotFoundError("Recommendation run not found", nil)
	}

	events, err := s.db.ListRedirectEventsForRun(runID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load redirect events")
	}

	categoryByItemKey, err := s.resolveItemCategories(items)
	if err != nil {
		return nil, err
	}

	itemByKey := map[string]database.RecommendationItem{}
	aggregates := map[string]*categoryAggregate{}
	for _, item := range items {
		itemKey := buildItemKey(item.ProductType, item.ProductID)
		itemByKey[itemKey] = item

		categoryKey := categoryByItemKey[itemKey]
		aggregate := ensureAggregate(aggregates, categoryKey)
		aggregate.recommended++
	}

	clickCountByKey := map[string]int{}
	lastClickedByKey := map[string]time.Time{}
	for _, event := range events {
		key := buildItemKey(event.ProductType, event.ProductID)
		clickCountByKey[key]++
		if previous, ok := lastClickedByKey[key]; !ok || event.ClickedAt.After(previous) {
			lastClickedByKey[key] = event.ClickedAt
		}

		if categoryKey, ok := categoryByItemKey[key]; ok {
			aggregate := ensureAggregate(aggregates, categoryKey)
			aggregate.redirects++
			aggregate.uniqueClickedKeys[key] = struct{}{}
		}
	}

	var topClicked []types.RecommendationClickStat
	for key, count := range clickCountByKey {
		item, ok := itemByKey[key]
		if !ok {
			continue
		}
		stat := types.RecommendationClickStat{
			ProductType: item.ProductType,
			ProductID:   item.ProductID,
			Provider:    item.ProviderName,
			Name:        item.ProductName,
			Rank:        item.Rank,
			ClickCount:  count,
		}
		if clickedAt, ok := lastClickedByKey[key]; ok {
			at := clickedAt
			stat.LastClickedAt = &at
		}
		topClicked = append(topClicked, stat)
	}
	sort.SliceStable(topClicked, func(i, j int) bool {
		if topClicked[i].ClickCount != topClicked[j].ClickCount {
			return topClicked[i].ClickCount > topClicked[j].ClickCount
		}
		left, right := topClicked[i].LastClickedAt, topClicked[j].LastClickedAt
		if left == nil {
			return false
		}
		if right == nil {
			return true
		}
		return left.After(*right)
	})
	if len(topClicked) > 5 {
		topClicked = topClicked[:5]
	}

	categoryStats := make([]types.RecommendationCategoryStat, 0, len(aggregates))
	for _, aggregate := range aggregates {
		uniqueClicked := len(aggregate.uniqueClickedKeys)
		categoryStats = append(categoryStats, types.RecommendationCategoryStat{
			CategoryKey:           aggregate.key,
			CategoryLabel:         aggregate.label,
			RecommendedProducts:   aggregate.recommended,
			TotalRedirects:        aggregate.redirects,
			UniqueClickedProducts: uniqueClicked,
			ClickRatePercent:      quality.RatePercent(aggregate.redirects, aggregate.recommended),
			ConversionRatePercent: quality.RatePercent(uniqueClicked, aggregate.recommended),
		})
	}
	sort.SliceStable(categoryStats, func(i, j int) bool {
		if categoryStats[i].TotalRedirects != categoryStats[j].TotalRedirects {
			return categoryStats[i].TotalRedirects > categoryStats[j].TotalRedirects
		}
		return categoryStats[i].RecommendedProducts > categoryStats[j].RecommendedProducts
	})

	uniqueClicked := 0
	for key := range clickCountByKey {
		if _, ok := itemByKey[key]; ok {
			uniqueClicked++
		}
	}

	return &types.RecommendationAnalyticsResponse{
		RunID:                    runID,
		TotalRecommendationItems: len(items),
		TotalRedirects:           len(events),
		UniqueClickedProducts:    uniqueClicked,
		UniqueClickRatePercent:   quality.RatePercent(uniqueClicked, len(items)),
		TopClickedProducts:       topClicked,
		CategoryStats:            categoryStats,
	}, nil
}

// resolveItemCategories classifies each run item through the live catalog's
// tags; products no longer in the catalog fall into "other".
func (s *AnalyticsService) resolveItemCategories(items []database.RecommendationItem) (map[string]string, error) {
	accounts, err := s.db.ListActiveAccounts()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load account catalog")
	}
	cards, err := s.db.ListActiveCards()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load card catalog")
	}

	accountTags := make(map[string][]string, len(accounts))
	for _, account := range accounts {
		accountTags[account.ProductKey] = account.Tags
	}
	cardTags := make(map[string][]string, len(cards))
	cardCategories := make(map[string][]string, len(cards))
	for _, card := range cards {
		cardTags[card.ProductKey] = card.Tags
		cardCategories[card.ProductKey] = card.Categories
	}

	categories := make(map[string]string, len(items))
	for _, item := range items {
		itemKey := buildItemKey(item.ProductType, item.ProductID)
		switch strings.ToUpper(item.ProductType) {
		case "ACCOUNT":
			categories[itemKey] = quality.ClassifyAccount(accountTags[item.ProductID])
		case "CARD":
			categories[itemKey] = quality.ClassifyCard(cardTags[item.ProductID], cardCategories[item.ProductID])
		default:
			categories[itemKey] = quality.CategoryOther
		}
	}
	return categories, nil
}

func ensureAggregate(aggregates map[string]*categoryAggregate, categoryKey string) *categoryAggregate {
	if aggregate, ok := aggregates[categoryKey]; ok {
		return aggregate
	}
	aggregate := &categoryAggregate{
		key:               categoryKey,
		label:             quality.LabelFor(categoryKey),
		uniqueClickedKeys: map[string]struct{}{},
	}
	aggregates[categoryKey] = aggregate
	return aggregate
}

func buildItemKey(productType, productID string) string {
	return productType + "::" + productID
}
