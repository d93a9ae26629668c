package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"benepick/database"
	"benepick/internal/config"
	"benepick/quality"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

const (
	qualityEmptyWindowNote = "분석 기간 내 추천 실행 이력이 없습니다."
	qualityNoSnapshotNote  = "아직 저장된 품질 집계가 없습니다."
)

// QualityLoopService computes CTR/CVR metrics over a rolling window of runs
// and derives weight-tuning suggestions per product category.
type QualityLoopService struct {
	db     *database.CatalogDB
	cfg    config.QualityLoopConfig
	logger LoggerInterface
	now    func() time.Time
}

func NewQualityLoopService(db *database.CatalogDB, cfg config.QualityLoopConfig, logger LoggerInterface) *QualityLoopService {
	if logger == nil {
		logger = newDefaultLogger()
	}
	return &QualityLoopService{
		db:     db,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *QualityLoopService) thresholds() quality.Thresholds {
	return quality.Thresholds{
		MinRecommended:   s.cfg.MinRecommended,
		LowCtrPercent:    s.cfg.LowCtr,
		HighCtrPercent:   s.cfg.HighCtr,
		LowCvrPercent:    s.cfg.LowCvr,
		HighCvrPercent:   s.cfg.HighCvr,
		MaxAdjustPercent: s.cfg.MaxAdjustment,
	}
}

// RecomputeAndStore aggregates the window, persists the snapshot and returns
// the stored report.
func (s *QualityLoopService) RecomputeAndStore(triggerSource string) (*types.QualityReportResponse, error) {
	windowEnd := s.now()
	windowDays := max(1, s.cfg.WindowDays)
	windowStart := windowEnd.AddDate(0, 0, -windowDays)

	snapshot := database.QualitySnapshot{
		ID:            uuid.NewString(),
		TriggerSource: defaultTrigger(triggerSource),
		GeneratedAt:   windowEnd,
		WindowStartAt: windowStart,
		WindowEndAt:   windowEnd,
	}

	metrics, err := s.compute(&snapshot, windowStart)
	if err != nil {
		return nil, err
	}

	if err := s.db.InsertQualitySnapshot(snapshot, metrics); err != nil {
		return nil, apperrors.WrapError(err, "failed to store quality snapshot")
	}

	s.logger.Info("quality snapshot stored",
		"snapshotId", snapshot.ID,
		"trigger", snapshot.TriggerSource,
		"totalRuns", snapshot.TotalRuns,
		"ctrPercent", snapshot.CtrPercent)

	return toQualityReport(snapshot, metrics), nil
}

// GetLatestReport returns the most recent stored snapshot, or an empty
// placeholder report when the loop never ran.
func (s *QualityLoopService) GetLatestReport() (*types.QualityReportResponse, error) {
	snapshot, metrics, err := s.db.GetLatestQualitySnapshot()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load latest quality snapshot")
	}
	if snapshot == nil {
		now := s.now()
		return &types.QualityReportResponse{
			TriggerSource: "none",
			GeneratedAt:   &now,
			WindowStartAt: &now,
			WindowEndAt:   &now,
			Notes:         qualityNoSnapshotNote,
			Categories:    []types.QualityCategoryMetric{},
		}, nil
	}
	return toQualityReport(*snapshot, metrics), nil
}

func (s *QualityLoopService) compute(snapshot *database.QualitySnapshot, windowStart time.Time) ([]database.QualityCategoryMetric, error) {
	totalRuns, err := s.db.CountRunsSince(windowStart)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to count runs in window")
	}
	if totalRuns == 0 {
		snapshot.Notes = qualityEmptyWindowNote
		return nil, nil
	}

	items, err := s.db.ListItemsSince(windowStart)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load items in window")
	}
	events, err := s.db.ListRedirectEventsSince(windowStart)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load redirect events in window")
	}

	categoryByRunItemKey, err := s.classifyWindowItems(items)
	if err != nil {
		return nil, err
	}

	aggregates := map[string]*categoryAggregate{}
	productByRunItemKey := make(map[string]string, len(items))
	for _, item := range items {
		runItemKey := buildRunItemKey(item.RunID, item.ProductType, item.ProductID)
		productByRunItemKey[runItemKey] = buildProductKey(item.ProductType, item.ProductID)

		aggregate := ensureAggregate(aggregates, categoryByRunItemKey[runItemKey])
		aggregate.recommended++
	}

	totalRedirects := 0
	uniqueClickedProducts := map[string]struct{}{}
	for _, event := range events {
		runItemKey := buildRunItemKey(event.RunID, event.ProductType, event.ProductID)
		categoryKey, ok := categoryByRunItemKey[runItemKey]
		if !ok {
			continue
		}

		aggregate := ensureAggregate(aggregates, categoryKey)
		totalRedirects++
		aggregate.redirects++

		productKey, ok := productByRunItemKey[runItemKey]
		if !ok {
			productKey = buildProductKey(event.ProductType, event.ProductID)
		}
		aggregate.uniqueClickedKeys[productKey] = struct{}{}
		uniqueClickedProducts[productKey] = struct{}{}
	}

	snapshot.TotalRuns = totalRuns
	snapshot.TotalItems = len(items)
	snapshot.TotalRedirects = totalRedirects
	snapshot.UniqueClicked = len(uniqueClickedProducts)
	snapshot.CtrPercent = quality.RatePercent(totalRedirects, len(items))
	snapshot.CvrPercent = quality.RatePercent(len(uniqueClickedProducts), len(items))
	snapshot.Notes = "최근 " + strconv.Itoa(s.cfg.WindowDays) + "일 추천 " + strconv.Itoa(totalRuns) + "건 기준 자동 집계"

	thresholds := s.thresholds()
	metrics := make([]database.QualityCategoryMetric, 0, len(aggregates))
	for _, aggregate := range aggregates {
		uniqueClicked := len(aggregate.uniqueClickedKeys)
		ctr := quality.RatePercent(aggregate.redirects, aggregate.recommended)
		cvr := quality.RatePercent(uniqueClicked, aggregate.recommended)
		suggestion := quality.Suggest(aggregate.recommended, ctr, cvr, thresholds)

		metrics = append(metrics, database.QualityCategoryMetric{
			SnapshotID:         snapshot.ID,
			CategoryKey:        aggregate.key,
			CategoryLabel:      aggregate.label,
			RecommendedCount:   aggregate.recommended,
			RedirectCount:      aggregate.redirects,
			UniqueClickedCount: uniqueClicked,
			CtrPercent:         ctr,
			CvrPercent:         cvr,
			SuggestedAction:    suggestion.Action,
			SuggestedDelta:     suggestion.DeltaPercent,
			Evidence:           quality.Evidence(aggregate.recommended, aggregate.redirects, ctr, uniqueClicked, cvr),
		})
	}
	sort.SliceStable(metrics, func(i, j int) bool {
		if metrics[i].RedirectCount != metrics[j].RedirectCount {
			return metrics[i].RedirectCount > metrics[j].RedirectCount
		}
		return metrics[i].RecommendedCount > metrics[j].RecommendedCount
	})
	return metrics, nil
}

func (s *QualityLoopService) classifyWindowItems(items []database.RecommendationItem) (map[string]string, error) {
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
		runItemKey := buildRunItemKey(item.RunID, item.ProductType, item.ProductID)
		switch strings.ToUpper(item.ProductType) {
		case "ACCOUNT":
			categories[runItemKey] = quality.ClassifyAccount(accountTags[item.ProductID])
		case "CARD":
			categories[runItemKey] = quality.ClassifyCard(cardTags[item.ProductID], cardCategories[item.ProductID])
		default:
			categories[runItemKey] = quality.CategoryOther
		}
	}
	return categories, nil
}

func toQualityReport(snapshot database.QualitySnapshot, metrics []database.QualityCategoryMetric) *types.QualityReportResponse {
	categories := make([]types.QualityCategoryMetric, 0, len(metrics))
	for _, metric := range metrics {
		categories = append(categories, types.QualityCategoryMetric{
			CategoryKey:                 metric.CategoryKey,
			CategoryLabel:               metric.CategoryLabel,
			RecommendedProducts:         metric.RecommendedCount,
			TotalRedirects:              metric.RedirectCount,
			UniqueClickedProducts:       metric.UniqueClickedCount,
			CtrPercent:                  metric.CtrPercent,
			CvrPercent:                  metric.CvrPercent,
			SuggestedAction:             metric.SuggestedAction,
			SuggestedWeightDeltaPercent: metric.SuggestedDelta,
			Evidence:                    metric.Evidence,
		})
	}

	generatedAt := snapshot.GeneratedAt
	windowStartAt := snapshot.WindowStartAt
	windowEndAt := snapshot.WindowEndAt
	return &types.QualityReportResponse{
		SnapshotID:               snapshot.ID,
		TriggerSource:            snapshot.TriggerSource,
		GeneratedAt:              &generatedAt,
		WindowStartAt:            &windowStartAt,
		WindowEndAt:              &windowEndAt,
		TotalRuns:                snapshot.TotalRuns,
		TotalRecommendationItems: snapshot.TotalItems,
		TotalRedirects:           snapshot.TotalRedirects,
		UniqueClickedProducts:    snapshot.UniqueClicked,
		OverallCtrPercent:        snapshot.CtrPercent,
		OverallCvrPercent:        snapshot.CvrPercent,
		Notes:                    snapshot.Notes,
		Categories:               categories,
	}
}

func defaultTrigger(triggerSource string) string {
	if trimmed := strings.TrimSpace(triggerSource); trimmed != "" {
		return trimmed
	}
	return "manual"
}

func buildRunItemKey(runID, productType, productID string) string {
	return runID + "::" + strings.ToLower(strings.TrimSpace(productType)) + "::" + strings.ToLower(strings.TrimSpace(productID))
}

func buildProductKey(productType, productID string) string {
	return strings.ToLower(strings.TrimSpace(productType)) + "::" + strings.ToLower(strings.TrimSpace(productID))
}
