package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"benepick/database"
	"benepick/normalization"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

const cardStatOnlyTag = "stat-only"

// RecommendationService scores the catalog against a user profile, persists
// each simulation run and serves the stored runs back.
type RecommendationService struct {
	db        *database.CatalogDB
	overrides *URLOverrideService
	profile   string
	logger    LoggerInterface
	now       func() time.Time
}

func NewRecommendationService(db *database.CatalogDB, overrides *URLOverrideService, scoringProfile string, logger LoggerInterface) *RecommendationService {
	if logger == nil {
		logger = newDefaultLogger()
	}
	return &RecommendationService{
		db:        db,
		overrides: overrides,
		profile:   scoringProfile,
		logger:    logger,
		now:       time.Now,
	}
}

// Simulate ranks accounts and cards for the request, saves the run and
// returns the ranked items with bundle suggestions.
func (s *RecommendationService) Simulate(request types.SimulateRecommendationRequest) (*types.RecommendationRunResponse, error) {
	if err := validateSimulateRequest(request); err != nil {
		return nil, err
	}

	profile := buildUserProfile(request)

	accounts, accountURLs, err := s.rankAccounts(profile)
	if err != nil {
		return nil, err
	}
	cards, cardURLs, err := s.rankCards(profile)
	if err != nil {
		return nil, err
	}

	totalScore := 0
	for _, item := range accounts {
		totalScore += item.Score
	}
	for _, item := range cards {
		totalScore += item.Score
	}
	expectedNetMonthlyProfit := totalScore * 120

	run := database.RecommendationRun{
		ID:                       uuid.NewString(),
		Priority:                 strings.ToUpper(strings.TrimSpace(request.Priority)),
		ExpectedNetMonthlyProfit: expectedNetMonthlyProfit,
		CreatedAt:                s.now(),
	}

	var savedItems []database.RecommendationItem
	savedItems = append(savedItems, toRunItems(run.ID, accounts, accountURLs)...)
	savedItems = append(savedItems, toRunItems(run.ID, cards, cardURLs)...)
	if err := s.db.InsertRun(run, savedItems); err != nil {
		return nil, apperrors.WrapError(err, "failed to persist recommendation run")
	}

	s.logger.Info("recommendation run saved",
		"runId", run.ID,
		"priority", run.Priority,
		"accounts", len(accounts),
		"cards", len(cards),
		"expectedNetMonthlyProfit", expectedNetMonthlyProfit)

	return &types.RecommendationRunResponse{
		RunID:                    run.ID,
		Priority:                 normalization.Normalize(run.Priority),
		ExpectedNetMonthlyProfit: expectedNetMonthlyProfit,
		Accounts:                 accounts,
		Cards:                    cards,
		Bundles:                  buildBundles(accounts, cards),
	}, nil
}

// GetRun rebuilds a stored run: monetary estimates come from the saved
// reason text and detail fields are resolved against the current catalog.
func (s *RecommendationService) GetRun(runID string) (*types.RecommendationRunResponse, error) {
	run, items, err := s.db.GetRun(runID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load recommendation run")
	}
	if run == nil {
		return nil, apperrors.NewNotFoundError("Recommendation run not found", nil)
	}

	var accounts, cards []types.RecommendationItem
	for _, item := range items {
		response, err := s.toItemResponse(item)
		if err != nil {
			return nil, err
		}
		switch item.ProductType {
		case "ACCOUNT":
			accounts = append(accounts, response)
		case "CARD":
			cards = append(cards, response)
		}
	}

	return &types.RecommendationRunResponse{
		RunID:                    run.ID,
		Priority:                 normalization.Normalize(run.Priority),
		ExpectedNetMonthlyProfit: run.ExpectedNetMonthlyProfit,
		Accounts:                 accounts,
		Cards:                    cards,
		Bundles:                  buildBundles(accounts, cards),
	}, nil
}

// GetRecentRuns lists the newest runs. The limit is clamped to 1..30.
func (s *RecommendationService) GetRecentRuns(limit int) ([]types.RecommendationRunHistoryItem, error) {
	normalizedLimit := max(1, min(limit, 30))

	entries, err := s.db.ListRecentRuns(normalizedLimit)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load run history")
	}

	history := make([]types.RecommendationRunHistoryItem, 0, len(entries))
	for _, entry := range entries {
		history = append(history, types.RecommendationRunHistoryItem{
			RunID:                    entry.Run.ID,
			Priority:                 normalization.Normalize(entry.Run.Priority),
			ExpectedNetMonthlyProfit: entry.Run.ExpectedNetMonthlyProfit,
			RedirectCount:            entry.RedirectCount,
			CreatedAt:                entry.Run.CreatedAt,
		})
	}
	return history, nil
}

// Redirect resolves the official URL of a recommended product and records
// the click-through event.
func (s *RecommendationService) Redirect(runID string, request types.RecommendationRedirectRequest, userAgent, ipAddress, referrer string) (*types.RecommendationRedirectResponse, error) {
	run, _, err := s.db.GetRun(runID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load recommendation run")
	}
	if run == nil {
		return nil, apperrors.NewNotFoundError("Recommendation run not found", nil)
	}

	productType := strings.ToUpper(strings.TrimSpace(request.ProductType))
	item, err := s.db.FindRunItem(runID, productType, request.ProductID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load recommendation item")
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("Recommendation item not found", nil)
	}

	redirectURL, err := s.resolveRedirectOfficialURL(*item, productType)
	if err != nil {
		return nil, err
	}

	event := database.RedirectEvent{
		ID:          uuid.NewString(),
		RunID:       runID,
		ProductType: productType,
		ProductID:   request.ProductID,
		OfficialURL: redirectURL,
		ClickedAt:   s.now(),
		UserAgent:   userAgent,
		IPAddress:   ipAddress,
		Referrer:    referrer,
	}
	if err := s.db.InsertRedirectEvent(event); err != nil {
		return nil, apperrors.WrapError(err, "failed to record redirect event")
	}

	return &types.RecommendationRedirectResponse{RedirectURL: redirectURL}, nil
}

func (s *RecommendationService) rankAccounts(profile userProfile) ([]types.RecommendationItem, []string, error) {
	candidates, err := s.db.ListActiveAccounts()
	if err != nil {
		return nil, nil, apperrors.WrapError(err, "failed to load account catalog")
	}
	if len(candidates) == 0 {
		return nil, nil, apperrors.NewCatalogEmptyError("Account catalog is empty", nil)
	}

	weights := ResolveAccountWeights(s.profile)
	intentSignals := buildAccountIntentSignals(profile, weights)

	scored := make([]scoredProduct, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, s.scoreAccount(candidate, profile, weights, intentSignals, s.overrides))
	}

	items := rankTop(scored)
	return items, topOfficialURLs(scored, len(items)), nil
}

func (s *RecommendationService) rankCards(profile userProfile) ([]types.RecommendationItem, []string, error) {
	candidates, err := s.db.ListActiveCards()
	if err != nil {
		return nil, nil, apperrors.WrapError(err, "failed to load card catalog")
	}

	scorable := make([]database.CardProduct, 0, len(candidates))
	for _, candidate := range candidates {
		if hasAny(lowerSet(candidate.Tags), cardStatOnlyTag) {
			continue
		}
		scorable = append(scorable, candidate)
	}
	if len(scorable) == 0 {
		return nil, nil, apperrors.NewCatalogEmptyError("Card catalog is empty", nil)
	}

	weights := ResolveCardWeights(s.profile)

	scored := make([]scoredProduct, 0, len(scorable))
	for _, candidate := range scorable {
		scored = append(scored, s.scoreCard(candidate, profile, weights, s.overrides))
	}

	items := rankTop(scored)
	return items, topOfficialURLs(scored, len(items)), nil
}

// topOfficialURLs reads the resolved URLs of the top entries after rankTop
// sorted the slice in place.
func topOfficialURLs(scored []scoredProduct, count int) []string {
	urls := make([]string, 0, count)
	for i := 0; i < count; i++ {
		urls = append(urls, scored[i].officialURL)
	}
	return urls
}

func toRunItems(runID string, items []types.RecommendationItem, officialURLs []string) []database.RecommendationItem {
	entities := make([]database.RecommendationItem, 0, len(items))
	for i, item := range items {
		entities = append(entities, database.RecommendationItem{
			ID:           uuid.NewString(),
			RunID:        runID,
			Rank:         item.Rank,
			ProductType:  limitLength(item.ProductType, 20),
			ProductID:    limitLength(item.ProductID, 80),
			ProviderName: limitLength(item.Provider, 80),
			ProductName:  limitLength(item.Name, 120),
			Summary:      item.Summary,
			Meta:         limitLength(item.Meta, 120),
			Score:        item.Score,
			ReasonText:   limitLength(item.Reason, 280),
			OfficialURL:  officialURLs[i],
		})
	}
	return entities
}

func (s *RecommendationService) toItemResponse(item database.RecommendationItem) (types.RecommendationItem, error) {
	estimate := estimateProductBenefit(item.ProductType, item.Score, nil, item.ReasonText)

	detailFields, err := s.resolveDetailFields(item)
	if err != nil {
		return types.RecommendationItem{}, err
	}

	return types.RecommendationItem{
		Rank:                      item.Rank,
		ProductType:               item.ProductType,
		ProductID:                 item.ProductID,
		Provider:                  item.ProviderName,
		Name:                      item.ProductName,
		Summary:                   item.Summary,
		Meta:                      item.Meta,
		Score:                     item.Score,
		Reason:                    item.ReasonText,
		MinExpectedMonthlyBenefit: estimate.min,
		ExpectedMonthlyBenefit:    estimate.expected,
		MaxExpectedMonthlyBenefit: estimate.max,
		EstimateMethod:            estimate.method,
		BenefitComponents:         estimate.components,
		DetailFields:              detailFields,
	}, nil
}

// resolveDetailFields rebuilds the detail card from the current catalog and
// falls back to the snapshot stored with the run when the product is gone.
func (s *RecommendationService) resolveDetailFields(item database.RecommendationItem) ([]types.RecommendationDetailField, error) {
	switch item.ProductType {
	case "ACCOUNT":
		account, err := s.db.GetAccountByKey(item.ProductID)
		if err != nil {
			return nil, apperrors.WrapError(err, "failed to resolve account detail")
		}
		if account != nil {
			resolvedURL := s.overrides.ResolveOrDefault("ACCOUNT", account.ProviderName, account.ProductName, account.ProductKey, account.OfficialURL)
			return buildAccountDetailFields(*account, resolvedURL), nil
		}
	case "CARD":
		card, err := s.db.GetCardByKey(item.ProductID)
		if err != nil {
			return nil, apperrors.WrapError(err, "failed to resolve card detail")
		}
		if card != nil {
			resolvedURL := s.overrides.ResolveOrDefault("CARD", card.ProviderName, card.ProductName, card.ProductKey, card.OfficialURL)
			return buildCardDetailFields(*card, resolvedURL), nil
		}
	}

	fallbackURL := s.overrides.ResolveOrDefault(item.ProductType, item.ProviderName, item.ProductName, item.ProductID, item.OfficialURL)
	return buildFallbackDetailFields(item, fallbackURL), nil
}

// resolveRedirectOfficialURL prefers the live catalog URL over the snapshot,
// applies overrides and normalizes through the link plan.
func (s *RecommendationService) resolveRedirectOfficialURL(item database.RecommendationItem, productType string) (string, error) {
	catalogURL := item.OfficialURL

	switch productType {
	case "ACCOUNT":
		account, err := s.db.GetAccountByKey(item.ProductID)
		if err != nil {
			return "", apperrors.WrapError(err, "failed to resolve account redirect URL")
		}
		if account != nil && normalization.Normalize(account.OfficialURL) != "" {
			catalogURL = account.OfficialURL
		}
	case "CARD":
		card, err := s.db.GetCardByKey(item.ProductID)
		if err != nil {
			return "", apperrors.WrapError(err, "failed to resolve card redirect URL")
		}
		if card != nil && normalization.Normalize(card.OfficialURL) != "" {
			catalogURL = card.OfficialURL
		}
	}

	resolved := s.overrides.ResolveOrDefault(productType, item.ProviderName, item.ProductName, item.ProductID, catalogURL)
	return resolveOfficialLinkPlan(resolved).redirectURL, nil
}

func validateSimulateRequest(request types.SimulateRecommendationRequest) error {
	switch {
	case request.Age == nil || *request.Age < 19 || *request.Age > 100:
		return apperrors.NewValidationError("age must be between 19 and 100", nil)
	case request.Income == nil || *request.Income < 0:
		return apperrors.NewValidationError("income must be zero or positive", nil)
	case request.MonthlySpend == nil || *request.MonthlySpend < 0:
		return apperrors.NewValidationError("monthlySpend must be zero or positive", nil)
	case strings.TrimSpace(request.Priority) == "":
		return apperrors.NewValidationError("priority is required", nil)
	case strings.TrimSpace(request.SalaryTransfer) == "":
		return apperrors.NewValidationError("salaryTransfer is required", nil)
	case strings.TrimSpace(request.TravelLevel) == "":
		return apperrors.NewValidationError("travelLevel is required", nil)
	case request.Categories == nil:
		return apperrors.NewValidationError("categories is required", nil)
	}
	return nil
}

// limitLength truncates stored columns, keeping an ellipsis when there is
// room for one.
func limitLength(value string, maxLength int) string {
	runes := []rune(value)
	if len(runes) <= maxLength {
		return value
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
