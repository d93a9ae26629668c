package services

import (
	"sort"
	"strconv"
	"strings"

	"benepick/database"
	"benepick/normalization"
	"benepick/server/types"
)

// scorePart is one applied rule in the itemized score breakdown.
type scorePart struct {
	label  string
	points int
}

// scoredProduct carries everything the ranked response needs for one product.
type scoredProduct struct {
	productType  string
	productID    string
	provider     string
	name         string
	summary      string
	meta         string
	score        int
	reason       string
	estimate     productBenefitEstimate
	officialURL  string
	detailFields []types.RecommendationDetailField
}

func addScorePart(parts *[]scorePart, label string, points int) {
	if points == 0 {
		return
	}
	*parts = append(*parts, scorePart{label: label, points: points})
}

// userProfile is the validated, normalized simulate request.
type userProfile struct {
	age               int
	monthlySpend      int
	salaryTransfer    string
	travelLevel       string
	accountPriority   string
	cardPriority      string
	accountCategories map[string]struct{}
	cardCategories    map[string]struct{}
}

func buildUserProfile(request types.SimulateRecommendationRequest) userProfile {
	accountCategories := normalization.CanonicalCategories(request.AccountCategories)
	if len(accountCategories) == 0 {
		accountCategories = normalization.CanonicalCategories(request.Categories)
	}
	cardCategories := normalization.CanonicalCategories(request.CardCategories)
	if len(cardCategories) == 0 {
		cardCategories = normalization.CanonicalCategories(request.Categories)
	}

	return userProfile{
		age:               *request.Age,
		monthlySpend:      *request.MonthlySpend,
		salaryTransfer:    normalization.Normalize(request.SalaryTransfer),
		travelLevel:       normalization.Normalize(request.TravelLevel),
		accountPriority:   resolveAccountPriority(request),
		cardPriority:      resolveCardPriority(request),
		accountCategories: accountCategories,
		cardCategories:    cardCategories,
	}
}

// resolveAccountPriority picks the account-specific priority and maps the
// card-only annualfee priority to starter.
func resolveAccountPriority(request types.SimulateRecommendationRequest) string {
	priority := normalization.NormalizePriority(request.AccountPriority)
	if priority == "" {
		priority = normalization.NormalizePriority(request.Priority)
	}
	if priority == "annualfee" {
		return "starter"
	}
	return priority
}

// resolveCardPriority picks the card-specific priority and maps the
// account-only salary priority to cashback.
func resolveCardPriority(request types.SimulateRecommendationRequest) string {
	priority := normalization.NormalizePriority(request.CardPriority)
	if priority == "" {
		priority = normalization.NormalizePriority(request.Priority)
	}
	if priority == "salary" {
		return "cashback"
	}
	return priority
}

// buildAccountIntentSignals derives the user's intent signals for the
// matched-signal bonus.
func buildAccountIntentSignals(profile userProfile, weights AccountWeights) map[string]struct{} {
	signals := map[string]struct{}{}

	if profile.salaryTransfer == "yes" {
		signals["salary"] = struct{}{}
	}

	switch profile.accountPriority {
	case "travel":
		signals["travel"] = struct{}{}
		signals["global"] = struct{}{}
	case "savings":
		signals["savings"] = struct{}{}
	case "starter":
		signals["starter"] = struct{}{}
	case "salary":
		signals["salary"] = struct{}{}
		signals["daily"] = struct{}{}
	case "cashback":
		signals["daily"] = struct{}{}
	}

	if profile.travelLevel == "often" || profile.travelLevel == "sometimes" {
		signals["travel"] = struct{}{}
	}
	if normalization.HasLifestyleCategory(profile.accountCategories) ||
		profile.monthlySpend >= weights.DailySpendThreshold {
		signals["daily"] = struct{}{}
	}
	if profile.age <= weights.YoungAgeMax {
		signals["starter"] = struct{}{}
	}
	return signals
}

// deriveAccountSignals collects the product-side signals of an account from
// its tags, text and account kind.
func deriveAccountSignals(account database.AccountProduct) map[string]struct{} {
	signals := normalization.CanonicalCategories(account.Tags)
	mergeSets(signals, normalization.CategoriesFromText(account.ProductName))
	mergeSets(signals, normalization.CategoriesFromText(account.Summary))
	mergeSets(signals, normalization.CategoriesFromText(account.AccountKind))

	kind := normalization.Normalize(account.AccountKind)
	if strings.Contains(kind, "예금") || strings.Contains(kind, "적금") {
		signals["savings"] = struct{}{}
	}
	if strings.Contains(kind, "외화") {
		signals["global"] = struct{}{}
		signals["travel"] = struct{}{}
	}
	if strings.Contains(kind, "입출금") {
		signals["daily"] = struct{}{}
	}
	return signals
}

// deriveCardCategories collects the card-side category signals from explicit
// categories, tags and text.
func deriveCardCategories(card database.CardProduct) map[string]struct{} {
	categories := normalization.CanonicalCategories(card.Categories)
	mergeSets(categories, normalization.CanonicalCategories(card.Tags))
	mergeSets(categories, normalization.CategoriesFromText(card.ProductName))
	mergeSets(categories, normalization.CategoriesFromText(card.Summary))

	tags := lowerSet(card.Tags)
	if hasAny(tags, "travel", "mileage") {
		categories["travel"] = struct{}{}
	}
	if hasAny(tags, "starter", "no-fee", "nofee") {
		categories["starter"] = struct{}{}
	}
	if hasAny(tags, "daily", "cashback") {
		categories["daily"] = struct{}{}
	}
	return categories
}

func (s *RecommendationService) scoreAccount(
	account database.AccountProduct,
	profile userProfile,
	weights AccountWeights,
	intentSignals map[string]struct{},
	overrides *URLOverrideService,
) scoredProduct {
	score := weights.BaseScore
	var reasons []string
	var parts []scorePart
	addScorePart(&parts, "기본점수", weights.BaseScore)

	accountSignals := deriveAccountSignals(account)
	matchedIntent := intersection(accountSignals, intentSignals)

	rateInfo := normalization.ExtractRateInfo(account.Summary)
	if rateInfo.MaxRate != nil {
		reasons = append(reasons, "최고 금리 "+normalization.FormatPercent(*rateInfo.MaxRate)+"% (상품 요약 기준)")
		if *rateInfo.MaxRate >= weights.HighRateThreshold {
			score += weights.HighRateBonus
			addScorePart(&parts, "고금리 보너스", weights.HighRateBonus)
		}
	}
	if rateInfo.BaseRate != nil {
		reasons = append(reasons, "기본 금리 "+normalization.FormatPercent(*rateInfo.BaseRate)+"% 확인")
	}

	if profile.salaryTransfer == "yes" && hasSignal(accountSignals, "salary") {
		score += weights.SalaryTransfer
		addScorePart(&parts, "급여이체 우대", weights.SalaryTransfer)
		reasons = append(reasons, "급여이체 조건 충족 시 우대 혜택 가능")
	}

	switch profile.accountPriority {
	case "savings":
		if hasSignal(accountSignals, "savings") {
			score += weights.PrioritySavings
			addScorePart(&parts, "우선순위(저축/금리)", weights.PrioritySavings)
			reasons = append(reasons, "저축/금리 우선순위와 상품 성격 일치")
		}
	case "salary":
		if hasSignal(accountSignals, "salary") {
			score += weights.PrioritySalary
			addScorePart(&parts, "우선순위(급여이체/주거래)", weights.PrioritySalary)
			reasons = append(reasons, "급여이체/주거래 중심 우선순위와 일치")
		}
	case "starter":
		if hasSignal(accountSignals, "starter") {
			score += weights.PriorityStarter
			addScorePart(&parts, "우선순위(초보/저비용)", weights.PriorityStarter)
			reasons = append(reasons, "초기 이용자 친화 조건과 일치")
		}
	case "travel":
		if hasSignal(accountSignals, "travel") || hasSignal(accountSignals, "global") {
			score += weights.PriorityTravel
			addScorePart(&parts, "우선순위(여행/해외)", weights.PriorityTravel)
			reasons = append(reasons, "여행/외화 중심 우선순위 반영")
		}
	case "cashback":
		if hasSignal(accountSignals, "daily") || hasSignal(accountSignals, "salary") {
			score += weights.PriorityCashback
			addScorePart(&parts, "우선순위(생활할인)", weights.PriorityCashback)
			reasons = append(reasons, "생활소비 연동형 계좌 조건과 맞음")
		}
	}

	if profile.travelLevel == "often" &&
		(hasSignal(accountSignals, "global") || hasSignal(accountSignals, "travel")) {
		score += weights.TravelOftenGlobal
		addScorePart(&parts, "해외 이용 빈도", weights.TravelOftenGlobal)
		reasons = append(reasons, "해외 이용 빈도에 적합한 신호 확인")
	}

	if profile.age <= weights.YoungAgeMax && hasSignal(accountSignals, "starter") {
		score += weights.Young
		addScorePart(&parts, "연령 우대", weights.Young)
		reasons = append(reasons, "연령 구간에 맞는 우대/간편형 조건")
	}

	if profile.monthlySpend >= weights.DailySpendThreshold && hasSignal(accountSignals, "daily") {
		score += weights.DailySpend
		addScorePart(&parts, "생활비 흐름 매칭", weights.DailySpend)
		reasons = append(reasons, "생활비 흐름과 연결되는 계좌 패턴")
	}

	if len(matchedIntent) > 0 {
		bonus := len(matchedIntent) * weights.IntentCategoryHit
		score += bonus
		addScorePart(&parts, "의도 신호 일치 x"+strconv.Itoa(len(matchedIntent)), bonus)
		reasons = append(reasons, "일치 신호: "+normalization.LabelsOf(matchedIntent))
	}

	finalScore := max(0, score)
	reasonText := buildReasonText(reasons)
	estimate := estimateProductBenefit("ACCOUNT", finalScore, parts, reasonText)

	resolvedURL := overrides.ResolveOrDefault("ACCOUNT", account.ProviderName, account.ProductName, account.ProductKey, account.OfficialURL)

	return scoredProduct{
		productType:  "ACCOUNT",
		productID:    account.ProductKey,
		provider:     account.ProviderName,
		name:         account.ProductName,
		summary:      account.Summary,
		meta:         account.AccountKind + " 계좌",
		score:        finalScore,
		reason:       reasonText,
		estimate:     estimate,
		officialURL:  resolvedURL,
		detailFields: buildAccountDetailFields(account, resolvedURL),
	}
}

func (s *RecommendationService) scoreCard(
	card database.CardProduct,
	profile userProfile,
	weights CardWeights,
	overrides *URLOverrideService,
) scoredProduct {
	score := weights.BaseScore
	var reasons []string
	var parts []scorePart
	addScorePart(&parts, "기본점수", weights.BaseScore)

	tagSignals := normalization.CanonicalCategories(card.Tags)
	cardCategories := deriveCardCategories(card)
	matchedCategories := intersection(cardCategories, profile.cardCategories)

	if len(matchedCategories) > 0 {
		bonus := len(matchedCategories) * weights.CategoryHit
		score += bonus
		addScorePart(&parts, "카테고리 일치 x"+strconv.Itoa(len(matchedCategories)), bonus)
		reasons = append(reasons, "소비 카테고리 일치: "+normalization.LabelsOf(matchedCategories))
	}

	switch profile.cardPriority {
	case "cashback":
		if hasSignal(tagSignals, "daily") || hasSignal(tagSignals, "online") {
			score += weights.PriorityCashback
			addScorePart(&parts, "우선순위(생활할인)", weights.PriorityCashback)
			reasons = append(reasons, "생활 할인/캐시백 우선순위와 일치")
		}
	case "travel":
		if hasSignal(cardCategories, "travel") || hasSignal(tagSignals, "travel") {
			score += weights.PriorityTravel
			addScorePart(&parts, "우선순위(여행/해외)", weights.PriorityTravel)
			reasons = append(reasons, "여행/해외결제 우선순위 반영")
		}
	case "starter":
		if hasSignal(cardCategories, "starter") || hasSignal(tagSignals, "starter") {
			score += weights.PriorityStarter
			addScorePart(&parts, "우선순위(초보/저비용)", weights.PriorityStarter)
			reasons = append(reasons, "연회비 부담 최소 선호와 일치")
		}
	case "savings":
		if hasSignal(cardCategories, "daily") || hasSignal(tagSignals, "online") {
			score += weights.PrioritySavings
			addScorePart(&parts, "우선순위(저축/절감)", weights.PrioritySavings)
			reasons = append(reasons, "저축 우선순위에 맞는 고정비/생활비 절감형")
		}
	}

	if profile.travelLevel == "often" &&
		(hasSignal(cardCategories, "travel") || hasSignal(tagSignals, "travel")) {
		score += weights.TravelOften
		addScorePart(&parts, "해외 이용 빈도", weights.TravelOften)
		reasons = append(reasons, "해외 이용 빈도에 유리한 혜택 구성")
	}

	if profile.monthlySpend >= weights.DailySpendThreshold &&
		(hasSignal(tagSignals, "daily") || normalization.HasLifestyleCategory(cardCategories)) {
		score += weights.DailySpend
		addScorePart(&parts, "전월실적 달성 가능성", weights.DailySpend)
		reasons = append(reasons, "전월 실적 달성 가능성이 높은 소비 패턴")
	}

	feeText := normalization.NormalizeAnnualFeeText(card.AnnualFeeText)
	feeInfo := normalization.ParseAnnualFee(feeText)
	switch {
	case feeInfo.LowFee:
		score += weights.LowAnnualFeeBonus
		addScorePart(&parts, "연회비 저부담", weights.LowAnnualFeeBonus)
		reasons = append(reasons, "연회비 부담이 낮음 ("+feeText+")")
	case feeInfo.EstimatedWon != nil && *feeInfo.EstimatedWon >= weights.HighAnnualFeeThresholdWon:
		score -= weights.HighAnnualFeePenalty
		addScorePart(&parts, "연회비 패널티", -weights.HighAnnualFeePenalty)
		reasons = append(reasons, "연회비 수준 고려 필요 ("+feeText+")")
	default:
		reasons = append(reasons, "연회비 정보 반영 ("+feeText+")")
	}

	if profile.cardPriority == "annualfee" {
		if feeInfo.LowFee {
			score += weights.PriorityAnnualFee
			addScorePart(&parts, "우선순위(연회비 절감)", weights.PriorityAnnualFee)
			reasons = append(reasons, "연회비 절감 우선순위와 일치")
		} else if feeInfo.EstimatedWon != nil && *feeInfo.EstimatedWon >= weights.HighAnnualFeeThresholdWon {
			penalty := max(1, weights.PriorityAnnualFee/2)
			score -= penalty
			addScorePart(&parts, "우선순위(연회비 절감) 패널티", -penalty)
			reasons = append(reasons, "연회비 절감 우선순위 대비 비용 부담이 큼")
		}
	}

	quantified := normalization.SummarizeQuantifiedBenefits(card.Summary)
	if !strings.HasPrefix(quantified, "정량 혜택 정보 없음") {
		reasons = append(reasons, "혜택 수치: "+quantified)
	} else if highlight := normalization.SummaryHighlight(card.Summary); highlight != "" {
		reasons = append(reasons, "핵심 혜택: "+highlight)
	}

	finalScore := max(0, score)
	reasonText := buildReasonText(reasons)
	estimate := estimateProductBenefit("CARD", finalScore, parts, reasonText)

	resolvedURL := overrides.ResolveOrDefault("CARD", card.ProviderName, card.ProductName, card.ProductKey, card.OfficialURL)

	return scoredProduct{
		productType:  "CARD",
		productID:    card.ProductKey,
		provider:     card.ProviderName,
		name:         card.ProductName,
		summary:      card.Summary,
		meta:         feeText,
		score:        finalScore,
		reason:       reasonText,
		estimate:     estimate,
		officialURL:  resolvedURL,
		detailFields: buildCardDetailFields(card, resolvedURL),
	}
}

// rankTop sorts by score descending with provider/name tie-break, keeps the
// top 3 and converts them to ranked response items.
func rankTop(scored []scoredProduct) []types.RecommendationItem {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].provider != scored[j].provider {
			return scored[i].provider < scored[j].provider
		}
		return scored[i].name < scored[j].name
	})

	limit := len(scored)
	if limit > 3 {
		limit = 3
	}

	items := make([]types.RecommendationItem, 0, limit)
	for i := 0; i < limit; i++ {
		product := scored[i]
		items = append(items, types.RecommendationItem{
			Rank:                      i + 1,
			ProductType:               product.productType,
			ProductID:                 product.productID,
			Provider:                  product.provider,
			Name:                      product.name,
			Summary:                   product.summary,
			Meta:                      product.meta,
			Score:                     product.score,
			Reason:                    product.reason,
			MinExpectedMonthlyBenefit: product.estimate.min,
			ExpectedMonthlyBenefit:    product.estimate.expected,
			MaxExpectedMonthlyBenefit: product.estimate.max,
			EstimateMethod:            product.estimate.method,
			BenefitComponents:         product.estimate.components,
			DetailFields:              product.detailFields,
		})
	}
	return items
}

const tieBreakRule = "총점 동점 시 기관명/상품명 순"

// buildReasonText assembles the stored reason block: the deduplicated core
// reasons plus the tie-break note.
func buildReasonText(reasons []string) string {
	var lines []string
	if core := joinReasons(reasons, 6, " · "); core != "" {
		lines = append(lines, "핵심근거: "+core)
	}
	lines = append(lines, "동점처리: "+tieBreakRule)
	return strings.Join(lines, "\n")
}

// joinReasons deduplicates case-insensitively, keeps first occurrences and
// joins up to limit entries.
func joinReasons(reasons []string, limit int, delimiter string) string {
	if limit < 1 {
		limit = 1
	}

	seen := map[string]struct{}{}
	var deduplicated []string
	for _, reason := range reasons {
		normalized := normalization.Normalize(reason)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		deduplicated = append(deduplicated, reason)
		if len(deduplicated) >= limit {
			break
		}
	}
	return strings.Join(deduplicated, delimiter)
}

// extractCoreReason pulls the 핵심근거 line out of a stored reason block.
func extractCoreReason(reasonText string) string {
	if strings.TrimSpace(reasonText) == "" {
		return "기본 조건 기반 추천"
	}

	for _, line := range strings.Split(reasonText, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "핵심근거:") {
			if extracted := strings.TrimSpace(strings.TrimPrefix(trimmed, "핵심근거:")); extracted != "" {
				return extracted
			}
		}
	}
	return normalization.CompactSpaces(reasonText)
}

func mergeSets(target map[string]struct{}, source map[string]struct{}) {
	for key := range source {
		target[key] = struct{}{}
	}
}

func intersection(left, right map[string]struct{}) map[string]struct{} {
	result := map[string]struct{}{}
	for key := range left {
		if _, ok := right[key]; ok {
			result[key] = struct{}{}
		}
	}
	return result
}

func hasSignal(set map[string]struct{}, signal string) bool {
	_, ok := set[signal]
	return ok
}

func lowerSet(values []string) map[string]struct{} {
	result := map[string]struct{}{}
	for _, value := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(value)); trimmed != "" {
			result[trimmed] = struct{}{}
		}
	}
	return result
}

func hasAny(set map[string]struct{}, keys ...string) bool {
	for _, key := range keys {
		if _, ok := set[key]; ok {
			return true
		}
	}
	return false
}
