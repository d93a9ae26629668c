package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"benepick/normalization"
	"benepick/server/types"
)

type productBenefitEstimate struct {
	min        int
	expected   int
	max        int
	method     string
	components []types.BenefitComponent
}

var (
	scorePartTokenPattern = regexp.MustCompile(`(.+)\(([+-]?\d+)점\)$`)
	scoreTotalSuffix      = regexp.MustCompile(`\s*=\s*[-+]?\d+\s*점\s*$`)
)

// estimateProductBenefit converts the itemized score breakdown into a monthly
// won estimate. When the breakdown is unavailable (rebuilding stored runs) it
// is reconstructed from the reason text or collapses to the total score.
func estimateProductBenefit(productType string, totalScore int, parts []scorePart, reasonText string) productBenefitEstimate {
	pointUnitWon := 120
	labelPrefix := "카드"
	if productType == "ACCOUNT" {
		pointUnitWon = 130
		labelPrefix = "계좌"
	}

	resolvedParts := parts
	if len(resolvedParts) == 0 {
		resolvedParts = parseScorePartsFromReason(reasonText, totalScore)
	}

	components := make([]types.BenefitComponent, 0, len(resolvedParts))
	expected := 0
	for index, part := range resolvedParts {
		amount := part.points * pointUnitWon
		expected += amount

		label := labelPrefix + ": " + strings.TrimSpace(part.label)
		if strings.TrimSpace(part.label) == "기본점수" {
			label = labelPrefix + " 기본 절감액"
		}
		condition := "조건 충족 시 반영"
		if part.points < 0 {
			condition = "비용/패널티 반영"
		}

		components = append(components, types.BenefitComponent{
			Key:               strings.ToLower(productType) + "_score_" + strconv.Itoa(index),
			Label:             label,
			Condition:         condition,
			AmountWonPerMonth: amount,
			Applied:           true,
		})
	}

	expected = max(0, expected)
	return productBenefitEstimate{
		min:        max(0, int(math.Round(float64(expected)*0.72))),
		expected:   expected,
		max:        max(expected, int(math.Round(float64(expected)*1.18))),
		method:     "점수 환산 기반 추정 (1점당 " + strconv.Itoa(pointUnitWon) + "원, 항목별 가감점 합산)",
		components: components,
	}
}

// parseScorePartsFromReason recovers (label, points) pairs from a legacy
// 점수구성 reason line. Runs stored without one collapse to a single
// 기본점수 part carrying the full score.
func parseScorePartsFromReason(reasonText string, fallbackScore int) []scorePart {
	fallback := []scorePart{{label: "기본점수", points: fallbackScore}}
	if strings.TrimSpace(reasonText) == "" {
		return fallback
	}

	var scoreLine string
	for _, rawLine := range strings.Split(reasonText, "\n") {
		line := strings.TrimSpace(rawLine)
		if strings.HasPrefix(line, "점수구성:") {
			scoreLine = strings.TrimSpace(strings.TrimPrefix(line, "점수구성:"))
			break
		}
	}
	if scoreLine == "" {
		return fallback
	}

	scoreLine = strings.TrimSpace(scoreTotalSuffix.ReplaceAllString(scoreLine, ""))
	if scoreLine == "" {
		return fallback
	}

	var parts []scorePart
	for _, token := range strings.Split(scoreLine, ",") {
		match := scorePartTokenPattern.FindStringSubmatch(strings.TrimSpace(token))
		if match == nil {
			continue
		}
		points, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		parts = append(parts, scorePart{label: strings.TrimSpace(match[1]), points: points})
	}

	if len(parts) == 0 {
		return fallback
	}
	return parts
}

const bundleScoreMultiplier = 42

const bundleMinimumBenefit = 6000

// buildBundles pairs ranked accounts and cards into at most 3 distinct
// combinations.
func buildBundles(accounts, cards []types.RecommendationItem) []types.RecommendationBundle {
	if len(accounts) == 0 || len(cards) == 0 {
		return nil
	}

	var bundles []types.RecommendationBundle
	usedPairs := map[string]struct{}{}

	addPair := func(title string, account, card types.RecommendationItem) {
		if len(bundles) >= 3 {
			return
		}
		pairKey := account.ProductID + "::" + card.ProductID
		if _, ok := usedPairs[pairKey]; ok {
			return
		}
		usedPairs[pairKey] = struct{}{}

		estimate := estimateBundleBenefit(account, card)
		bundles = append(bundles, types.RecommendationBundle{
			Rank:                               len(bundles) + 1,
			Title:                              title,
			AccountProductID:                   account.ProductID,
			AccountLabel:                       account.Provider + " · " + account.Name,
			CardProductID:                      card.ProductID,
			CardLabel:                          card.Provider + " · " + card.Name,
			MinExtraMonthlyBenefit:             estimate.min,
			ExpectedExtraMonthlyBenefit:        estimate.expected,
			MaxExtraMonthlyBenefit:             estimate.max,
			AccountExpectedExtraMonthlyBenefit: estimate.accountExpected,
			CardExpectedExtraMonthlyBenefit:    estimate.cardExpected,
			SynergyExtraMonthlyBenefit:         estimate.synergy,
			EstimateMethod:                     estimate.method,
			BenefitComponents:                  estimate.components,
			Reason:                             buildBundleReason(account, card, estimate.synergy),
		})
	}

	addPair("주거래 집중 패키지", accounts[0], cards[0])
	if len(accounts) > 1 {
		addPair("저축 + 생활 최적화 패키지", accounts[1], cards[0])
	}
	if len(cards) > 1 {
		addPair("실적 보완 서브카드 패키지", accounts[0], cards[1])
	}
	for i := 0; i < len(accounts) && len(bundles) < 3; i++ {
		for j := 0; j < len(cards) && len(bundles) < 3; j++ {
			addPair("균형형 패키지", accounts[i], cards[j])
		}
	}

	return bundles
}

type bundleBenefitEstimate struct {
	min             int
	expected        int
	max             int
	accountExpected int
	cardExpected    int
	synergy         int
	method          string
	components      []types.BenefitComponent
}

func estimateBundleBenefit(account, card types.RecommendationItem) bundleBenefitEstimate {
	accountBase := max(0, account.Score*bundleScoreMultiplier)
	cardBase := max(0, card.Score*bundleScoreMultiplier)

	components := buildBundleComponents(account, card, accountBase, cardBase)

	accountExpected := sumAppliedByPrefix(components, "account_")
	cardExpected := sumAppliedByPrefix(components, "card_")
	synergy := sumAppliedByPrefix(components, "synergy_")

	expected := max(bundleMinimumBenefit, accountExpected+cardExpected+synergy)

	baseTotal := accountBase + cardBase
	variableBonus := 0
	for _, component := range components {
		if component.Applied && !strings.HasSuffix(component.Key, "_base_score") {
			variableBonus += component.AmountWonPerMonth
		}
	}

	return bundleBenefitEstimate{
		min:             max(bundleMinimumBenefit, baseTotal+int(math.Round(float64(variableBonus)*0.4))),
		expected:        expected,
		max:             max(expected, max(bundleMinimumBenefit, baseTotal+int(math.Round(float64(variableBonus)*1.2)))),
		accountExpected: accountExpected,
		cardExpected:    cardExpected,
		synergy:         synergy,
		method:          "룰 기반 추정치(계좌 이득 + 카드 이득 + 조합 보너스)",
		components:      components,
	}
}

func buildBundleComponents(account, card types.RecommendationItem, accountBase, cardBase int) []types.BenefitComponent {
	accountText := normalization.Normalize(account.Summary + " " + account.Reason + " " + account.Meta)
	cardText := normalization.Normalize(card.Summary + " " + card.Reason + " " + card.Meta)

	components := []types.BenefitComponent{
		{
			Key:               "account_base_score",
			Label:             "계좌 기본 절감액",
			Condition:         "계좌 추천 점수 환산",
			AmountWonPerMonth: accountBase,
			Applied:           true,
		},
		{
			Key:               "card_base_score",
			Label:             "카드 기본 절감액",
			Condition:         "카드 추천 점수 환산",
			AmountWonPerMonth: cardBase,
			Applied:           true,
		},
	}

	addCondition := func(key, label, condition string, amount int, applied bool) {
		components = append(components, types.BenefitComponent{
			Key:               key,
			Label:             label,
			Condition:         condition,
			AmountWonPerMonth: amount,
			Applied:           applied,
		})
	}

	addCondition("account_salary_transfer", "계좌: 급여이체 우대 보너스", "급여이체 및 우대조건 유지", 5200,
		strings.Contains(accountText, "급여"))
	addCondition("account_savings_rate", "계좌: 저축/금리 우대 보너스", "저축·금리 우대조건 유지", 3600,
		strings.Contains(accountText, "저축") || strings.Contains(accountText, "금리"))
	addCondition("card_monthly_performance", "카드: 전월실적 달성 보너스", "카드 전월실적 충족", 4200,
		strings.Contains(cardText, "전월") || strings.Contains(cardText, "실적"))
	addCondition("card_category_spend", "카드: 카테고리 소비 매칭 보너스", "주요 소비 카테고리 사용 유지", 3200,
		strings.Contains(cardText, "카테고리") || strings.Contains(cardText, "생활"))
	addCondition("synergy_global_travel", "조합: 여행/외화 연동 보너스", "해외/외화 사용 조건 충족", 2800,
		(strings.Contains(cardText, "여행") || strings.Contains(cardText, "해외")) && strings.Contains(accountText, "외화"))

	return components
}

func sumAppliedByPrefix(components []types.BenefitComponent, keyPrefix string) int {
	sum := 0
	for _, component := range components {
		if component.Applied && strings.HasPrefix(component.Key, keyPrefix) {
			sum += component.AmountWonPerMonth
		}
	}
	return sum
}

func buildBundleReason(account, card types.RecommendationItem, synergyBonus int) string {
	reasons := []string{
		"계좌(" + strconv.Itoa(account.Rank) + "순위)와 카드(" + strconv.Itoa(card.Rank) + "순위) 조합 최적화",
	}

	if synergyBonus >= 9000 {
		reasons = append(reasons, "우대조건/실적 동시 달성 가능성이 높음")
	} else if synergyBonus >= 5000 {
		reasons = append(reasons, "우대조건 달성에 유리한 조합")
	}

	reasons = append(reasons, "추천 사유 결합: "+extractCoreReason(account.Reason)+" + "+extractCoreReason(card.Reason))
	return joinReasons(reasons, 4, " · ")
}
