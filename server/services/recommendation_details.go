package services

import (
	"net/url"
	"strconv"
	"strings"

	"benepick/database"
	"benepick/normalization"
	"benepick/server/types"
)

func addDetailField(fields *[]types.RecommendationDetailField, label, value string, link bool) {
	trimmedLabel := strings.TrimSpace(label)
	trimmedValue := strings.TrimSpace(value)
	if trimmedLabel == "" || trimmedValue == "" {
		return
	}
	*fields = append(*fields, types.RecommendationDetailField{
		Label: trimmedLabel,
		Value: trimmedValue,
		Link:  link,
	})
}

func buildAccountDetailFields(account database.AccountProduct, officialURL string) []types.RecommendationDetailField {
	var fields []types.RecommendationDetailField
	linkPlan := resolveOfficialLinkPlan(officialURL)

	addDetailField(&fields, "상품명", account.ProductName, false)
	addDetailField(&fields, "상품유형", account.AccountKind+" 계좌", false)
	addDetailField(&fields, "가입대상", inferAccountEligibility(account), false)
	addDetailField(&fields, "핵심 설명", account.Summary, false)

	if tagSignals := normalization.CanonicalCategories(account.Tags); len(tagSignals) > 0 {
		addDetailField(&fields, "핵심 태그", normalization.LabelsOf(tagSignals), false)
	}

	appendOfficialLinkFields(&fields, linkPlan)
	return fields
}

func buildCardDetailFields(card database.CardProduct, officialURL string) []types.RecommendationDetailField {
	var fields []types.RecommendationDetailField
	linkPlan := resolveOfficialLinkPlan(officialURL)

	addDetailField(&fields, "상품명", card.ProductName, false)
	feeText := normalization.NormalizeAnnualFeeText(card.AnnualFeeText)
	addDetailField(&fields, "연회비", feeText, false)
	addDetailField(&fields, "연회비(추정)", buildAnnualFeeEstimateText(feeText), false)
	addDetailField(&fields, "가입대상", inferCardEligibility(card), false)
	addDetailField(&fields, "핵심 혜택", card.Summary, false)
	addDetailField(&fields, "정량 혜택", normalization.SummarizeQuantifiedBenefits(card.Summary), false)

	if categories := deriveCardCategories(card); len(categories) > 0 {
		addDetailField(&fields, "혜택 카테고리", normalization.LabelsOf(categories), false)
	}
	if tagSignals := normalization.CanonicalCategories(card.Tags); len(tagSignals) > 0 {
		addDetailField(&fields, "핵심 태그", normalization.LabelsOf(tagSignals), false)
	}

	appendOfficialLinkFields(&fields, linkPlan)
	return fields
}

// buildFallbackDetailFields renders a stored run item whose product left the
// catalog since the run was saved.
func buildFallbackDetailFields(item database.RecommendationItem, officialURL string) []types.RecommendationDetailField {
	var fields []types.RecommendationDetailField
	linkPlan := resolveOfficialLinkPlan(officialURL)

	addDetailField(&fields, "상품명", item.ProductName, false)
	addDetailField(&fields, "요약", item.Summary, false)
	addDetailField(&fields, "참고", item.Meta, false)

	appendOfficialLinkFields(&fields, linkPlan)
	return fields
}

func appendOfficialLinkFields(fields *[]types.RecommendationDetailField, plan officialLinkPlan) {
	addDetailField(fields, "공식 설명서/상세", plan.redirectURL, true)
}

type officialLinkPlan struct {
	redirectURL string
	kind        string
}

// resolveOfficialLinkPlan classifies an official URL: product detail pages
// keep their own label, landing/list pages are flagged as generic.
func resolveOfficialLinkPlan(officialURL string) officialLinkPlan {
	normalized := ensureURLScheme(officialURL)
	if normalized == "" {
		return officialLinkPlan{redirectURL: "", kind: "공식 링크 미제공"}
	}
	if !isLikelyGenericOfficialURL(normalized) {
		return officialLinkPlan{redirectURL: normalized, kind: "공식 상품 상세 링크"}
	}
	return officialLinkPlan{redirectURL: normalized, kind: "공식 홈페이지/목록 링크"}
}

// isLikelyGenericOfficialURL guesses whether a URL points at a homepage or
// listing instead of a concrete product page.
func isLikelyGenericOfficialURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	host := normalization.Normalize(parsed.Host)
	path := normalization.Normalize(parsed.Path)
	query := normalization.Normalize(parsed.RawQuery)

	if host == "" {
		return true
	}
	if strings.Contains(query, "prd") || strings.Contains(query, "product") ||
		strings.Contains(query, "code=") || strings.Contains(query, "id=") {
		return false
	}
	if path == "/" || path == "" {
		return true
	}
	if strings.Contains(host, "epostbank.go.kr") && strings.Contains(path, "cdcf") {
		return true
	}
	if strings.Contains(host, "kdb.co.kr") && (path == "/" || strings.Contains(path, "/main")) {
		return true
	}
	if strings.Contains(host, "fsc.go.kr") || strings.Contains(host, "finlife.fss.or.kr") {
		return true
	}

	segmentCount := 0
	for _, segment := range strings.Split(path, "/") {
		if strings.TrimSpace(segment) != "" {
			segmentCount++
		}
	}
	return segmentCount <= 1 && query == ""
}

func buildAnnualFeeEstimateText(feeText string) string {
	feeInfo := normalization.ParseAnnualFee(feeText)
	if feeInfo.EstimatedWon == nil {
		return "수치 확인 어려움"
	}
	if *feeInfo.EstimatedWon == 0 {
		return "0원 (면제/없음)"
	}
	return strconv.Itoa(*feeInfo.EstimatedWon) + "원 수준"
}

func inferAccountEligibility(account database.AccountProduct) string {
	text := normalization.Normalize(account.ProductName + " " + account.Summary + " " + account.AccountKind)
	if strings.Contains(text, "청년") || strings.Contains(text, "young") {
		return "청년/사회초년생 우대 가능"
	}
	if strings.Contains(text, "법인") || strings.Contains(text, "기업") {
		return "개인·법인 구분형 (세부 조건은 공식 페이지 확인)"
	}
	return "개인 고객 중심 (세부 조건은 공식 페이지 확인)"
}

func inferCardEligibility(card database.CardProduct) string {
	text := normalization.Normalize(card.ProductName + " " + card.Summary)
	if strings.Contains(text, "법인") {
		return "개인/법인 구분형 (세부 조건은 공식 페이지 확인)"
	}
	if strings.Contains(text, "개인") {
		return "개인 고객"
	}
	return "개인 고객 중심 (발급 조건은 공식 페이지 확인)"
}
