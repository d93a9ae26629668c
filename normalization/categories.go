package normalization

import (
	"sort"
	"strings"
)

// Canonical category keys shared by the scoring and quality loops.
const (
	CategoryOnline       = "online"
	CategoryGrocery      = "grocery"
	CategoryTransport    = "transport"
	CategoryDining       = "dining"
	CategoryCafe         = "cafe"
	CategorySubscription = "subscription"
	CategoryTravel       = "travel"
	CategorySalary       = "salary"
	CategorySavings      = "savings"
	CategoryStarter      = "starter"
	CategoryDaily        = "daily"
	CategoryGlobal       = "global"
)

type keywordRule struct {
	category string
	keywords []string
}

var (
	categoryAliases = buildCategoryAliases()

	categoryLabels = map[string]string{
		CategoryOnline:       "온라인쇼핑",
		CategoryGrocery:      "장보기/마트",
		CategoryTransport:    "교통/모빌리티",
		CategoryDining:       "외식",
		CategoryCafe:         "카페",
		CategorySubscription: "구독",
		CategoryTravel:       "여행/해외",
		CategorySalary:       "급여/이체",
		CategorySavings:      "저축/금리",
		CategoryStarter:      "초보자/저비용",
		CategoryDaily:        "생활소비",
		CategoryGlobal:       "외화/글로벌",
	}

	categoryKeywordRules = buildCategoryKeywordRules()
)

func buildCategoryAliases() map[string]string {
	aliases := map[string]string{}
	put := func(canonical string, variants ...string) {
		for _, variant := range variants {
			aliases[NormalizeCategoryToken(variant)] = canonical
		}
	}

	put(CategoryOnline, "online", "ecommerce", "shopping", "쇼핑", "온라인", "간편결제", "pay", "모바일결제")
	put(CategoryGrocery, "grocery", "mart", "supermarket", "장보기", "마트", "식자재")
	put(CategoryTransport, "transport", "traffic", "transit", "mobility", "교통", "지하철", "버스", "택시", "주유", "모빌리티")
	put(CategoryDining, "dining", "food", "restaurant", "외식", "식당", "배달", "푸드")
	put(CategoryCafe, "cafe", "coffee", "카페", "커피")
	put(CategorySubscription, "subscription", "sub", "ott", "streaming", "구독", "스트리밍")
	put(CategoryTravel, "travel", "trip", "airline", "hotel", "여행", "해외", "항공", "숙박")
	put(CategorySalary, "salary", "급여", "월급", "급여이체")
	put(CategorySavings, "savings", "saving", "save", "저축", "금리", "예금", "적금")
	put(CategoryStarter, "starter", "beginner", "초보", "저비용", "무연회비")
	put(CategoryDaily, "daily", "생활", "일상", "cashback", "할인")
	put(CategoryGlobal, "global", "외화", "글로벌")

	return aliases
}

func buildCategoryKeywordRules() []keywordRule {
	rules := []keywordRule{
		{CategoryOnline, []string{"온라인", "쇼핑", "간편결제", "ecommerce", "shopping", "오픈마켓"}},
		{CategoryGrocery, []string{"마트", "장보기", "슈퍼", "식자재", "생필품"}},
		{CategoryTransport, []string{"교통", "지하철", "버스", "택시", "주유", "모빌리티"}},
		{CategoryDining, []string{"외식", "식당", "배달", "푸드", "레스토랑"}},
		{CategoryCafe, []string{"카페", "커피"}},
		{CategorySubscription, []string{"구독", "ott", "스트리밍", "멤버십"}},
		{CategoryTravel, []string{"여행", "해외", "항공", "마일", "숙박"}},
		{CategorySalary, []string{"급여", "월급", "급여이체"}},
		{CategorySavings, []string{"저축", "금리", "적금", "예금", "복리", "우대금리"}},
		{CategoryStarter, []string{"초보", "무연회비", "저비용", "신규"}},
		{CategoryDaily, []string{"생활", "일상", "캐시백", "할인"}},
		{CategoryGlobal, []string{"외화", "글로벌", "환전"}},
	}

	for i := range rules {
		for j, keyword := range rules[i].keywords {
			rules[i].keywords[j] = NormalizeCategoryToken(keyword)
		}
	}
	return rules
}

// CanonicalCategories maps raw tag/category values onto the canonical keys.
// Every value is tried as a full token, split on separators and matched
// against the keyword rules, so "온라인/구독" yields both online and
// subscription.
func CanonicalCategories(values []string) map[string]struct{} {
	result := map[string]struct{}{}
	for _, value := range values {
		canonicalizeValueInto(result, value)
	}
	return result
}

func canonicalizeValueInto(result map[string]struct{}, raw string) {
	normalized := Normalize(raw)
	if normalized == "" {
		return
	}

	if direct, ok := categoryAliases[NormalizeCategoryToken(normalized)]; ok {
		result[direct] = struct{}{}
	}

	for _, part := range strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ',' || r == '|' || r == '/' || r == ' ' || r == '\t'
	}) {
		if mapped, ok := categoryAliases[NormalizeCategoryToken(part)]; ok {
			result[mapped] = struct{}{}
		}
	}

	for category := range CategoriesFromText(normalized) {
		result[category] = struct{}{}
	}
}

// CategoriesFromText extracts canonical categories mentioned anywhere inside
// free-form text via the keyword rules.
func CategoriesFromText(text string) map[string]struct{} {
	result := map[string]struct{}{}
	normalizedText := NormalizeCategoryToken(text)
	if normalizedText == "" {
		return result
	}

	for _, rule := range categoryKeywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalizedText, keyword) {
				result[rule.category] = struct{}{}
				break
			}
		}
	}
	return result
}

// CategoryLabel returns the Korean display label of a canonical category,
// falling back to the key itself.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return category
}

// LabelsOf renders a sorted, comma-joined label list for a category set.
func LabelsOf(categories map[string]struct{}) string {
	keys := make([]string, 0, len(categories))
	for key := range categories {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	labels := make([]string, 0, len(keys))
	for _, key := range keys {
		labels = append(labels, CategoryLabel(key))
	}
	return strings.Join(labels, ", ")
}

// HasLifestyleCategory reports whether the set contains an everyday-spend
// category.
func HasLifestyleCategory(categories map[string]struct{}) bool {
	for _, key := range []string{
		CategoryOnline, CategoryGrocery, CategoryTransport,
		CategoryDining, CategoryCafe, CategorySubscription, CategoryDaily,
	} {
		if _, ok := categories[key]; ok {
			return true
		}
	}
	return false
}

// NormalizePriority folds Korean and English priority spellings onto the
// canonical priority keys. Unknown values pass through normalized.
func NormalizePriority(value string) string {
	normalized := Normalize(value)
	switch normalized {
	case "cashback", "캐시백", "할인", "생활":
		return "cashback"
	case "savings", "저축", "금리", "rate":
		return "savings"
	case "travel", "여행", "해외":
		return "travel"
	case "starter", "초보", "저비용":
		return "starter"
	case "salary", "급여", "주거래":
		return "salary"
	case "annualfee", "연회비", "fee":
		return "annualfee"
	}
	return normalized
}
