// Package quality holds the pure rules of the recommendation feedback loop:
// category classification of catalog products and weight-tuning suggestions
// derived from click metrics.
package quality

import "strings"

// Category keys produced by the classifiers.
const (
	CategorySavings   = "savings"
	CategorySalary    = "salary"
	CategoryTravel    = "travel"
	CategoryOnline    = "online"
	CategoryLifestyle = "lifestyle"
	CategoryStarter   = "starter"
	CategoryOther     = "other"
)

var categoryLabels = map[string]string{
	CategorySavings:   "저축/금리",
	CategorySalary:    "급여/생활비",
	CategoryTravel:    "여행/해외",
	CategoryOnline:    "온라인/구독",
	CategoryLifestyle: "생활소비",
	CategoryStarter:   "초보자/저비용",
}

// LabelFor returns the Korean display label of a category key.
func LabelFor(categoryKey string) string {
	if label, ok := categoryLabels[categoryKey]; ok {
		return label
	}
	return "기타"
}

// ClassifyAccount maps an account's tags onto a reporting category.
func ClassifyAccount(tags []string) string {
	set := normalizeSet(tags)
	switch {
	case containsAny(set, "savings", "goal", "auto"):
		return CategorySavings
	case containsAny(set, "travel", "global", "fx"):
		return CategoryTravel
	case containsAny(set, "starter", "young", "low-fee"):
		return CategoryStarter
	case containsAny(set, "salary", "daily", "cashback"):
		return CategorySalary
	}
	return CategoryOther
}

// ClassifyCard maps a card's tags and benefit categories onto a reporting
// category.
func ClassifyCard(tags, categories []string) string {
	tagSet := normalizeSet(tags)
	categorySet := normalizeSet(categories)
	switch {
	case containsAny(tagSet, "travel", "mileage"):
		return CategoryTravel
	case containsAny(tagSet, "starter", "no-fee"):
		return CategoryStarter
	case containsAny(categorySet, "online", "subscription"):
		return CategoryOnline
	case containsAny(categorySet, "grocery", "transport", "dining", "cafe") || containsAny(tagSet, "daily"):
		return CategoryLifestyle
	}
	return CategoryOther
}

func normalizeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(value)); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func containsAny(set map[string]struct{}, candidates ...string) bool {
	for _, candidate := range candidates {
		if _, ok := set[candidate]; ok {
			return true
		}
	}
	return false
}
