package normalization

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	maxRatePattern  = regexp.MustCompile(`최고\s*([0-9]+(?:\.[0-9]+)?)\s*%`)
	baseRatePattern = regexp.MustCompile(`기본\s*([0-9]+(?:\.[0-9]+)?)\s*%`)
)

// RateInfo holds interest rates recovered from a product summary.
// Nil means the summary did not mention the rate.
type RateInfo struct {
	MaxRate  *float64
	BaseRate *float64
}

// ExtractRateInfo pulls 최고/기본 percent figures out of free-form summary
// text. Catalog summaries are the only structured rate source after sync.
func ExtractRateInfo(summary string) RateInfo {
	if strings.TrimSpace(summary) == "" {
		return RateInfo{}
	}

	return RateInfo{
		MaxRate:  extractRate(summary, maxRatePattern),
		BaseRate: extractRate(summary, baseRatePattern),
	}
}

func extractRate(text string, pattern *regexp.Regexp) *float64 {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &value
}

// FormatPercent renders a rate without trailing zeros: 3.50 -> "3.5",
// 3.00 -> "3".
func FormatPercent(value float64) string {
	if math.Abs(value-math.Round(value)) < 0.00001 {
		return strconv.FormatFloat(math.Round(value), 'f', 0, 64)
	}

	formatted := strconv.FormatFloat(value, 'f', 2, 64)
	formatted = strings.TrimRight(formatted, "0")
	return strings.TrimSuffix(formatted, ".")
}
