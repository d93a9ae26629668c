package normalization

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	feeManWonPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*만원`)
	feeWonPattern    = regexp.MustCompile(`([0-9]{1,3}(?:,[0-9]{3})+|[0-9]{4,7})\s*원?`)
)

// AnnualFeeInfo is the parsed view of free-form annual fee text.
// EstimatedWon is nil when no amount could be recovered.
type AnnualFeeInfo struct {
	LowFee       bool
	EstimatedWon *int
}

// ParseAnnualFee interprets Korean annual fee text. 없음/면제/무료/0원 mean a
// free card; 만원 amounts are converted to won; otherwise comma-grouped or
// 4-7 digit won amounts are used.
func ParseAnnualFee(annualFeeText string) AnnualFeeInfo {
	text := Normalize(annualFeeText)
	if text == "" {
		return AnnualFeeInfo{LowFee: true}
	}

	if strings.Contains(text, "없음") || strings.Contains(text, "면제") ||
		strings.Contains(text, "무료") || strings.Contains(text, "0원") {
		zero := 0
		return AnnualFeeInfo{LowFee: true, EstimatedWon: &zero}
	}

	if match := feeManWonPattern.FindStringSubmatch(text); match != nil {
		if manWon, err := strconv.ParseFloat(match[1], 64); err == nil {
			won := int(math.Round(manWon * 10000))
			return AnnualFeeInfo{LowFee: won <= 0, EstimatedWon: &won}
		}
	}

	if match := feeWonPattern.FindStringSubmatch(text); match != nil {
		raw := strings.ReplaceAll(match[1], ",", "")
		if won, err := strconv.Atoi(raw); err == nil {
			return AnnualFeeInfo{LowFee: won <= 0, EstimatedWon: &won}
		}
	}

	return AnnualFeeInfo{}
}

// NormalizeAnnualFeeText maps blank and no-fee spellings to canonical labels
// and leaves everything else as-is.
func NormalizeAnnualFeeText(annualFeeText string) string {
	normalized := strings.TrimSpace(annualFeeText)
	if normalized == "" {
		return "연회비 정보 없음"
	}

	switch Normalize(normalized) {
	case "없음", "면제", "무료", "0원", "무연회비":
		return "연회비 없음"
	}

	return normalized
}
