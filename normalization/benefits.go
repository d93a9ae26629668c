package normalization

import (
	"regexp"
	"strings"
)

var (
	cardPercentPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)
	cardAmountPattern  = regexp.MustCompile(`(월\s*최대\s*[0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?\s*(?:만원|원)|최대\s*[0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?\s*(?:만원|원)|[0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?\s*(?:만원|원))`)

	cardBenefitKeywords = []string{
		"할인", "캐시백", "적립", "청구", "환급", "포인트", "마일", "리워드",
		"혜택", "우대", "한도", "최대", "월",
	}

	benefitSegmentSplit = regexp.MustCompile(`[·;,|]`)
)

// NoQuantifiedBenefitText is returned when a card summary carries no numeric
// benefit the UI can show.
const NoQuantifiedBenefitText = "정량 혜택 정보 없음 (공식 페이지에서 할인/적립 한도 확인)"

// SummarizeQuantifiedBenefits extracts up to four numeric benefit snippets
// from a card summary. Segments containing both a digit and a benefit keyword
// win first, then bare percent and amount figures fill the rest.
func SummarizeQuantifiedBenefits(summary string) string {
	text := CompactSpaces(summary)
	if text == "" {
		return NoQuantifiedBenefitText
	}

	var captured []string
	seen := map[string]struct{}{}
	add := func(value string) {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return
		}
		if _, ok := seen[trimmed]; ok {
			return
		}
		seen[trimmed] = struct{}{}
		captured = append(captured, trimmed)
	}

	for _, segment := range benefitSegmentSplit.Split(text, -1) {
		if !strings.ContainsAny(segment, "0123456789") {
			continue
		}
		if containsBenefitKeyword(Normalize(segment)) {
			add(CompactSpaces(segment))
		}
	}

	for _, match := range cardPercentPattern.FindAllStringSubmatch(text, -1) {
		if len(captured) >= 5 {
			break
		}
		add(match[1] + "%")
	}
	for _, match := range cardAmountPattern.FindAllStringSubmatch(text, -1) {
		if len(captured) >= 5 {
			break
		}
		add(CompactSpaces(match[1]))
	}

	if len(captured) == 0 {
		return NoQuantifiedBenefitText
	}
	if len(captured) > 4 {
		captured = captured[:4]
	}
	return strings.Join(captured, " · ")
}

func containsBenefitKeyword(segment string) bool {
	for _, keyword := range cardBenefitKeywords {
		if strings.Contains(segment, keyword) {
			return true
		}
	}
	return false
}

// SummaryHighlight compacts a summary to at most 48 characters for reason
// lines, appending "..." when truncated.
func SummaryHighlight(summary string) string {
	compact := CompactSpaces(summary)
	runes := []rune(compact)
	if len(runes) <= 48 {
		return compact
	}
	return string(runes[:48]) + "..."
}
