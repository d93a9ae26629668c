package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldFullWidth(t *testing.T) {
	assert.Equal(t, "abc123", Fold("ａｂｃ１２３"))
	assert.Equal(t, "연 3.5%", Fold("연 ３.５％"))
}

func TestNormalizeCategoryToken(t *testing.T) {
	assert.Equal(t, "간편결제", NormalizeCategoryToken(" 간편 결제 "))
	assert.Equal(t, "nofee", NormalizeCategoryToken("No-Fee"))
	assert.Equal(t, "온라인쇼핑", NormalizeCategoryToken("온라인/쇼핑"))
	assert.Equal(t, "", NormalizeCategoryToken("  ・ "))
}

func TestCompactSpaces(t *testing.T) {
	assert.Equal(t, "최고 3.5% 우대", CompactSpaces("  최고   3.5%\t우대 "))
}

func TestFirstNonBlank(t *testing.T) {
	assert.Equal(t, "b", FirstNonBlank("", "  ", "b", "c"))
	assert.Equal(t, "", FirstNonBlank("", "   "))
}

func TestExtractRateInfo(t *testing.T) {
	info := ExtractRateInfo("최고 4.20% (기본 3.0%) · 급여이체 우대")
	require.NotNil(t, info.MaxRate)
	require.NotNil(t, info.BaseRate)
	assert.InDelta(t, 4.2, *info.MaxRate, 0.0001)
	assert.InDelta(t, 3.0, *info.BaseRate, 0.0001)

	empty := ExtractRateInfo("우대조건은 상품설명서를 확인")
	assert.Nil(t, empty.MaxRate)
	assert.Nil(t, empty.BaseRate)
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "3", FormatPercent(3.0))
	assert.Equal(t, "3.5", FormatPercent(3.50))
	assert.Equal(t, "4.25", FormatPercent(4.25))
}

func TestParseAnnualFee(t *testing.T) {
	blank := ParseAnnualFee("   ")
	assert.True(t, blank.LowFee)
	assert.Nil(t, blank.EstimatedWon)

	free := ParseAnnualFee("연회비 면제")
	assert.True(t, free.LowFee)
	require.NotNil(t, free.EstimatedWon)
	assert.Equal(t, 0, *free.EstimatedWon)

	manWon := ParseAnnualFee("국내전용 1.2만원")
	assert.False(t, manWon.LowFee)
	require.NotNil(t, manWon.EstimatedWon)
	assert.Equal(t, 12000, *manWon.EstimatedWon)

	won := ParseAnnualFee("25,000원")
	require.NotNil(t, won.EstimatedWon)
	assert.Equal(t, 25000, *won.EstimatedWon)

	unknown := ParseAnnualFee("홈페이지 참조")
	assert.False(t, unknown.LowFee)
	assert.Nil(t, unknown.EstimatedWon)
}

func TestNormalizeAnnualFeeText(t *testing.T) {
	assert.Equal(t, "연회비 정보 없음", NormalizeAnnualFeeText(""))
	assert.Equal(t, "연회비 없음", NormalizeAnnualFeeText("무연회비"))
	assert.Equal(t, "국내전용 1.2만원", NormalizeAnnualFeeText(" 국내전용 1.2만원 "))
}

func TestCanonicalCategories(t *testing.T) {
	categories := CanonicalCategories([]string{"온라인", "traffic", "여행/해외", "unknown-tag"})

	assert.Contains(t, categories, CategoryOnline)
	assert.Contains(t, categories, CategoryTransport)
	assert.Contains(t, categories, CategoryTravel)
	assert.NotContains(t, categories, CategoryCafe)
}

func TestCategoriesFromText(t *testing.T) {
	categories := CategoriesFromText("카페 커피 50% 할인, 지하철 적립")

	assert.Contains(t, categories, CategoryCafe)
	assert.Contains(t, categories, CategoryTransport)
	assert.Contains(t, categories, CategoryDaily)
	assert.NotContains(t, categories, CategoryTravel)
}

func TestLabelsOf(t *testing.T) {
	labels := LabelsOf(map[string]struct{}{
		CategoryCafe:   {},
		CategoryTravel: {},
	})
	assert.Equal(t, "카페, 여행/해외", labels)
}

func TestHasLifestyleCategory(t *testing.T) {
	assert.True(t, HasLifestyleCategory(map[string]struct{}{CategoryDining: {}}))
	assert.False(t, HasLifestyleCategory(map[string]struct{}{CategorySavings: {}}))
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, "cashback", NormalizePriority("캐시백"))
	assert.Equal(t, "savings", NormalizePriority("금리"))
	assert.Equal(t, "annualfee", NormalizePriority("Fee"))
	assert.Equal(t, "주식", NormalizePriority(" 주식 "))
}

func TestSummarizeQuantifiedBenefits(t *testing.T) {
	summary := "온라인 쇼핑 10% 할인 · 월 최대 30,000원 적립 · 우대조건 안내"
	result := SummarizeQuantifiedBenefits(summary)

	assert.Contains(t, result, "10% 할인")
	assert.Contains(t, result, "월 최대 30,000원")
	assert.NotContains(t, result, "우대조건 안내")

	assert.Equal(t, NoQuantifiedBenefitText, SummarizeQuantifiedBenefits("혜택은 홈페이지 참고"))
	assert.Equal(t, NoQuantifiedBenefitText, SummarizeQuantifiedBenefits(""))
}

func TestSummaryHighlight(t *testing.T) {
	short := SummaryHighlight("간결한 요약")
	assert.Equal(t, "간결한 요약", short)

	long := SummaryHighlight("가나다라마바사아자차카타파하 가나다라마바사아자차카타파하 가나다라마바사아자차카타파하 가나다라마바사")
	assert.Len(t, []rune(long), 51)
	assert.True(t, len(long) > 0 && long[len(long)-1] == '.')
}

func TestRootLevelCategoriesDoNotOverlapLabels(t *testing.T) {
	for key, label := range categoryLabels {
		assert.NotEmpty(t, label, key)
	}
}
