package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogSearchFindsByKoreanName(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := NewCatalogSearchService(db)

	response, err := service.Search("적금", 10)
	require.NoError(t, err)

	assert.Equal(t, "적금", response.Query)
	require.NotEmpty(t, response.Hits)
	assert.Equal(t, "ACCOUNT", response.Hits[0].ProductType)
	assert.Contains(t, response.Hits[0].Name, "적금")
}

func TestCatalogSearchStemsEnglishTokens(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := NewCatalogSearchService(db)

	// "savings" is seeded as a tag; a stemmed query form still matches
	response, err := service.Search("saving", 10)
	require.NoError(t, err)
	require.NotEmpty(t, response.Hits)

	stemmedAlike, err := service.Search("savings", 10)
	require.NoError(t, err)
	assert.Len(t, stemmedAlike.Hits, len(response.Hits))
}

func TestCatalogSearchOrdersByScore(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := NewCatalogSearchService(db)

	response, err := service.Search("카드", 50)
	require.NoError(t, err)
	require.NotEmpty(t, response.Hits)
	for i := 1; i < len(response.Hits); i++ {
		assert.GreaterOrEqual(t, response.Hits[i-1].Score, response.Hits[i].Score)
	}
}

func TestCatalogSearchLimitsHits(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := NewCatalogSearchService(db)

	response, err := service.Search("카드", 1)
	require.NoError(t, err)
	assert.Len(t, response.Hits, 1)
}

func TestCatalogSearchBlankQuery(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := NewCatalogSearchService(db)

	_, err := service.Search("   ", 10)
	assert.Equal(t, http.StatusBadRequest, statusCodeOf(t, err))
}

func TestCatalogSearchNoMatches(t *testing.T) {
	db := newRecommendationTestDB(t)
	service := NewCatalogSearchService(db)

	response, err := service.Search("zzzzunknownzzzz", 10)
	require.NoError(t, err)
	assert.Empty(t, response.Hits)
}
