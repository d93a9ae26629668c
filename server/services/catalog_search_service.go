package services

import (
	"sort"
	"strings"
	"sync"

	"github.com/kljensen/snowball"

	"benepick/database"
	"benepick/normalization"
	apperrors "benepick/server/errors"
	"benepick/server/types"
)

const (
	searchWeightName     = 3.0
	searchWeightProvider = 2.0
	searchWeightTags     = 1.5
	searchWeightSummary  = 1.0

	searchDefaultLimit = 20
	searchMaxLimit     = 50
)

// CatalogSearchService matches free-text queries against the active catalog.
// English tokens are stemmed so "saving" finds "savings" products; Korean
// tokens are matched on their folded form.
type CatalogSearchService struct {
	db *database.CatalogDB

	mu        sync.RWMutex
	stemCache map[string]string
}

func NewCatalogSearchService(db *database.CatalogDB) *CatalogSearchService {
	return &CatalogSearchService{
		db:        db,
		stemCache: make(map[string]string),
	}
}

// Search scores every active account and card against the query tokens and
// returns the best hits ordered by score.
func (s *CatalogSearchService) Search(query string, limit int) (*types.CatalogSearchResponse, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("query must not be blank", nil)
	}
	if limit <= 0 {
		limit = searchDefaultLimit
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	tokens := s.stemTokens(tokenize(trimmed))
	if len(tokens) == 0 {
		return &types.CatalogSearchResponse{Query: trimmed, Hits: []types.CatalogSearchHit{}}, nil
	}

	accounts, err := s.db.ListActiveAccounts()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load account catalog")
	}
	cards, err := s.db.ListActiveCards()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load card catalog")
	}

	var hits []types.CatalogSearchHit
	for _, account := range accounts {
		score := s.scoreFields(tokens, searchFields{
			name:     account.ProductName,
			provider: account.ProviderName,
			summary:  account.Summary + " " + account.AccountKind,
			tags:     account.Tags,
		})
		if score <= 0 {
			continue
		}
		hits = append(hits, types.CatalogSearchHit{
			ProductType: "ACCOUNT",
			ProductID:   account.ProductKey,
			Provider:    account.ProviderName,
			Name:        account.ProductName,
			Summary:     account.Summary,
			Score:       score,
		})
	}
	for _, card := range cards {
		score := s.scoreFields(tokens, searchFields{
			name:     card.ProductName,
			provider: card.ProviderName,
			summary:  card.Summary + " " + card.AnnualFeeText,
			tags:     append(append([]string{}, card.Tags...), card.Categories...),
		})
		if score <= 0 {
			continue
		}
		hits = append(hits, types.CatalogSearchHit{
			ProductType: "CARD",
			ProductID:   card.ProductKey,
			Provider:    card.ProviderName,
			Name:        card.ProductName,
			Summary:     card.Summary,
			Score:       score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Provider != hits[j].Provider {
			return hits[i].Provider < hits[j].Provider
		}
		return hits[i].Name < hits[j].Name
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []types.CatalogSearchHit{}
	}

	return &types.CatalogSearchResponse{Query: trimmed, Hits: hits}, nil
}

type searchFields struct {
	name     string
	provider string
	summary  string
	tags     []string
}

func (s *CatalogSearchService) scoreFields(tokens []string, fields searchFields) float64 {
	name := s.stemText(fields.name)
	provider := s.stemText(fields.provider)
	summary := s.stemText(fields.summary)
	tags := s.stemText(strings.Join(fields.tags, " "))

	score := 0.0
	for _, token := range tokens {
		switch {
		case strings.Contains(name, token):
			score += searchWeightName
		case strings.Contains(provider, token):
			score += searchWeightProvider
		case strings.Contains(tags, token):
			score += searchWeightTags
		case strings.Contains(summary, token):
			score += searchWeightSummary
		}
	}
	return score
}

func (s *CatalogSearchService) stemText(text string) string {
	tokens := s.stemTokens(tokenize(text))
	return strings.Join(tokens, " ")
}

func (s *CatalogSearchService) stemTokens(tokens []string) []string {
	stemmed := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if word := s.stemWord(token); word != "" {
			stemmed = append(stemmed, word)
		}
	}
	return stemmed
}

// stemWord caches snowball results; non-English tokens pass through folded.
func (s *CatalogSearchService) stemWord(word string) string {
	normalized := normalization.Normalize(normalization.Fold(word))
	if normalized == "" {
		return ""
	}

	s.mu.RLock()
	cached, found := s.stemCache[normalized]
	s.mu.RUnlock()
	if found {
		return cached
	}

	stemmed, err := snowball.Stem(normalized, "english", true)
	if err != nil || stemmed == "" {
		stemmed = normalized
	}

	s.mu.Lock()
	s.stemCache[normalized] = stemmed
	s.mu.Unlock()
	return stemmed
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ',', '/', '·', '(', ')', '[', ']', ':', ';':
			return true
		}
		return false
	})
}
