package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/time/rate"

	"benepick/internal/config"
	apperrors "benepick/server/errors"
	"benepick/normalization"
)

// CardFeedProduct is one normalized card row from an external feed.
type CardFeedProduct struct {
	ProductKey    string
	ProviderName  string
	ProductName   string
	AnnualFeeText string
	Summary       string
	OfficialURL   string
	Tags          []string
	Categories    []string
}

// CardFeedResult carries the fetched products plus per-call diagnostics:
// whether the configured items path missed and the built-in candidates were
// used, and per-feed errors in public-data-all mode.
type CardFeedResult struct {
	Products          []CardFeedProduct
	ItemsPathFallback bool
	FeedErrors        map[string]string
}

// CardFeedClient fetches card products from a source document or the public
// data APIs. The XML decoder is injected so the JSON-or-XML probing stays
// explicit.
type CardFeedClient struct {
	cfg        config.CardExternalConfig
	httpClient *http.Client
	xmlDecoder XMLTreeDecoder
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewCardFeedClient builds a client from the card external config section.
func NewCardFeedClient(cfg config.CardExternalConfig, xmlDecoder XMLTreeDecoder) *CardFeedClient {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxConnsPerHost:     5,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 5,
	}

	return &CardFeedClient{
		cfg:        cfg,
		xmlDecoder: xmlDecoder,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		now:     time.Now,
	}
}

// FetchCards dispatches on the configured mode.
func (c *CardFeedClient) FetchCards(ctx context.Context) (*CardFeedResult, error) {
	mode := strings.ToLower(strings.TrimSpace(c.cfg.Mode))

	switch mode {
	case "public-data-all":
		return c.fetchFromPublicDataAll(ctx)
	case "public-data":
		return c.fetchFromPublicDataSingle(ctx)
	case "source", "":
		return c.fetchFromSource(ctx)
	}

	return nil, apperrors.NewConfigurationError(
		"Unsupported CARD_EXTERNAL_MODE: "+mode+" (allowed: source, public-data, public-data-all)", nil)
}

func (c *CardFeedClient) fetchFromSource(ctx context.Context) (*CardFeedResult, error) {
	source := strings.TrimSpace(c.cfg.SourceURL)
	if source == "" {
		return nil, apperrors.NewConfigurationError("CARD_EXTERNAL_SOURCE_URL is not configured", nil)
	}

	body, err := c.loadBody(ctx, source)
	if err != nil {
		return nil, err
	}

	root, err := c.parseStructuredBody(body, "external card source")
	if err != nil {
		return nil, err
	}

	rows, err := resolveSourceRows(root)
	if err != nil {
		return nil, err
	}

	products := mapRowsToProducts(rows, rowMapping{
		keyPrefix:      "external",
		defaultTags:    []string{"external"},
		defaultSummary: "외부 카드 데이터 동기화",
	})
	return &CardFeedResult{Products: deduplicateProducts(products)}, nil
}

func (c *CardFeedClient) fetchFromPublicDataSingle(ctx context.Context) (*CardFeedResult, error) {
	pd := c.cfg.PublicData
	if strings.TrimSpace(pd.URL) == "" {
		return nil, apperrors.NewConfigurationError("CARD_PUBLIC_DATA_URL is not configured", nil)
	}
	serviceKey := strings.TrimSpace(pd.ServiceKey)
	if serviceKey == "" {
		return nil, apperrors.NewConfigurationError("CARD_PUBLIC_DATA_SERVICE_KEY is not configured", nil)
	}

	serviceKeyParam := normalization.FirstNonBlank(pd.ServiceKeyParam, "serviceKey")
	params := queryParams{
		{serviceKeyParam, serviceKey},
		{"pageNo", strconv.Itoa(pd.PageNo)},
		{"numOfRows", strconv.Itoa(pd.NumOfRows)},
	}
	if pd.ForceJSON {
		params = append(params, [2]string{"_type", "json"}, [2]string{"resultType", "json"})
	}
	params = appendExtraQuery(params, pd.ExtraQuery)

	rows, fallbackUsed, err := c.fetchPublicDataRowsPaged(ctx, pd.URL, params, pd.ItemsPath, "public-data single source")
	if err != nil {
		return nil, err
	}

	products := mapRowsToProducts(rows, rowMapping{
		keyPrefix:      "public-single",
		defaultTags:    splitCSVLower(pd.DefaultTags),
		defaultSummary: "공공데이터 카드 소스 동기화",
	})
	return &CardFeedResult{
		Products:          deduplicateProducts(products),
		ItemsPathFallback: fallbackUsed,
	}, nil
}

func (c *CardFeedClient) fetchFromPublicDataAll(ctx context.Context) (*CardFeedResult, error) {
	serviceKey := strings.TrimSpace(c.cfg.PublicData.ServiceKey)
	if serviceKey == "" {
		return nil, apperrors.NewConfigurationError("CARD_PUBLIC_DATA_SERVICE_KEY is not configured", nil)
	}

	var merged []CardFeedProduct
	feedErrors := map[string]string{}
	fallbackUsed := false

	runFeed := func(name string, enabled bool, fetch func() ([]CardFeedProduct, bool, error)) {
		if !enabled {
			feedErrors[name] = "disabled by config"
			return
		}
		products, fallback, err := fetch()
		if err != nil {
			feedErrors[name] = err.Error()
			log.Printf("%s card source sync skipped: %v", name, err)
			return
		}
		if len(products) == 0 {
			feedErrors[name] = "empty result"
		}
		if fallback {
			fallbackUsed = true
		}
		merged = append(merged, products...)
	}

	runFeed("kdb", c.cfg.Kdb.Enabled, func() ([]CardFeedProduct, bool, error) {
		return c.fetchKdbCards(ctx, serviceKey)
	})
	runFeed("krpost", c.cfg.Krpost.Enabled, func() ([]CardFeedProduct, bool, error) {
		return c.fetchKrpostCards(ctx, serviceKey)
	})
	runFeed("finance-stats", c.cfg.FinanceStats.Enabled, func() ([]CardFeedProduct, bool, error) {
		return c.fetchFinanceStatsCards(ctx, serviceKey)
	})

	deduplicated := deduplicateProducts(merged)
	if len(deduplicated) == 0 {
		return nil, apperrors.NewUpstreamUnavailableError(
			fmt.Sprintf("All public card sources returned empty result: %v", feedErrors), nil)
	}

	return &CardFeedResult{
		Products:          deduplicated,
		ItemsPathFallback: fallbackUsed,
		FeedErrors:        feedErrors,
	}, nil
}

func (c *CardFeedClient) fetchKdbCards(ctx context.Context, serviceKey string) ([]CardFeedProduct, bool, error) {
	kdb := c.cfg.Kdb
	if strings.TrimSpace(kdb.URL) == "" {
		return nil, false, nil
	}

	params := queryParams{
		{"serviceKey", serviceKey},
		{"pageNo", "1"},
		{"numOfRows", strconv.Itoa(kdb.NumOfRows)},
		{"sBseDt", kdb.StartDate},
		{"eBseDt", kdb.EndDate},
	}
	if kdb.ForceJSON {
		params = append(params, [2]string{"_type", "json"}, [2]string{"resultType", "json"})
	}

	rows, fallback, err := c.fetchPublicDataRowsPaged(ctx, kdb.URL, params, kdb.ItemsPath, "KDB card product source")
	if err != nil {
		return nil, false, err
	}

	products := mapRowsToProducts(rows, rowMapping{
		keyPrefix:         "public-kdb",
		defaultProvider:   kdb.Provider,
		urlFallback:       kdb.FallbackURL,
		defaultTags:       []string{"external", "cashback", "daily"},
		defaultCategories: []string{"online", "transport"},
		defaultSummary:    "한국산업은행 카드상품 데이터",
	})
	return products, fallback, nil
}

func (c *CardFeedClient) fetchKrpostCards(ctx context.Context, serviceKey string) ([]CardFeedProduct, bool, error) {
	krpost := c.cfg.Krpost
	if strings.TrimSpace(krpost.URL) == "" {
		return nil, false, nil
	}

	params := queryParams{
		{"serviceKey", serviceKey},
		{"GDS_NM", normalization.FirstNonBlank(krpost.Keyword, "브라보")},
		{"pageNo", "1"},
		{"numOfRows", strconv.Itoa(krpost.NumOfRows)},
	}

	rows, fallback, err := c.fetchPublicDataRowsPaged(ctx, krpost.URL, params, "", "KRPOST card product source")
	if err != nil {
		return nil, false, err
	}

	products := mapRowsToProducts(rows, rowMapping{
		keyPrefix:         "public-krpost",
		defaultProvider:   krpost.Provider,
		urlFallback:       krpost.FallbackURL,
		defaultTags:       []string{"external", "starter", "daily"},
		defaultCategories: []string{"transport"},
		defaultSummary:    "우체국 체크카드상품 데이터",
	})
	return products, fallback, nil
}

func (c *CardFeedClient) fetchFinanceStatsCards(ctx context.Context, serviceKey string) ([]CardFeedProduct, bool, error) {
	fs := c.cfg.FinanceStats
	if strings.TrimSpace(fs.URL) == "" {
		return nil, false, nil
	}

	basYm := strings.TrimSpace(fs.BaseMonth)
	if basYm == "" {
		basYm = c.now().AddDate(0, -1, 0).Format("200601")
	}

	params := queryParams{
		{"serviceKey", serviceKey},
		{"numOfRows", strconv.Itoa(fs.NumOfRows)},
		{"pageNo", "1"},
		{"resultType", normalization.FirstNonBlank(fs.ResultType, "json")},
		{"title", normalization.FirstNonBlank(fs.Title, "신용카드_일반현황_임직원현황")},
		{"basYm", basYm},
	}

	rows, fallback, err := c.fetchPublicDataRowsPaged(ctx, fs.URL, params, "", "Finance committee card stats source")
	if err != nil {
		return nil, false, err
	}

	// Statistics rows are kept in the catalog but excluded from ranking via
	// the stat-only tag.
	products := mapRowsToProducts(rows, rowMapping{
		keyPrefix:       "public-finstat",
		defaultProvider: fs.Provider,
		urlFallback:     fs.FallbackURL,
		defaultTags:     []string{"external", "stat-only"},
		defaultSummary:  "신용카드사 통계 데이터",
	})
	return products, fallback, nil
}

func (c *CardFeedClient) fetchPublicDataPage(
	ctx context.Context, baseURL string, params queryParams, itemsPath, sourceLabel string,
) ([]any, bool, int, error) {
	body, err := c.fetchRemote(ctx, buildRequestURL(baseURL, params))
	if err != nil {
		return nil, false, -1, err
	}

	root, err := c.parseStructuredBody(body, sourceLabel)
	if err != nil {
		return nil, false, -1, err
	}
	if err := validatePublicDataEnvelope(root, sourceLabel); err != nil {
		return nil, false, -1, err
	}

	rows, fallback, err := resolvePublicDataRows(root, itemsPath)
	if err != nil {
		return nil, fallback, -1, err
	}
	return rows, fallback, extractTotalCount(root), nil
}

func (c *CardFeedClient) fetchPublicDataRowsPaged(
	ctx context.Context, baseURL string, params queryParams, itemsPath, sourceLabel string,
) ([]any, bool, error) {
	startPage := parsePositiveInt(params.get("pageNo"), 1)
	numOfRows := parsePositiveInt(params.get("numOfRows"), 100)
	pageLimit := c.cfg.MaxPages
	if pageLimit < 1 {
		pageLimit = 1
	}

	var merged []any
	fallbackUsed := false

	for offset := 0; offset < pageLimit; offset++ {
		currentPage := startPage + offset
		pagedParams := params.with("pageNo", strconv.Itoa(currentPage))

		rows, fallback, totalCount, err := c.fetchPublicDataPage(ctx, baseURL, pagedParams, itemsPath, sourceLabel)
		if err != nil {
			return nil, false, err
		}
		if fallback {
			fallbackUsed = true
		}

		merged = append(merged, rows...)

		if len(rows) == 0 || len(rows) < numOfRows {
			break
		}
		if totalCount > 0 && (len(merged) >= totalCount || currentPage*numOfRows >= totalCount) {
			break
		}
	}

	return merged, fallbackUsed, nil
}

func (c *CardFeedClient) loadBody(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return c.fetchRemote(ctx, source)
	}

	path := strings.TrimPrefix(source, "file://")
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Failed to read external card source file: "+err.Error(), err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, apperrors.NewConfigurationError("External card source file is empty", nil)
	}
	return body, nil
}

func (c *CardFeedClient) fetchRemote(ctx context.Context, requestURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("External card source request cancelled", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build external card request", err)
	}
	req.Header.Set("Accept", "application/json, application/xml, text/xml, */*")
	req.Header.Set("User-Agent", finlifeUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("Failed to fetch external card source: "+err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("External card source read failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewUpstreamUnavailableError(
			fmt.Sprintf("External card source returned status %d", resp.StatusCode), nil)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, apperrors.NewUpstreamUnavailableError("External card source returned empty body", nil)
	}
	return body, nil
}

// parseStructuredBody tries JSON first and falls back to the injected XML
// decoder.
func (c *CardFeedClient) parseStructuredBody(body []byte, sourceLabel string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()

	var root any
	if err := decoder.Decode(&root); err == nil {
		return root, nil
	}

	tree, err := c.xmlDecoder.Decode(body)
	if err != nil {
		return nil, apperrors.NewUpstreamFormatError(
			"Failed to parse "+sourceLabel+" response as JSON/XML", err)
	}
	return tree, nil
}

func validatePublicDataEnvelope(root any, sourceLabel string) error {
	resultCode := normalization.FirstNonBlank(
		treeText(treePath(root, "response", "header"), "resultCode"),
		treeText(treePath(root, "header"), "resultCode"),
		treeText(root, "resultCode"),
	)
	if resultCode == "" {
		return nil
	}

	switch {
	case resultCode == "0", resultCode == "00", resultCode == "000",
		strings.EqualFold(resultCode, "NORMAL_CODE"):
		return nil
	}

	resultMsg := normalization.FirstNonBlank(
		treeText(treePath(root, "response", "header"), "resultMsg"),
		treeText(treePath(root, "header"), "resultMsg"),
		treeText(root, "resultMsg"),
		"unknown error",
	)
	return apperrors.NewUpstreamFormatError(
		fmt.Sprintf("%s API error (%s): %s", sourceLabel, resultCode, resultMsg), nil)
}

func resolveSourceRows(root any) ([]any, error) {
	if root == nil {
		return nil, apperrors.NewUpstreamFormatError("External card source JSON is empty", nil)
	}

	if rows, ok := root.([]any); ok {
		return rows, nil
	}
	for _, field := range []string{"cards", "data", "items"} {
		if rows, ok := treePath(root, field).([]any); ok {
			return rows, nil
		}
	}

	return nil, apperrors.NewUpstreamFormatError(
		"External card source JSON must be an array or include cards/data/items array", nil)
}

var itemsPathFallbackCandidates = [][]string{
	{"response", "body", "items", "item"},
	{"response", "body", "items"},
	{"response", "body", "tableList", "0", "items", "item"},
	{"response", "body", "tableList", "0", "items"},
	{"response", "body", "tableList", "items", "item"},
	{"body", "items", "item"},
	{"body", "items"},
	{"items", "item"},
	{"items"},
	{"data"},
	{"cards"},
	{"result", "items"},
}

// resolvePublicDataRows locates the row array. The configured itemsPath wins;
// when it misses, the built-in candidates are tried and the fallback is
// reported to the caller.
func resolvePublicDataRows(root any, itemsPath string) ([]any, bool, error) {
	if root == nil {
		return nil, false, apperrors.NewUpstreamFormatError("Public data API response is empty", nil)
	}

	if rows, ok := root.([]any); ok {
		return rows, false, nil
	}

	fallbackUsed := false
	if strings.TrimSpace(itemsPath) != "" {
		selected := selectTreePath(root, itemsPath)
		if rows := normalizeRowsNode(selected); rows != nil {
			return rows, false, nil
		}
		fallbackUsed = true
		log.Printf("Configured itemsPath %s not matched. Falling back to default path candidates", itemsPath)
	}

	for _, candidate := range itemsPathFallbackCandidates {
		node := root
		for _, segment := range candidate {
			node = pathByFieldOrIndex(node, segment)
		}
		if rows := normalizeRowsNode(node); rows != nil {
			return rows, fallbackUsed, nil
		}
	}

	return nil, fallbackUsed, apperrors.NewUpstreamFormatError(
		"Public data response rows not found. Configure CARD_PUBLIC_DATA_ITEMS_PATH if needed", nil)
}

// selectTreePath walks a dot expression with optional field[index] brackets.
func selectTreePath(root any, pathExpression string) any {
	current := root
	for _, token := range strings.Split(pathExpression, ".") {
		field := strings.TrimSpace(token)
		if field == "" {
			continue
		}
		current = applyPathToken(current, field)
	}
	return current
}

func applyPathToken(current any, token string) any {
	remaining := strings.TrimSpace(token)
	for remaining != "" {
		if current == nil {
			return nil
		}

		openBracket := strings.IndexByte(remaining, '[')
		if openBracket < 0 {
			return pathByFieldOrIndex(current, remaining)
		}

		if fieldPart := strings.TrimSpace(remaining[:openBracket]); fieldPart != "" {
			current = pathByFieldOrIndex(current, fieldPart)
		}

		closeBracket := strings.IndexByte(remaining[openBracket:], ']')
		if closeBracket < 0 {
			return pathByFieldOrIndex(current, remaining)
		}
		closeBracket += openBracket

		indexPart := strings.TrimSpace(remaining[openBracket+1 : closeBracket])
		current = pathByFieldOrIndex(current, indexPart)
		remaining = strings.TrimSpace(remaining[closeBracket+1:])
	}
	return current
}

func pathByFieldOrIndex(current any, segment string) any {
	normalized := strings.TrimSpace(segment)
	if normalized == "" {
		return current
	}

	if index, err := strconv.Atoi(normalized); err == nil {
		if list, ok := current.([]any); ok {
			if index >= 0 && index < len(list) {
				return list[index]
			}
			return nil
		}
	}
	return treePath(current, normalized)
}

// normalizeRowsNode turns a selected node into a row array: arrays pass
// through, objects unwrap .item/.data arrays or become a single-row array.
func normalizeRowsNode(node any) []any {
	switch v := node.(type) {
	case nil:
		return nil
	case []any:
		return v
	case map[string]any:
		if items, ok := v["item"].([]any); ok {
			return items
		}
		if data, ok := v["data"].([]any); ok {
			return data
		}
		return []any{v}
	}
	return nil
}

func extractTotalCount(root any) int {
	raw := normalization.FirstNonBlank(
		treeText(treePath(root, "response", "body", "items"), "totalCount"),
		treeText(treePath(root, "response", "body"), "totalCount"),
		treeText(treePath(root, "body"), "totalCount"),
		treeText(root, "totalCount"),
	)
	return parsePositiveInt(raw, -1)
}

func parsePositiveInt(value string, fallback int) int {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(normalized)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

type rowMapping struct {
	keyPrefix         string
	defaultProvider   string
	urlFallback       string
	defaultTags       []string
	defaultCategories []string
	defaultSummary    string
}

func mapRowsToProducts(rows []any, mapping rowMapping) []CardFeedProduct {
	var products []CardFeedProduct

	for _, rawRow := range rows {
		row, ok := rawRow.(map[string]any)
		if !ok {
			continue
		}

		providerName := normalization.FirstNonBlank(
			treeText(row, "providerName"), treeText(row, "provider"), treeText(row, "company"),
			treeText(row, "cardCoNm"), treeText(row, "cardCompanyName"), treeText(row, "cardIssrNm"),
			treeText(row, "cmpyNm"), treeText(row, "bankName"), treeText(row, "fncoNm"),
			treeText(row, "fncNm"), mapping.defaultProvider,
		)
		productName := normalization.FirstNonBlank(
			treeText(row, "productName"), treeText(row, "name"), treeText(row, "cardPrdNm"),
			treeText(row, "cardNm"), treeText(row, "prdNm"), treeText(row, "finPrdtNm"),
			treeText(row, "GDS_NM"), treeText(row, "title"),
		)
		if providerName == "" || productName == "" {
			continue
		}

		productKey := normalization.FirstNonBlank(
			treeText(row, "productKey"), treeText(row, "product_id"), treeText(row, "code"),
			treeText(row, "cardPrdId"), treeText(row, "cardPrdCd"), treeText(row, "id"),
			treeText(row, "GDS_CD"), treeText(row, "gdsCd"), treeText(row, "fncoCd"),
			treeText(row, "crno"),
		)
		if productKey == "" {
			productKey = generateProductKey(mapping.keyPrefix, providerName, productName)
		}

		annualFeeText := normalization.FirstNonBlank(
			treeText(row, "annualFeeText"), treeText(row, "annualFee"), treeText(row, "annlFee"),
			treeText(row, "annFee"), treeText(row, "cardFee"), treeText(row, "fee"),
			treeText(row, "anmfOtl"), "연회비 정보 없음",
		)

		officialURL := normalization.FirstNonBlank(
			treeText(row, "officialUrl"), treeText(row, "url"), treeText(row, "link"),
			treeText(row, "homepageUrl"), treeText(row, "hompUrl"), treeText(row, "CCRD_URL_S50"),
			mapping.urlFallback,
		)

		tags := mergeLowerSet(mapping.defaultTags,
			row["tags"], row["tagCodes"], row["benefitType"], row["bnftType"])
		categories := mergeLowerSet(mapping.defaultCategories,
			row["categories"], row["categoryCodes"], row["benefitCategory"], row["bnftCategory"])

		products = append(products, CardFeedProduct{
			ProductKey:    productKey,
			ProviderName:  providerName,
			ProductName:   productName,
			AnnualFeeText: annualFeeText,
			Summary:       buildSummaryFromRow(row, mapping.defaultSummary),
			OfficialURL:   officialURL,
			Tags:          tags,
			Categories:    categories,
		})
	}

	return products
}

func buildSummaryFromRow(row map[string]any, defaultSummary string) string {
	explicit := normalization.FirstNonBlank(
		treeText(row, "summary"), treeText(row, "description"), treeText(row, "benefitSummary"),
		treeText(row, "bnftSmry"), treeText(row, "cardDesc"), treeText(row, "prdtFeature"),
		treeText(row, "prdOtl"),
	)
	if explicit != "" {
		return explicit
	}

	var parts []string
	addSummaryPart(&parts, "가입대상", normalization.FirstNonBlank(treeText(row, "PPSN_CORP_DVSN_NM_S10"), treeText(row, "jinTgtCone")))
	addSummaryPart(&parts, "발급가능", treeText(row, "CARD_ISSU_PSBL_YN_S10"))
	addSummaryPart(&parts, "교통카드", normalization.FirstNonBlank(treeText(row, "TRFC_CARD_DVSN_NM_S20"), treeText(row, "cadTpTcNm")))
	addSummaryPart(&parts, "해외이용", normalization.FirstNonBlank(treeText(row, "FORN_USE_PSBL_YN_S30"), treeText(row, "frnUseYn")))
	addSummaryPart(&parts, "상품개요", normalization.FirstNonBlank(treeText(row, "prdOtl"), treeText(row, "benefit"), treeText(row, "prdtFeature")))

	if len(parts) > 0 {
		return strings.Join(parts, " · ")
	}
	return defaultSummary
}

func addSummaryPart(parts *[]string, label, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*parts = append(*parts, label+": "+trimmed)
	}
}

func deduplicateProducts(products []CardFeedProduct) []CardFeedProduct {
	index := map[string]int{}
	var deduplicated []CardFeedProduct

	// Last write wins, first-seen order is preserved.
	for _, product := range products {
		key := strings.TrimSpace(product.ProductKey)
		if key == "" {
			continue
		}
		if position, seen := index[key]; seen {
			deduplicated[position] = product
			continue
		}
		index[key] = len(deduplicated)
		deduplicated = append(deduplicated, product)
	}
	return deduplicated
}

// generateProductKey derives a stable key for feed rows without an explicit
// identifier: prefix, a slug of provider and name, and a hex hash that stays
// stable across syncs.
func generateProductKey(prefix, providerName, productName string) string {
	slug := toSlug(providerName + "-" + productName)
	if slug == "" {
		slug = "card"
	}
	stableHash := strconv.FormatUint(uint64(stringHash(providerName+"|"+productName)), 16)
	return prefix + "-" + slug + "-" + stableHash
}

func toSlug(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	var builder strings.Builder
	lastDash := false
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			builder.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(builder.String(), "-")
}

// stringHash is the 31-based rolling hash over UTF-16 code units, kept so
// generated keys match rows ingested by earlier versions of the importer.
func stringHash(value string) uint32 {
	var hash int32
	for _, unit := range utf16.Encode([]rune(value)) {
		hash = 31*hash + int32(unit)
	}
	return uint32(hash)
}

type queryParams [][2]string

func (q queryParams) get(key string) string {
	for _, pair := range q {
		if pair[0] == key {
			return pair[1]
		}
	}
	return ""
}

func (q queryParams) with(key, value string) queryParams {
	replaced := make(queryParams, 0, len(q)+1)
	found := false
	for _, pair := range q {
		if pair[0] == key {
			replaced = append(replaced, [2]string{key, value})
			found = true
			continue
		}
		replaced = append(replaced, pair)
	}
	if !found {
		replaced = append(replaced, [2]string{key, value})
	}
	return replaced
}

func appendExtraQuery(params queryParams, extraQuery string) queryParams {
	normalized := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(extraQuery), "?"))
	if normalized == "" {
		return params
	}

	for _, token := range strings.Split(normalized, "&") {
		part := strings.TrimSpace(token)
		if part == "" {
			continue
		}
		if equalIndex := strings.IndexByte(part, '='); equalIndex >= 0 {
			params = params.with(part[:equalIndex], part[equalIndex+1:])
		} else {
			params = params.with(part, "")
		}
	}
	return params
}

func buildRequestURL(baseURL string, params queryParams) string {
	builder := strings.Builder{}
	builder.WriteString(strings.TrimSpace(baseURL))
	hasQuery := strings.Contains(baseURL, "?")

	for _, pair := range params {
		key := strings.TrimSpace(pair[0])
		value := strings.TrimSpace(pair[1])
		if key == "" || value == "" {
			continue
		}

		if !hasQuery {
			builder.WriteByte('?')
			hasQuery = true
		} else {
			builder.WriteByte('&')
		}
		builder.WriteString(url.QueryEscape(key))
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(value))
	}
	return builder.String()
}

func splitCSVLower(csv string) []string {
	var values []string
	for _, part := range strings.Split(csv, ",") {
		value := strings.ToLower(strings.TrimSpace(part))
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}

func mergeLowerSet(defaults []string, nodes ...any) []string {
	seen := map[string]struct{}{}
	var values []string
	add := func(raw string) {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			return
		}
		if _, ok := seen[value]; ok {
			return
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}

	for _, value := range defaults {
		add(value)
	}
	for _, node := range nodes {
		switch v := node.(type) {
		case nil:
			continue
		case []any:
			for _, item := range v {
				add(treeScalarText(item))
			}
		default:
			for _, part := range strings.Split(treeScalarText(v), ",") {
				add(part)
			}
		}
	}
	return values
}

// treePath walks nested maps, returning nil on any miss.
func treePath(node any, fields ...string) any {
	current := node
	for _, field := range fields {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[field]
	}
	return current
}

// treeText reads a scalar field of a map node as trimmed text.
func treeText(node any, field string) string {
	m, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	return treeScalarText(m[field])
}

func treeScalarText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
