package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"benepick/internal/config"
	apperrors "benepick/server/errors"
)

const finlifeUserAgent = "benepick-backend/1.0"

// Finlife endpoint names.
const (
	FinlifeCompanyEndpoint = "companySearch.json"
	FinlifeDepositEndpoint = "depositProductsSearch.json"
	FinlifeSavingEndpoint  = "savingProductsSearch.json"
)

// FinlifeClient calls the FSS Finlife open API.
type FinlifeClient struct {
	baseURL    string
	authKey    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFinlifeClient builds a client from the Finlife config section.
func NewFinlifeClient(cfg config.FinlifeConfig) *FinlifeClient {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxConnsPerHost:     5,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 5,
	}

	limit := cfg.RateLimitPerSec
	if limit < 1 {
		limit = 1
	}

	return &FinlifeClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		authKey: cfg.AuthKey,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(limit), limit),
	}
}

// FlexInt decodes JSON numbers that may arrive as strings.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "" || trimmed == "null" {
		*f = 0
		return nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(value)
	return nil
}

// FlexFloat decodes JSON floats that may arrive as strings or null.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "" || trimmed == "null" {
		*f = 0
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(value)
	return nil
}

// FinlifeBaseItem is one row of a Finlife baseList.
type FinlifeBaseItem struct {
	FinCoNo    string `json:"fin_co_no"`
	FinPrdtCd  string `json:"fin_prdt_cd"`
	KorCoNm    string `json:"kor_co_nm"`
	FinPrdtNm  string `json:"fin_prdt_nm"`
	JoinWay    string `json:"join_way"`
	SpclCnd    string `json:"spcl_cnd"`
	EtcNote    string `json:"etc_note"`
	JoinMember string `json:"join_member"`
	HompURL    string `json:"homp_url"`
	HomeURL    string `json:"home_url"`
}

// FinlifeOptionItem is one row of a Finlife optionList with interest rates.
type FinlifeOptionItem struct {
	FinCoNo   string    `json:"fin_co_no"`
	FinPrdtCd string    `json:"fin_prdt_cd"`
	IntrRate  FlexFloat `json:"intr_rate"`
	IntrRate2 FlexFloat `json:"intr_rate2"`
}

// FinlifeResult is the result object every Finlife endpoint wraps its payload
// in.
type FinlifeResult struct {
	ErrCd      string              `json:"err_cd"`
	ErrMsg     string              `json:"err_msg"`
	NowPageNo  FlexInt             `json:"now_page_no"`
	MaxPageNo  FlexInt             `json:"max_page_no"`
	BaseList   []FinlifeBaseItem   `json:"baseList"`
	OptionList []FinlifeOptionItem `json:"optionList"`
}

type finlifeEnvelope struct {
	Result *FinlifeResult `json:"result"`
}

// Companies fetches one page of the company search endpoint.
func (c *FinlifeClient) Companies(ctx context.Context, topFinGrpNo string, pageNo int) (*FinlifeResult, error) {
	return c.fetchResult(ctx, FinlifeCompanyEndpoint, topFinGrpNo, pageNo)
}

// DepositProducts fetches one page of deposit products.
func (c *FinlifeClient) DepositProducts(ctx context.Context, topFinGrpNo string, pageNo int) (*FinlifeResult, error) {
	return c.fetchResult(ctx, FinlifeDepositEndpoint, topFinGrpNo, pageNo)
}

// SavingProducts fetches one page of saving products.
func (c *FinlifeClient) SavingProducts(ctx context.Context, topFinGrpNo string, pageNo int) (*FinlifeResult, error) {
	return c.fetchResult(ctx, FinlifeSavingEndpoint, topFinGrpNo, pageNo)
}

func (c *FinlifeClient) fetchResult(ctx context.Context, endpoint, topFinGrpNo string, pageNo int) (*FinlifeResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("Finlife API request cancelled", err)
	}

	query := url.Values{}
	query.Set("auth", c.authKey)
	query.Set("topFinGrpNo", topFinGrpNo)
	query.Set("pageNo", strconv.Itoa(pageNo))
	requestURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build Finlife request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", finlifeUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("Finlife API request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("Finlife API response read failed", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("Finlife %s returned status %d", endpoint, resp.StatusCode)
		return nil, apperrors.NewUpstreamUnavailableError(
			fmt.Sprintf("Finlife API returned status %d", resp.StatusCode), nil)
	}
	if len(body) == 0 {
		return nil, apperrors.NewUpstreamUnavailableError("Finlife API returned empty body", nil)
	}

	var envelope finlifeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.NewUpstreamFormatError("Finlife API response is not valid JSON", err)
	}
	if envelope.Result == nil {
		return nil, apperrors.NewUpstreamFormatError("Finlife API response has no result field", nil)
	}

	errCd := strings.TrimSpace(envelope.Result.ErrCd)
	if errCd != "" && errCd != "000" {
		message := strings.TrimSpace(envelope.Result.ErrMsg)
		if message == "" {
			message = "unknown error"
		}
		return nil, apperrors.NewUpstreamFormatError(
			fmt.Sprintf("Finlife API error (%s): %s", errCd, message), nil)
	}

	return envelope.Result, nil
}
