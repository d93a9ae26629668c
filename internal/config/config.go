package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full server configuration, loaded from the environment.
type Config struct {
	Port         string `json:"port"`
	DatabasePath string `json:"database_path"`

	// Connection pooling
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	Finlife      FinlifeConfig      `json:"finlife"`
	CardExternal CardExternalConfig `json:"card_external"`
	Scoring      ScoringConfig      `json:"scoring"`
	QualityLoop  QualityLoopConfig  `json:"quality_loop"`
	Scheduler    SchedulerConfig    `json:"scheduler"`

	// key=url override file for official product links
	URLOverridePath string `json:"url_override_path"`
}

// FinlifeConfig configures the FSS Finlife open API client.
type FinlifeConfig struct {
	BaseURL          string        `json:"base_url"`
	AuthKey          string        `json:"auth_key"`
	TopFinGrpNos     []string      `json:"top_fin_grp_nos"`
	MaxPagesPerGroup int           `json:"max_pages_per_group"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	ReadTimeout      time.Duration `json:"read_timeout"`
	RateLimitPerSec  int           `json:"rate_limit_per_sec"`
}

// CardExternalConfig configures the card feed client. Mode selects between a
// direct source document, a single public-data API or the merged public feeds.
type CardExternalConfig struct {
	Mode           string        `json:"mode"`
	SourceURL      string        `json:"source_url"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	MaxPages       int           `json:"max_pages"`

	PublicData   PublicDataConfig   `json:"public_data"`
	Kdb          KdbFeedConfig      `json:"kdb"`
	Krpost       KrpostFeedConfig   `json:"krpost"`
	FinanceStats FinanceStatsConfig `json:"finance_stats"`
}

// PublicDataConfig is the generic single public-data feed.
type PublicDataConfig struct {
	URL             string `json:"url"`
	ServiceKey      string `json:"service_key"`
	ServiceKeyParam string `json:"service_key_param"`
	PageNo          int    `json:"page_no"`
	NumOfRows       int    `json:"num_of_rows"`
	ForceJSON       bool   `json:"force_json"`
	ItemsPath       string `json:"items_path"`
	ExtraQuery      string `json:"extra_query"`
	DefaultTags     string `json:"default_tags"`
}

// KdbFeedConfig is the KDB card product list feed.
type KdbFeedConfig struct {
	Enabled     bool   `json:"enabled"`
	URL         string `json:"url"`
	ServiceKey  string `json:"service_key"`
	NumOfRows   int    `json:"num_of_rows"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	ForceJSON   bool   `json:"force_json"`
	ItemsPath   string `json:"items_path"`
	Provider    string `json:"provider"`
	FallbackURL string `json:"fallback_url"`
}

// KrpostFeedConfig is the Korea Post check-card feed.
type KrpostFeedConfig struct {
	Enabled     bool   `json:"enabled"`
	URL         string `json:"url"`
	ServiceKey  string `json:"service_key"`
	NumOfRows   int    `json:"num_of_rows"`
	Keyword     string `json:"keyword"`
	Provider    string `json:"provider"`
	FallbackURL string `json:"fallback_url"`
}

// FinanceStatsConfig is the credit-card company statistics feed. Its rows are
// tagged stat-only and never ranked.
type FinanceStatsConfig struct {
	Enabled     bool   `json:"enabled"`
	URL         string `json:"url"`
	ServiceKey  string `json:"service_key"`
	NumOfRows   int    `json:"num_of_rows"`
	Title       string `json:"title"`
	ResultType  string `json:"result_type"`
	BaseMonth   string `json:"base_month"`
	Provider    string `json:"provider"`
	FallbackURL string `json:"fallback_url"`
}

// ScoringConfig selects the weight profile.
type ScoringConfig struct {
	Profile string `json:"profile"`
}

// QualityLoopConfig holds the feedback-loop thresholds.
type QualityLoopConfig struct {
	Enabled        bool `json:"enabled"`
	RunOnStartup   bool `json:"run_on_startup"`
	RunScheduled   bool `json:"run_scheduled"`
	WindowDays     int  `json:"window_days"`
	MinRecommended int  `json:"min_recommended"`
	LowCtr         int  `json:"low_ctr"`
	HighCtr        int  `json:"high_ctr"`
	LowCvr         int  `json:"low_cvr"`
	HighCvr        int  `json:"high_cvr"`
	MaxAdjustment  int  `json:"max_adjustment"`

	Interval time.Duration `json:"interval"`
}

// SchedulerConfig controls the periodic catalog sync.
type SchedulerConfig struct {
	Enabled      bool `json:"enabled"`
	RunOnStartup bool `json:"run_on_startup"`
	RunScheduled bool `json:"run_scheduled"`
	SyncFinlife  bool `json:"sync_finlife"`
	SyncCards    bool `json:"sync_cards"`

	Interval time.Duration `json:"interval"`
}

// LoadConfig reads the configuration from environment variables with the
// documented defaults.
func LoadConfig() (*Config, error) {
	config := &Config{
		Port:         getEnv("SERVER_PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/benepick.db"),

		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 3),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		Finlife: FinlifeConfig{
			BaseURL:          getEnv("FINLIFE_BASE_URL", "https://finlife.fss.or.kr/finlifeapi"),
			AuthKey:          getEnv("FINLIFE_AUTH_KEY", ""),
			TopFinGrpNos:     splitCSV(getEnv("FINLIFE_TOP_FIN_GRP_NOS", "020000")),
			MaxPagesPerGroup: getEnvInt("FINLIFE_MAX_PAGES_PER_GROUP", 2),
			ConnectTimeout:   getEnvDuration("FINLIFE_CONNECT_TIMEOUT", 5*time.Second),
			ReadTimeout:      getEnvDuration("FINLIFE_READ_TIMEOUT", 12*time.Second),
			RateLimitPerSec:  getEnvInt("FINLIFE_RATE_LIMIT_PER_SEC", 5),
		},

		CardExternal: CardExternalConfig{
			Mode:           getEnv("CARD_EXTERNAL_MODE", "source"),
			SourceURL:      getEnv("CARD_EXTERNAL_SOURCE_URL", ""),
			ConnectTimeout: getEnvDuration("CARD_EXTERNAL_CONNECT_TIMEOUT", 4*time.Second),
			ReadTimeout:    getEnvDuration("CARD_EXTERNAL_READ_TIMEOUT", 10*time.Second),
			MaxPages:       getEnvInt("CARD_EXTERNAL_MAX_PAGES", 2),

			PublicData: PublicDataConfig{
				URL:             getEnv("CARD_PUBLIC_DATA_URL", ""),
				ServiceKey:      getEnv("CARD_PUBLIC_DATA_SERVICE_KEY", ""),
				ServiceKeyParam: getEnv("CARD_PUBLIC_DATA_SERVICE_KEY_PARAM", "serviceKey"),
				PageNo:          getEnvInt("CARD_PUBLIC_DATA_PAGE_NO", 1),
				NumOfRows:       getEnvInt("CARD_PUBLIC_DATA_NUM_OF_ROWS", 200),
				ForceJSON:       getEnvBool("CARD_PUBLIC_DATA_FORCE_JSON", true),
				ItemsPath:       getEnv("CARD_PUBLIC_DATA_ITEMS_PATH", ""),
				ExtraQuery:      getEnv("CARD_PUBLIC_DATA_EXTRA_QUERY", ""),
				DefaultTags:     getEnv("CARD_PUBLIC_DATA_DEFAULT_TAGS", "external"),
			},

			Kdb: KdbFeedConfig{
				Enabled:     getEnvBool("CARD_KDB_ENABLED", true),
				URL:         getEnv("CARD_KDB_URL", "https://apis.data.go.kr/B190030/GetCardProductInfoService/getCardProductList"),
				ServiceKey:  getEnv("CARD_KDB_SERVICE_KEY", ""),
				NumOfRows:   getEnvInt("CARD_KDB_NUM_OF_ROWS", 500),
				StartDate:   getEnv("CARD_KDB_START_DATE", "20210101"),
				EndDate:     getEnv("CARD_KDB_END_DATE", "20991231"),
				ForceJSON:   getEnvBool("CARD_KDB_FORCE_JSON", true),
				ItemsPath:   getEnv("CARD_KDB_ITEMS_PATH", "response.body.items.item"),
				Provider:    getEnv("CARD_KDB_PROVIDER", "한국산업은행"),
				FallbackURL: getEnv("CARD_KDB_FALLBACK_URL", "https://www.kdb.co.kr"),
			},

			Krpost: KrpostFeedConfig{
				Enabled:     getEnvBool("CARD_KRPOST_ENABLED", true),
				URL:         getEnv("CARD_KRPOST_URL", "https://opap.ipostbank.co.kr/data/CheckcardGoods"),
				ServiceKey:  getEnv("CARD_KRPOST_SERVICE_KEY", ""),
				NumOfRows:   getEnvInt("CARD_KRPOST_NUM_OF_ROWS", 200),
				Keyword:     getEnv("CARD_KRPOST_KEYWORD", "브라보"),
				Provider:    getEnv("CARD_KRPOST_PROVIDER", "우체국"),
				FallbackURL: getEnv("CARD_KRPOST_FALLBACK_URL", "https://www.epostbank.go.kr"),
			},

			FinanceStats: FinanceStatsConfig{
				Enabled:     getEnvBool("CARD_FINSTAT_ENABLED", true),
				URL:         getEnv("CARD_FINSTAT_URL", "https://apis.data.go.kr/1160100/service/GetCredCardCompInfoService/getCredCardCompGeneInfo"),
				ServiceKey:  getEnv("CARD_FINSTAT_SERVICE_KEY", ""),
				NumOfRows:   getEnvInt("CARD_FINSTAT_NUM_OF_ROWS", 500),
				Title:       getEnv("CARD_FINSTAT_TITLE", "신용카드사 일반현황"),
				ResultType:  getEnv("CARD_FINSTAT_RESULT_TYPE", "json"),
				BaseMonth:   getEnv("CARD_FINSTAT_BASE_MONTH", ""),
				Provider:    getEnv("CARD_FINSTAT_PROVIDER", "신용카드사"),
				FallbackURL: getEnv("CARD_FINSTAT_FALLBACK_URL", "https://www.fsc.go.kr"),
			},
		},

		Scoring: ScoringConfig{
			Profile: getEnv("SCORING_PROFILE", "balanced"),
		},

		QualityLoop: QualityLoopConfig{
			Enabled:        getEnvBool("QUALITY_LOOP_ENABLED", true),
			RunOnStartup:   getEnvBool("QUALITY_LOOP_RUN_ON_STARTUP", true),
			RunScheduled:   getEnvBool("QUALITY_LOOP_RUN_SCHEDULED", true),
			WindowDays:     getEnvInt("QUALITY_LOOP_WINDOW_DAYS", 14),
			MinRecommended: getEnvInt("QUALITY_LOOP_MIN_RECOMMENDED", 20),
			LowCtr:         getEnvInt("QUALITY_LOOP_LOW_CTR", 5),
			HighCtr:        getEnvInt("QUALITY_LOOP_HIGH_CTR", 18),
			LowCvr:         getEnvInt("QUALITY_LOOP_LOW_CVR", 3),
			HighCvr:        getEnvInt("QUALITY_LOOP_HIGH_CVR", 12),
			MaxAdjustment:  getEnvInt("QUALITY_LOOP_MAX_ADJUSTMENT", 20),
			Interval:       getEnvDuration("QUALITY_LOOP_INTERVAL", 6*time.Hour),
		},

		Scheduler: SchedulerConfig{
			Enabled:      getEnvBool("CATALOG_SYNC_ENABLED", true),
			RunOnStartup: getEnvBool("CATALOG_SYNC_RUN_ON_STARTUP", true),
			RunScheduled: getEnvBool("CATALOG_SYNC_RUN_SCHEDULED", true),
			SyncFinlife:  getEnvBool("CATALOG_SYNC_FINLIFE", true),
			SyncCards:    getEnvBool("CATALOG_SYNC_CARDS", true),
			Interval:     getEnvDuration("CATALOG_SYNC_INTERVAL", 12*time.Hour),
		},

		URLOverridePath: getEnv("PRODUCT_URL_OVERRIDE_PATH", "./config/product-url-overrides.properties"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func splitCSV(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
