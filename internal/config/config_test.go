package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", config.Port)
	assert.Equal(t, "./data/benepick.db", config.DatabasePath)
	assert.Equal(t, []string{"020000"}, config.Finlife.TopFinGrpNos)
	assert.Equal(t, 2, config.Finlife.MaxPagesPerGroup)
	assert.Equal(t, "source", config.CardExternal.Mode)
	assert.Equal(t, "serviceKey", config.CardExternal.PublicData.ServiceKeyParam)
	assert.Equal(t, 200, config.CardExternal.PublicData.NumOfRows)
	assert.True(t, config.CardExternal.PublicData.ForceJSON)
	assert.Equal(t, "response.body.items.item", config.CardExternal.Kdb.ItemsPath)
	assert.Equal(t, "브라보", config.CardExternal.Krpost.Keyword)
	assert.Equal(t, "신용카드사 일반현황", config.CardExternal.FinanceStats.Title)
	assert.Equal(t, "balanced", config.Scoring.Profile)
	assert.Equal(t, 14, config.QualityLoop.WindowDays)
	assert.Equal(t, 20, config.QualityLoop.MinRecommended)
	assert.Equal(t, 20, config.QualityLoop.MaxAdjustment)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FINLIFE_TOP_FIN_GRP_NOS", "020000, 030300")
	t.Setenv("CARD_EXTERNAL_MODE", "public-data-all")
	t.Setenv("QUALITY_LOOP_WINDOW_DAYS", "7")
	t.Setenv("CATALOG_SYNC_INTERVAL", "30m")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Port)
	assert.Equal(t, []string{"020000", "030300"}, config.Finlife.TopFinGrpNos)
	assert.Equal(t, "public-data-all", config.CardExternal.Mode)
	assert.Equal(t, 7, config.QualityLoop.WindowDays)
	assert.Equal(t, 30*time.Minute, config.Scheduler.Interval)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")

	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("CARD_EXTERNAL_MODE", "scrape")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported card external mode")

	t.Setenv("CARD_EXTERNAL_MODE", "source")
	t.Setenv("SCORING_PROFILE", "extreme")
	_, err = LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scoring profile")
}
