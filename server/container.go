package server

import (
	"fmt"
	"log"

	"benepick/database"
	"benepick/internal/config"
	"benepick/server/services"
)

// Container wires the database, external clients and services together.
type Container struct {
	Config *config.Config
	DB     *database.CatalogDB

	FinlifeClient  *services.FinlifeClient
	CardFeedClient *services.CardFeedClient

	Overrides             *services.URLOverrideService
	StatusService         *services.SyncStatusService
	SyncService           *services.CatalogSyncService
	RecommendationService *services.RecommendationService
	AnalyticsService      *services.AnalyticsService
	QualityService        *services.QualityLoopService
	SearchService         *services.CatalogSearchService
	Scheduler             *services.SchedulerService
}

// NewContainer builds all dependencies on top of an already opened database.
func NewContainer(db *database.CatalogDB, cfg *config.Config) (*Container, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	container := &Container{Config: cfg, DB: db}

	log.Printf("Initializing external clients...")
	container.FinlifeClient = services.NewFinlifeClient(cfg.Finlife)
	container.CardFeedClient = services.NewCardFeedClient(cfg.CardExternal, services.XMLTreeDecoder{})

	log.Printf("Loading official URL overrides from %s...", cfg.URLOverridePath)
	container.Overrides = services.NewURLOverrideService(cfg.URLOverridePath, nil)
	log.Printf("Loaded %d URL overrides", container.Overrides.Count())

	log.Printf("Initializing services...")
	container.StatusService = services.NewSyncStatusService(db, nil)
	container.SyncService = services.NewCatalogSyncService(
		db,
		container.FinlifeClient,
		container.CardFeedClient,
		container.StatusService,
		cfg.Finlife,
		nil,
	)
	container.RecommendationService = services.NewRecommendationService(
		db, container.Overrides, cfg.Scoring.Profile, nil,
	)
	container.AnalyticsService = services.NewAnalyticsService(db)
	container.QualityService = services.NewQualityLoopService(db, cfg.QualityLoop, nil)
	container.SearchService = services.NewCatalogSearchService(db)
	container.Scheduler = services.NewSchedulerService(
		container.SyncService,
		container.QualityService,
		cfg.Scheduler,
		cfg.QualityLoop,
		nil,
	)
	log.Printf("Services initialized")

	return container, nil
}
