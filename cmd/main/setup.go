package main

import (
	"price-scout/src/config"
	datasource "price-scout/src/data_source"
	"price-scout/src/data_source/extractors"
	"price-scout/src/helpers"
	"price-scout/src/interfaces"
	"price-scout/src/logger"
	"price-scout/src/models"
	"price-scout/src/network"
	"price-scout/src/scheduler"
	"price-scout/src/storage"
)

// application holds the components shared by every subcommand.
type application struct {
	Config *config.Config
	Logger *logger.Logger
	store  interfaces.IPriceStore
}

// -----------------------------------------------------------------------------

func loadApplication() (*application, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return &application{Config: cfg, Logger: logger.NewLogger(cfg.MConfig, cfg.Name)}, nil
}

// -----------------------------------------------------------------------------

// Store opens the history database on first use.
func (a *application) Store() (interfaces.IPriceStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	db, err := setupStore(a.Config.MConfig, a.Logger)
	if err != nil {
		return nil, err
	}
	a.store = db
	return db, nil
}

// -----------------------------------------------------------------------------

func (a *application) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Logger.Warning("Failed to close store: %v", err)
		}
	}
	a.Logger.Sync()
}

// -----------------------------------------------------------------------------

// setupStore initializes the database connection based on config
func setupStore(cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IPriceStore, error) {
	var db interfaces.IPriceStore
	var err error

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(cfg, logger.NewLogger(cfg, "PostgresDB"))
	default:
		db, err = storage.NewAsyncSQLiteDB(cfg, logger.NewLogger(cfg, "SQLiteDB"))
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupNetwork builds the shared HTTP client and page pool handed to extractors.
func setupNetwork(cfg *models.MConfig) extractors.Deps {
	proxies := helpers.NewProxyManager(cfg.Network.Proxies, cfg.Network.UserAgent, logger.NewLogger(cfg, "ProxyManager"))

	poolSize := cfg.Fetch.PagePoolSize
	if poolSize <= 0 {
		poolSize = helpers.RecommendedPagePoolSize()
	}

	return extractors.Deps{
		Network: network.NewAsyncNetworkManager(cfg, proxies, logger.NewLogger(cfg, "NetworkManager")),
		Proxies: proxies,
		Pool:    datasource.NewPagePool(poolSize),
		Logger:  logger.NewLogger(cfg, "Extractor"),
	}
}

// -----------------------------------------------------------------------------

// setupOrchestrator registers one extractor per enabled vendor.
func setupOrchestrator(cfg *models.MConfig, mode extractors.Mode, appLogger *logger.Logger) (*datasource.FetchOrchestrator, error) {
	registered, err := extractors.BuildExtractors(cfg, setupNetwork(cfg), mode)
	if err != nil {
		appLogger.Critical("Failed to build extractors: %v", err)
		return nil, err
	}

	orchestrator := datasource.NewFetchOrchestrator(cfg.Fetch, logger.NewLogger(cfg, "Orchestrator"))
	for _, reg := range registered {
		if err := orchestrator.AddExtractor(reg.Extractor, reg.Rule); err != nil {
			return nil, err
		}
	}
	appLogger.Info("Initialized %d vendors (%s mode)", len(registered), mode)
	return orchestrator, nil
}

// -----------------------------------------------------------------------------

// setupScheduler wires the batch scheduler. recorder may be nil.
func setupScheduler(cfg *config.Config, fetcher interfaces.IFetcher, recorder interfaces.IPriceRecorder) *scheduler.BatchScheduler {
	return scheduler.NewBatchScheduler(fetcher, recorder, cfg.Batch, cfg.Deadline(), logger.NewLogger(cfg.MConfig, "BatchScheduler"))
}
