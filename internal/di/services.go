package di

import (
	"fmt"

	"github.com/aristath/riskbucket/internal/config"
	"github.com/aristath/riskbucket/internal/events"
	"github.com/aristath/riskbucket/internal/modules/buckets"
	"github.com/aristath/riskbucket/internal/modules/history"
	"github.com/aristath/riskbucket/internal/modules/trading"
	"github.com/aristath/riskbucket/internal/modules/universe"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories on top of the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.UniverseDB == nil || container.PortfolioDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	container.UniverseRepo = universe.NewRepository(container.UniverseDB.Conn(), log)
	container.BucketRepo = buckets.NewRepository(container.PortfolioDB.Conn(), log)
	container.TradingRepo = trading.NewRepository(container.PortfolioDB.Conn(), log)
	container.HistoryRepo = history.NewRepository(container.PortfolioDB.Conn(), log)
	return nil
}

// InitializeServices creates the event bus and the services
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.UniverseRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.UniverseService = universe.NewService(container.UniverseRepo, log)
	container.BucketService = buckets.NewService(
		container.BucketRepo,
		container.UniverseService,
		container.EventManager,
		cfg.DefaultBucketCash,
		log,
	)
	container.TradingService = trading.NewService(
		container.TradingRepo,
		container.BucketService,
		container.EventManager,
		cfg.DefaultAccountCash,
		log,
	)
	container.HistoryService = history.NewService(container.HistoryRepo, container.BucketService, log)
	return nil
}
