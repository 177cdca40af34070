// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/riskbucket/internal/database"
	"github.com/aristath/riskbucket/internal/events"
	"github.com/aristath/riskbucket/internal/modules/buckets"
	"github.com/aristath/riskbucket/internal/modules/history"
	"github.com/aristath/riskbucket/internal/modules/trading"
	"github.com/aristath/riskbucket/internal/modules/universe"
	"github.com/aristath/riskbucket/internal/scheduler"
)

// Container holds all application dependencies.
// It is the single source of truth for service instances and is passed to the server.
type Container struct {
	// Databases
	UniverseDB  *database.DB // stocks, daily quotes
	PortfolioDB *database.DB // buckets, configurations, accounts, trades, value history

	// Repositories
	UniverseRepo *universe.Repository
	BucketRepo   *buckets.Repository
	TradingRepo  *trading.Repository
	HistoryRepo  *history.Repository

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	UniverseService *universe.Service
	BucketService   *buckets.Service
	TradingService  *trading.Service
	HistoryService  *history.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	Snapshot       scheduler.Job
	WALCheckpoint  scheduler.Job
	IntegrityCheck scheduler.Job
}

// Close closes every open database
func (c *Container) Close() {
	for _, db := range []*database.DB{c.UniverseDB, c.PortfolioDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}
