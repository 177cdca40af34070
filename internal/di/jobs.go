package di

import (
	"fmt"

	"github.com/aristath/riskbucket/internal/config"
	"github.com/aristath/riskbucket/internal/modules/history"
	"github.com/aristath/riskbucket/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	walCheckpointSchedule  = "*/30 * * * *"
	integrityCheckSchedule = "0 3 * * *"
)

// RegisterJobs creates the background jobs and registers them with the scheduler
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.BucketService == nil {
		return nil, fmt.Errorf("services must be initialized first")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{
		Snapshot:       history.NewSnapshotJob(container.HistoryRepo, container.BucketService, container.EventManager, log),
		WALCheckpoint:  scheduler.NewWALCheckpointJob(log, container.UniverseDB, container.PortfolioDB),
		IntegrityCheck: scheduler.NewIntegrityCheckJob(log, container.UniverseDB, container.PortfolioDB),
	}

	schedules := []struct {
		spec string
		job  scheduler.Job
	}{
		{cfg.SnapshotSchedule, instances.Snapshot},
		{walCheckpointSchedule, instances.WALCheckpoint},
		{integrityCheckSchedule, instances.IntegrityCheck},
	}
	for _, s := range schedules {
		if err := container.Scheduler.AddJob(s.spec, s.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", s.job.Name(), err)
		}
	}

	container.Jobs = instances
	return instances, nil
}
