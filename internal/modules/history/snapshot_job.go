package history

import (
	"fmt"
	"time"

	"github.com/aristath/riskbucket/internal/domain"
	"github.com/aristath/riskbucket/internal/events"
	"github.com/rs/zerolog"
)

// SnapshotJob records today's value of every bucket
type SnapshotJob struct {
	repo         *Repository
	buckets      BucketSource
	eventManager *events.Manager
	now          func() time.Time
	log          zerolog.Logger
}

// NewSnapshotJob creates a new SnapshotJob
func NewSnapshotJob(repo *Repository, buckets BucketSource, eventManager *events.Manager, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		repo:         repo,
		buckets:      buckets,
		eventManager: eventManager,
		now:          time.Now,
		log:          log.With().Str("job", "bucket_value_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "bucket_value_snapshot"
}

// Run values every bucket. A bucket that can not be valued is logged and skipped.
func (j *SnapshotJob) Run() error {
	all, err := j.buckets.All()
	if err != nil {
		return fmt.Errorf("failed to list buckets: %w", err)
	}

	date := domain.FormatDate(j.now())
	recorded, failed := 0, 0
	for _, bucket := range all {
		value, err := j.buckets.CurrentValue(bucket)
		if err == nil {
			err = j.repo.Upsert(Point{BucketID: bucket.ID, Date: date, Value: value})
		}
		if err != nil {
			failed++
			j.log.Warn().Err(err).Str("bucket_id", bucket.ID).Msg("Failed to snapshot bucket value")
			continue
		}
		recorded++
	}

	j.log.Info().
		Str("date", date).
		Int("recorded", recorded).
		Int("failed", failed).
		Msg("Bucket values recorded")

	if j.eventManager != nil {
		j.eventManager.Emit("history", &events.SnapshotRecordedData{Date: date, Buckets: recorded, Failed: failed})
	}
	return nil
}
