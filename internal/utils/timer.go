package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowOperation is the duration above which a timed operation is logged as a warning.
const SlowOperation = 10 * time.Second

// TimeOperation starts timing operation. The returned func logs and returns the
// elapsed time; it is meant to be deferred or called once the operation is done.
//
//	stop := utils.TimeOperation("snapshot", log)
//	defer stop()
func TimeOperation(operation string, log zerolog.Logger) func() time.Duration {
	start := time.Now()

	return func() time.Duration {
		duration := time.Since(start)

		event := log.Debug()
		if duration > SlowOperation {
			event = log.Warn()
		}
		event.
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		return duration
	}
}
