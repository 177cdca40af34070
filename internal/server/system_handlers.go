package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/riskbucket/internal/database"
	"github.com/aristath/riskbucket/internal/di"
	"github.com/aristath/riskbucket/internal/scheduler"
)

// DatabaseStatus is the health and size of one database
type DatabaseStatus struct {
	Healthy bool            `json:"healthy"`
	Error   string          `json:"error,omitempty"`
	Stats   *database.Stats `json:"stats,omitempty"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status        string                    `json:"status"`
	Uptime        string                    `json:"uptime"`
	CPUPercent    float64                   `json:"cpu_percent"`
	MemoryPercent float64                   `json:"memory_percent"`
	Goroutines    int                       `json:"goroutines"`
	ScheduledJobs int                       `json:"scheduled_jobs"`
	Databases     map[string]DatabaseStatus `json:"databases"`
	LastChecked   string                    `json:"last_checked"`
}

// SystemHandlers handles system monitoring and maintenance requests
type SystemHandlers struct {
	log       zerolog.Logger
	scheduler *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	databases []*database.DB
	started   time.Time
}

// NewSystemHandlers creates new system handlers. jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, sched *scheduler.Scheduler, jobs *di.JobInstances, databases ...*database.DB) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		scheduler: sched,
		jobs:      make(map[string]scheduler.Job),
		databases: databases,
		started:   time.Now(),
	}
	if jobs != nil {
		for _, job := range []scheduler.Job{jobs.Snapshot, jobs.WALCheckpoint, jobs.IntegrityCheck} {
			if job != nil {
				h.jobs[job.Name()] = job
			}
		}
	}
	return h
}

// HandleSystemStatus returns host load, database health and scheduler state
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Uptime:        time.Since(h.started).Round(time.Second).String(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make(map[string]DatabaseStatus, len(h.databases)),
		LastChecked:   time.Now().Format(time.RFC3339),
	}
	if h.scheduler != nil {
		response.ScheduledJobs = h.scheduler.Jobs()
	}

	for _, db := range h.databases {
		if db == nil {
			continue
		}
		response.Databases[db.Name()] = h.databaseStatus(r.Context(), db)
		if !response.Databases[db.Name()].Healthy {
			response.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

func (h *SystemHandlers) databaseStatus(ctx context.Context, db *database.DB) DatabaseStatus {
	if err := db.QuickCheck(ctx); err != nil {
		h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database is not reachable")
		return DatabaseStatus{Error: err.Error()}
	}
	stats, err := db.GetStats()
	if err != nil {
		return DatabaseStatus{Healthy: true, Error: err.Error()}
	}
	return DatabaseStatus{Healthy: true, Stats: stats}
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over 100ms.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok || h.scheduler == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job " + name}, h.log)
		return
	}

	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()}, h.log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "completed",
		"job":    name,
	}, h.log)
}
