package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/paper-trader/internal/modules/market"
)

// SystemHandlers serves process and host health information
type SystemHandlers struct {
	db        *sql.DB
	hours     *market.MarketHours
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(db *sql.DB, hours *market.MarketHours, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		hours:     hours,
		startedAt: time.Now(),
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
}

// SystemStatusResponse reports process uptime, host load and market state
type SystemStatusResponse struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryPercent  float64 `json:"memory_percent"`
	Database       string  `json:"database"`
	MarketOpen     bool    `json:"market_open"`
	NextMarketOpen string  `json:"next_market_open,omitempty"`
}

// HandleSystemStatus returns system health
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	dbStatus := "ok"
	if err := h.db.PingContext(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Database ping failed")
		dbStatus = "error"
	}

	response := SystemStatusResponse{
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Database:      dbStatus,
		MarketOpen:    h.hours.IsOpen(),
	}
	if next := h.hours.NextOpen(); !next.IsZero() {
		response.NextMarketOpen = next.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// systemStats samples CPU over a short interval so the endpoint stays
// responsive for pollers
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return firstOrZero(cpuPercent), 0
	}

	return firstOrZero(cpuPercent), memStat.UsedPercent
}

func firstOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[0]
}
