package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is the payload of the stats endpoint.
type SystemStats struct {
	DatabaseStatus    string  `json:"database_status"`
	ActiveConnections int     `json:"active_connections"`
	ResponseTimeMs    int64   `json:"response_time_ms"`
	DBSize            string  `json:"db_size"`
	DBUptime          string  `json:"db_uptime"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	MemoryUsed        string  `json:"memory_used"`
	MemoryTotal       string  `json:"memory_total"`
	DiskPercent       float64 `json:"disk_percent"`
	DiskUsed          string  `json:"disk_used"`
	DiskTotal         string  `json:"disk_total"`
}

// StatsCollector samples database and host health.
type StatsCollector struct {
	db *pgxpool.Pool
}

func NewStatsCollector(db *pgxpool.Pool) *StatsCollector {
	return &StatsCollector{db: db}
}

// HandleStats serves a one-shot snapshot as JSON.
func (c *StatsCollector) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := c.Collect(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// Collect samples current database and host metrics.
func (c *StatsCollector) Collect(ctx context.Context) SystemStats {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := c.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	dbStatus := "healthy"
	if err != nil {
		dbStatus = "unhealthy"
	}

	var activeConns int
	c.db.QueryRow(ctx, "SELECT count(*) FROM pg_stat_activity").Scan(&activeConns)

	var dbSizeBytes int64
	c.db.QueryRow(ctx, "SELECT pg_database_size(current_database())").Scan(&dbSizeBytes)

	var uptimeSec int
	c.db.QueryRow(ctx, "SELECT EXTRACT(EPOCH FROM (NOW() - pg_postmaster_start_time()))::int").Scan(&uptimeSec)

	cpuPercents, _ := cpu.Percent(0, false)
	cpuPercent := 0.0
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	stats := SystemStats{
		DatabaseStatus:    dbStatus,
		ActiveConnections: activeConns,
		ResponseTimeMs:    responseTime,
		DBSize:            formatBytes(uint64(dbSizeBytes)),
		DBUptime:          formatUptime(uptimeSec),
		CPUPercent:        cpuPercent,
	}
	if memStats != nil {
		stats.MemoryPercent = memStats.UsedPercent
		stats.MemoryUsed = formatBytes(memStats.Used)
		stats.MemoryTotal = formatBytes(memStats.Total)
	}
	if diskStats != nil {
		stats.DiskPercent = diskStats.UsedPercent
		stats.DiskUsed = formatBytes(diskStats.Used)
		stats.DiskTotal = formatBytes(diskStats.Total)
	}
	return stats
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

func formatUptime(seconds int) string {
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
