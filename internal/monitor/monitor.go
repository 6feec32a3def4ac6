// Package monitor samples process and system resource usage on an interval,
// publishes it to the metrics gauges, and answers health and status queries
// for the serve mode.
package monitor

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/catalystcommunity/app-utils-go/logging"
	"github.com/nodeloop/kuberun/internal/metrics"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot holds one sample of resource usage and run accounting
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// CPU metrics
	CPUPercent float64 `json:"cpu_percent"`
	CPUCores   int     `json:"cpu_cores"`
	GoRoutines int     `json:"go_routines"`

	// Memory metrics
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	HeapAllocMB   uint64  `json:"heap_alloc_mb"`
	HeapSysMB     uint64  `json:"heap_sys_mb"`

	// Run accounting
	ActiveRuns    int   `json:"active_runs"`
	RunsCompleted int64 `json:"runs_completed"`
	RunsFailed    int64 `json:"runs_failed"`

	Uptime time.Duration `json:"uptime"`
}

// Monitor samples resource usage on an interval
type Monitor struct {
	startTime time.Time
	interval  time.Duration

	snapshot      Snapshot
	mu            sync.RWMutex
	runsCompleted int64
	runsFailed    int64

	// Thresholds for warnings
	cpuThreshold    float64
	memoryThreshold float64

	process *process.Process
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Monitor sampling at the given interval
func New(interval time.Duration) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logging.Log.WithError(err).Warn("Failed to get process handle for monitoring")
		proc = nil
	}

	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Monitor{
		startTime:       time.Now(),
		interval:        interval,
		cpuThreshold:    80.0,
		memoryThreshold: 90.0,
		process:         proc,
		stopCh:          make(chan struct{}),
	}
}

// Start begins sampling in the background
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.monitorLoop(ctx)
}

// Stop stops the monitor and waits for the sampling loop to exit
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) monitorLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Initial collection
	m.collect()

	for {
		select {
		case <-ctx.Done():
			logging.Log.Info("Resource monitor stopping due to context cancellation")
			return
		case <-m.stopCh:
			logging.Log.Info("Resource monitor stopping")
			return
		case <-ticker.C:
			m.collect()
			m.checkThresholds()
		}
	}
}

// collect gathers one sample and publishes it to the metrics gauges
func (m *Monitor) collect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := Snapshot{
		Timestamp:     time.Now(),
		Uptime:        time.Since(m.startTime),
		RunsCompleted: m.runsCompleted,
		RunsFailed:    m.runsFailed,
		ActiveRuns:    m.snapshot.ActiveRuns,
		CPUCores:      runtime.NumCPU(),
		GoRoutines:    runtime.NumGoroutine(),
	}

	// Prefer process-level CPU, fall back to system-wide
	if m.process != nil {
		if cpuPercent, err := m.process.CPUPercent(); err == nil {
			snapshot.CPUPercent = cpuPercent
		}
	} else if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		snapshot.CPUPercent = cpuPercent[0]
	}

	if vmStat, err := mem.VirtualMemory(); err == nil {
		snapshot.MemoryTotalMB = vmStat.Total / 1024 / 1024
		snapshot.MemoryPercent = vmStat.UsedPercent
	}

	var memoryBytes uint64
	if m.process != nil {
		if memInfo, err := m.process.MemoryInfo(); err == nil {
			memoryBytes = memInfo.RSS
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	snapshot.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	snapshot.HeapSysMB = memStats.HeapSys / 1024 / 1024
	if memoryBytes == 0 {
		memoryBytes = memStats.Sys
	}
	snapshot.MemoryUsedMB = memoryBytes / 1024 / 1024

	m.snapshot = snapshot

	metrics.UpdateProcessResourceUsage(snapshot.CPUPercent, float64(memoryBytes), snapshot.GoRoutines)
	logging.Log.WithField("metrics", snapshot).Debug("Resource metrics collected")
}

func (m *Monitor) checkThresholds() {
	m.mu.RLock()
	snapshot := m.snapshot
	m.mu.RUnlock()

	if snapshot.CPUPercent > m.cpuThreshold {
		logging.Log.WithField("cpu_percent", snapshot.CPUPercent).
			WithField("threshold", m.cpuThreshold).
			Warn("CPU usage exceeds threshold")
	}

	if snapshot.MemoryPercent > m.memoryThreshold {
		logging.Log.WithField("memory_percent", snapshot.MemoryPercent).
			WithField("threshold", m.memoryThreshold).
			Warn("Memory usage exceeds threshold")
	}
}

// Current returns the latest sample
func (m *Monitor) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// RecordRunStart records that a pipeline run has started
func (m *Monitor) RecordRunStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.ActiveRuns++
}

// RecordRunEnd records that a pipeline run has finished
func (m *Monitor) RecordRunEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot.ActiveRuns--
	if m.snapshot.ActiveRuns < 0 {
		m.snapshot.ActiveRuns = 0
	}
	if success {
		m.runsCompleted++
	} else {
		m.runsFailed++
	}
}

// SetThresholds sets the warning thresholds
func (m *Monitor) SetThresholds(cpu, memory float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cpuThreshold = cpu
	m.memoryThreshold = memory
}

// IsHealthy reports whether the process is operating within its thresholds
func (m *Monitor) IsHealthy() bool {
	snapshot := m.Current()

	if snapshot.CPUPercent > m.cpuThreshold {
		return false
	}
	if snapshot.MemoryPercent > m.memoryThreshold {
		return false
	}
	if snapshot.GoRoutines > 1000 {
		logging.Log.WithField("go_routines", snapshot.GoRoutines).
			Warn("Excessive number of goroutines detected")
		return false
	}

	return true
}
