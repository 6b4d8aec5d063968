package metrics

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var (
	processMemoryMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zpico_process_memory_mb",
		Help: "Resident memory used by this process, in MB.",
	})
	systemMemoryMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zpico_system_memory_used_mb",
		Help: "Used system memory, in MB (fallback when process stats are unavailable).",
	})
)

func init() {
	prometheus.MustRegister(processMemoryMB, systemMemoryMB)
}

// StartSystemSampler samples process/system memory every interval and
// exposes it as Prometheus gauges: a ticker reading
// process.NewProcess(os.Getpid()).MemoryInfo(), falling back to
// mem.VirtualMemory() when per-process stats are unavailable. Runs
// until ctx is done.
func StartSystemSampler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sampleOnce(proc)
			}
		}
	}()
}

func sampleOnce(proc *process.Process) {
	if proc != nil {
		if info, err := proc.MemoryInfo(); err == nil {
			processMemoryMB.Set(float64(info.RSS) / 1024 / 1024)
			return
		}
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		systemMemoryMB.Set(float64(vmem.Used) / 1024 / 1024)
	}
}
