package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const report_perf_stats_cpu = "perf_stats.cpu"

type perfGauges struct {
	cpu        metric.Float64Gauge
	heapMb     metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newPerfGauges() perfGauges {
	meter := otel.Meter("catalogmatch.perf_stats")
	// instrument creation only fails on invalid names
	cpuGauge, _ := meter.Float64Gauge("process.cpu.percent")
	heapGauge, _ := meter.Int64Gauge("process.heap.mb")
	goroutineGauge, _ := meter.Int64Gauge("process.goroutines")
	return perfGauges{cpu: cpuGauge, heapMb: heapGauge, goroutines: goroutineGauge}
}

func (g perfGauges) sample(ctx context.Context, tel API) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	g.heapMb.Record(ctx, int64(mem.HeapAlloc/1_000_000))
	g.goroutines.Record(ctx, int64(runtime.NumGoroutine()))

	// a zero interval compares against the previous call instead of blocking
	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		tel.ReportWarning(report_perf_stats_cpu, err)
		return
	}
	if len(usage) > 0 {
		g.cpu.Record(ctx, usage[0])
	}
}

// InstrumentPerfStats samples process cpu, heap and goroutine gauges every
// interval in the background until ctx is done.
func InstrumentPerfStats(ctx context.Context, tel API, interval time.Duration) {
	gauges := newPerfGauges()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gauges.sample(ctx, tel)
			case <-ctx.Done():
				return
			}
		}
	}()
}
