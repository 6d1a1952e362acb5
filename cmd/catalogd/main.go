package main

import (
	"catalogmatch/internal/components/chrono"
	"catalogmatch/internal/components/telemetry"
	"catalogmatch/internal/config"
	"catalogmatch/internal/httpapi"
	"catalogmatch/internal/restyutil"
	"catalogmatch/internal/serviceutil"
	"context"
	"flag"
	"os"
	"time"
)

const report_catalogd_sweep = "catalogd.sweep"

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", config.DefaultPath, "The configuration file to read.")
	dumpDir := flag.String("dump-http", "", "Write every storefront request/response to this directory.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(os.Stderr, *verbose)

	exporters, err := telemetry.SetupFromEnv(ctx, "catalogd")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer exporters.Shutdown(context.Background())

	tel := telemetry.NewOtelAPI(telemetry.SlogAPI{}, "catalogmatch.catalogd")
	telemetry.InstrumentPerfStats(ctx, tel, 15*time.Second)

	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	var dump restyutil.Output
	if *dumpDir != "" {
		out, err := restyutil.NewFilesystemOutput(*dumpDir, tel)
		if err != nil {
			serviceutil.Fatal("init http dump", err)
		}
		dump = out
	}

	client := cfg.NewClient(tel, dump)

	cron := chrono.NewStandardCron(tel)
	defer func() {
		<-cron.Stop().Done()
	}()
	if spec, ok := cfg.Cache.SweepSchedule(); ok {
		err = cron.Cron(spec, func() {
			removed := client.SweepCache()
			tel.ReportCount(report_catalogd_sweep, int64(removed))
		})
		if err != nil {
			serviceutil.Fatal("schedule cache sweep", err)
		}
	}

	err = serviceutil.ServeHttp(ctx, cfg.Port, httpapi.NewRouter(client, tel))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
