package chrono

import (
	"catalogmatch/internal/components/telemetry"
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

const report_cron = "cron"

// CronAPI schedules callbacks on a cron spec (ex. "@every 10m", "0 * * * *").
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron runs jobs with robfig/cron in the local timezone. A panicking
// job is reported as broken and does not stop the scheduler.
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron creates a scheduler that is already running.
func NewStandardCron(tel telemetry.API) StandardCron {
	logger := cronLogger{tel: tel}
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	scheduler.Start()
	return StandardCron{cron: scheduler}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

// Stop stops scheduling new jobs, the returned context is done once running jobs complete.
func (s StandardCron) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts telemetry.API to cron.Logger.
type cronLogger struct {
	tel telemetry.API
}

func (cronLogger) pairs(keysAndValues []any) []any {
	params := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug("cron: "+msg, l.pairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	params := append([]any{fmt.Errorf("%s: %w", msg, err)}, l.pairs(keysAndValues)...)
	l.tel.ReportBroken(report_cron, params...)
}
