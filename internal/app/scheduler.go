package app

import (
	"context"
	"time"

	"placeprep_backend/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sweepTimeout bounds one scheduled sweep so a stuck store cannot pile up runs.
const sweepTimeout = 2 * time.Minute

// cronLogger adapts zap to the cron logging interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// startScheduler runs the contest housekeeping sweep on the configured schedule. Overlapping
// runs are skipped.
func (a *App) startScheduler(ctx context.Context) (*cron.Cron, error) {
	clog := cronLogger{log: logger.Log.Sugar()}
	c := cron.New(cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)), cron.WithLogger(clog))

	schedule := a.Config.Contest.SweepSchedule
	if schedule == "" {
		schedule = "@every 5m"
	}
	_, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		defer cancel()
		if _, err := a.Sweep(runCtx); err != nil {
			logger.Log.Error("Contest sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Log.Info("Contest scheduler started", zap.String("schedule", schedule))
	return c, nil
}
