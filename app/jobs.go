package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// StartJobs schedules the stock audit and the report warmup.
func (a *App) StartJobs() error {
	a.sched = cron.New(cron.WithParser(cronParser))

	if _, err := a.sched.AddFunc(a.Config.Jobs.AuditSchedule, a.SchedStockAuditTask); err != nil {
		return err
	}
	if _, err := a.sched.AddFunc(a.Config.Jobs.ReportSchedule, a.SchedReportWarmTask); err != nil {
		return err
	}
	a.sched.Start()
	return nil
}

// SchedStockAuditTask logs every item whose quantities are out of range. It should never find any.
func (a *App) SchedStockAuditTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	bad, err := a.Engine.AuditStock(ctx)
	if err != nil {
		zap.S().Errorf("stock audit failed: %v", err)
		return
	}
	for _, it := range bad {
		zap.L().Error("stock invariant violated",
			zap.String("item", it.ID),
			zap.Int("available", it.AvailableQuantity),
			zap.Int("total", it.TotalQuantity))
	}
}

func (a *App) SchedReportWarmTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.Reports.Warm(ctx); err != nil {
		zap.S().Warnf("report warmup failed: %v", err)
	}
}
