package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"subtrack/internal/cli"
	applog "subtrack/internal/log"
	"subtrack/internal/notify"
	"subtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting subtrack-scheduler",
		"scan_schedule", cfg.ScanSchedule,
		"reminder_schedule", cfg.ReminderSchedule)

	recordStore := cli.OpenStore(logger, cfg)
	defer recordStore.Close()

	scanWorker := worker.New(worker.Options{
		Store:        recordStore,
		Logger:       logger,
		ReportPath:   cfg.ReportPath,
		AlertsPath:   cfg.AlertsConfigPath,
		SentPath:     cfg.SentAlertsPath,
		IMAPAddr:     cfg.IMAPHost,
		LookbackDays: cfg.LookbackDays,
	})

	runScheduledScan := func() {
		alertCfg := notify.LoadAlertConfig(cfg.AlertsConfigPath)
		if !alertCfg.MailConfigured() {
			logger.Warn("Scheduled scan skipped - no saved mailbox credentials")
			return
		}
		logger.Info("Scheduled scan starting", applog.FieldOperation, applog.OpScan)
		if err := scanWorker.RunScan(context.Background(), alertCfg.EmailAddr, alertCfg.AppPassword); err != nil {
			logger.Error("Scheduled scan failed", applog.FieldError, err.Error())
		}
	}

	runReminders := func() {
		count, err := scanWorker.RunReminders(context.Background())
		if err != nil {
			logger.Error("Reminder run failed", applog.FieldError, err.Error())
			return
		}
		if count > 0 {
			logger.Info("Renewal reminders sent", applog.FieldCount, count)
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ScanSchedule, runScheduledScan); err != nil {
		logger.Error("Invalid scan schedule", applog.FieldError, err.Error(), "schedule", cfg.ScanSchedule)
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.ReminderSchedule, runReminders); err != nil {
		logger.Error("Invalid reminder schedule", applog.FieldError, err.Error(), "schedule", cfg.ReminderSchedule)
		os.Exit(1)
	}

	// Catch reminders that came due while the scheduler was down
	runReminders()

	c.Start()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx := c.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(10 * time.Second):
			logger.Warn("Cron jobs did not finish in time")
		}
	})

	cli.WaitForShutdown(ctx, done)
	logger.Info("Scheduler stopped gracefully")
}
