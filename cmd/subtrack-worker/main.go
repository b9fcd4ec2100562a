package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/cli"
	"subtrack/internal/export"
	gsheet "subtrack/internal/export/google"
	applog "subtrack/internal/log"
	"subtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting subtrack-worker")

	recordStore := cli.OpenStore(logger, cfg)
	defer recordStore.Close()

	var exporter export.ReportWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err.Error())
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	scanWorker := worker.New(worker.Options{
		Store:        recordStore,
		Logger:       logger,
		ReportPath:   cfg.ReportPath,
		AlertsPath:   cfg.AlertsConfigPath,
		SentPath:     cfg.SentAlertsPath,
		IMAPAddr:     cfg.IMAPHost,
		LookbackDays: cfg.LookbackDays,
		Exporter:     exporter,
	})

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		amqpClient.Close()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeScanRequests(gctx, func(msg *amqp.ScanRequestMessage) error {
			return scanWorker.HandleScanRequest(gctx, msg)
		})
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Scan request consumption failed", applog.FieldError, err.Error())
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
