package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/cli"
	"subtrack/internal/export"
	gsheet "subtrack/internal/export/google"
	apphttp "subtrack/internal/http"
	applog "subtrack/internal/log"
	"subtrack/internal/session"
	"subtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	recordStore := cli.OpenStore(logger, cfg)
	defer recordStore.Close()

	sessions := session.NewManager(cfg.AccessPassword)

	// Optional Google Sheets export
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
	}

	scanWorker := worker.New(worker.Options{
		Store:        recordStore,
		Sessions:     sessions,
		Logger:       logger,
		ReportPath:   cfg.ReportPath,
		AlertsPath:   cfg.AlertsConfigPath,
		SentPath:     cfg.SentAlertsPath,
		IMAPAddr:     cfg.IMAPHost,
		LookbackDays: cfg.LookbackDays,
		Exporter:     exporter,
	})

	// Scans run in-process unless a broker is configured, in which case
	// /api/connect only enqueues and subtrack-worker does the scanning.
	startScan := apphttp.ScanStarter(scanWorker.StartScan)
	var amqpClient *amqp.Client
	if os.Getenv("SCAN_VIA_AMQP") == "true" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		amqpClient = client
		startScan = apphttp.QueueScanStarter(sessions, func(ctx context.Context) error {
			return client.PublishScanRequest(ctx, amqp.NewScanRequestMessage("web"))
		})
		logger.Info("Scan requests will be published to AMQP", "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Store:          recordStore,
		Sessions:       sessions,
		StartScan:      startScan,
		ReportPath:     cfg.ReportPath,
		AlertsPath:     cfg.AlertsConfigPath,
		ScanSchedule:   cfg.ScanSchedule,
		RemindSchedule: cfg.ReminderSchedule,
		Logger:         logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		if amqpClient != nil {
			amqpClient.Close()
		}
	})

	logger.Info("Starting subtrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
