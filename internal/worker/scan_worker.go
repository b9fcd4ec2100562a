// Package worker runs the full scan pipeline: fetch mail, analyze the
// record store, persist the report, then push alerts and exports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/analysis"
	"subtrack/internal/core"
	"subtrack/internal/export"
	"subtrack/internal/ingest"
	"subtrack/internal/log"
	"subtrack/internal/notify"
	"subtrack/internal/session"
	"subtrack/internal/store"
)

// Dialer opens an authenticated mailbox. Swapped out in tests.
type Dialer func(addr, username, password string) (ingest.Mailbox, error)

// ScanWorker owns one scan at a time. Sessions is optional; without it
// progress is only logged.
type ScanWorker struct {
	store        store.RecordStore
	sessions     *session.Manager
	logger       *log.Logger
	reportPath   string
	alertsPath   string
	sentPath     string
	imapAddr     string
	lookbackDays int

	dial     Dialer
	exporter export.ReportWriter

	notifierFactory func(cfg *notify.AlertConfig) (notify.Sender, error)
	now             func() time.Time
}

// Options carries the ScanWorker dependencies. Exporter and Sessions
// may be nil.
type Options struct {
	Store        store.RecordStore
	Sessions     *session.Manager
	Logger       *log.Logger
	ReportPath   string
	AlertsPath   string
	SentPath     string
	IMAPAddr     string
	LookbackDays int
	Dial         Dialer
	Exporter     export.ReportWriter
	NotifierFunc func(cfg *notify.AlertConfig) (notify.Sender, error)
}

func New(opts Options) *ScanWorker {
	dial := opts.Dial
	if dial == nil {
		dial = func(addr, username, password string) (ingest.Mailbox, error) {
			return ingest.DialGmail(addr, username, password)
		}
	}
	notifierFunc := opts.NotifierFunc
	if notifierFunc == nil {
		notifierFunc = func(cfg *notify.AlertConfig) (notify.Sender, error) {
			return notify.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID, opts.Logger)
		}
	}
	return &ScanWorker{
		store:           opts.Store,
		sessions:        opts.Sessions,
		logger:          opts.Logger.WithComponent(log.ComponentWorker),
		reportPath:      opts.ReportPath,
		alertsPath:      opts.AlertsPath,
		sentPath:        opts.SentPath,
		imapAddr:        opts.IMAPAddr,
		lookbackDays:    opts.LookbackDays,
		dial:            dial,
		exporter:        opts.Exporter,
		notifierFactory: notifierFunc,
		now:             time.Now,
	}
}

// StartScan launches RunScan in the background. It is the ScanStarter
// the API server plugs in when no message broker is configured.
func (w *ScanWorker) StartScan(ctx context.Context, email, password string) error {
	go func() {
		err := w.RunScan(context.Background(), email, password)
		if w.sessions != nil {
			w.sessions.FinishScan(err)
		}
		if err != nil {
			w.logger.Error("scan failed",
				log.FieldOperation, log.OpScan,
				log.FieldError, err.Error())
		}
	}()
	return nil
}

// HandleScanRequest processes one queued scan request. Credentials come
// from the saved alert config; a request without saved credentials is
// dropped rather than requeued.
func (w *ScanWorker) HandleScanRequest(ctx context.Context, msg *amqp.ScanRequestMessage) error {
	w.logger.InfoContext(ctx, "processing scan request",
		log.FieldJobID, msg.JobID)

	cfg := notify.LoadAlertConfig(w.alertsPath)
	if !cfg.MailConfigured() {
		w.logger.WarnContext(ctx, "scan request without saved credentials",
			log.FieldJobID, msg.JobID)
		return nil
	}

	err := w.RunScan(ctx, cfg.EmailAddr, cfg.AppPassword)
	if w.sessions != nil {
		w.sessions.FinishScan(err)
	}
	return err
}

// RunScan is the pipeline: IMAP scan, analysis, report snapshot, then
// exports and alerts. Export and alert failures are logged, not fatal;
// the report on disk is already the source of truth by then.
func (w *ScanWorker) RunScan(ctx context.Context, email, password string) error {
	mbox, err := w.dial(w.imapAddr, email, password)
	if err != nil {
		w.notifyScanFailure(err)
		return fmt.Errorf("open mailbox: %w", err)
	}
	defer mbox.Logout()

	scanner := ingest.NewScanner(w.store, w.logger, w.lookbackDays)
	newRecords, err := scanner.Scan(ctx, mbox, w.progress())
	if err != nil {
		w.notifyScanFailure(err)
		return fmt.Errorf("scan mailbox: %w", err)
	}

	report, err := analysis.New(w.store).Run(ctx)
	if err != nil {
		return fmt.Errorf("analyze records: %w", err)
	}
	if err := store.SaveReport(w.reportPath, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	w.export(ctx, report)
	w.notifyScanDone(&report, len(newRecords))
	w.stampLastScan()

	w.logger.InfoContext(ctx, "scan pipeline complete",
		log.FieldOperation, log.OpScan,
		log.FieldCount, len(newRecords),
		"merchants", report.MerchantCount)
	return nil
}

func (w *ScanWorker) progress() ingest.Progress {
	if w.sessions == nil {
		return func(current, total int, rec *core.ChargeRecord) {}
	}
	return func(current, total int, rec *core.ChargeRecord) {
		line := fmt.Sprintf("Processing email %d of %d", current, total)
		if rec != nil {
			line = fmt.Sprintf("Found: %s", rec.Merchant)
		}
		w.sessions.UpdateProgress(current, total, line)
	}
}

func (w *ScanWorker) export(ctx context.Context, report core.Report) {
	if w.exporter == nil {
		return
	}
	ref, err := w.exporter.ExportReport(ctx, report)
	if err != nil {
		w.logger.WarnContext(ctx, "report export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err.Error())
		return
	}
	w.logger.InfoContext(ctx, "report exported",
		log.FieldOperation, log.OpExport,
		"ref", ref)
}

// notifyScanDone sends the digest and any due renewal reminders.
func (w *ScanWorker) notifyScanDone(report *core.Report, newRecords int) {
	cfg := notify.LoadAlertConfig(w.alertsPath)
	if !cfg.TelegramConfigured() {
		return
	}
	sender, err := w.notifierFactory(cfg)
	if err != nil {
		w.logger.Warn("notifier unavailable", log.FieldError, err.Error())
		return
	}

	if err := sender.Send(notify.DigestMessage(report, newRecords, cfg.BudgetUSD)); err != nil {
		w.logger.Warn("digest send failed", log.FieldError, err.Error())
	}

	reminders := notify.NewReminders(w.sentPath, w.logger)
	reminders.Now = w.now
	if _, err := reminders.Fire(report, sender); err != nil {
		w.logger.Warn("reminder send failed", log.FieldError, err.Error())
	}
}

func (w *ScanWorker) notifyScanFailure(scanErr error) {
	if errors.Is(scanErr, context.Canceled) {
		return
	}
	cfg := notify.LoadAlertConfig(w.alertsPath)
	if !cfg.TelegramConfigured() {
		return
	}
	sender, err := w.notifierFactory(cfg)
	if err != nil {
		return
	}
	if err := sender.Send(notify.ScanFailedMessage(scanErr)); err != nil {
		w.logger.Warn("failure alert send failed", log.FieldError, err.Error())
	}
}

func (w *ScanWorker) stampLastScan() {
	cfg := notify.LoadAlertConfig(w.alertsPath)
	cfg.LastScan = w.now().UTC().Format(time.RFC3339)
	if err := notify.SaveAlertConfig(w.alertsPath, cfg); err != nil {
		w.logger.Warn("last scan stamp failed", log.FieldError, err.Error())
	}
}

// RunReminders fires due renewal reminders from the current report
// snapshot, skipping silently when no report or notifier exists. The
// scheduler calls this daily.
func (w *ScanWorker) RunReminders(ctx context.Context) (int, error) {
	report, err := store.LoadReport(w.reportPath)
	if errors.Is(err, store.ErrNoReport) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load report: %w", err)
	}

	cfg := notify.LoadAlertConfig(w.alertsPath)
	if !cfg.TelegramConfigured() {
		return 0, nil
	}
	sender, err := w.notifierFactory(cfg)
	if err != nil {
		return 0, fmt.Errorf("build notifier: %w", err)
	}

	reminders := notify.NewReminders(w.sentPath, w.logger)
	reminders.Now = w.now
	return reminders.Fire(&report, sender)
}
