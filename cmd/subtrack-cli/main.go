package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subtrack/internal/analysis"
	"subtrack/internal/cli"
	"subtrack/internal/config"
	applog "subtrack/internal/log"
	"subtrack/internal/notify"
	"subtrack/internal/store"
	"subtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	root := &cobra.Command{
		Use:   "subtrack",
		Short: "Subscription tracking from your own inbox",
	}
	root.AddCommand(scanCmd(logger), reportCmd(logger), remindCmd(logger))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newWorker(logger *applog.Logger, cfg *config.Config) (*worker.ScanWorker, store.RecordStore) {
	recordStore := cli.OpenStore(logger, cfg)
	return worker.New(worker.Options{
		Store:        recordStore,
		Logger:       logger,
		ReportPath:   cfg.ReportPath,
		AlertsPath:   cfg.AlertsConfigPath,
		SentPath:     cfg.SentAlertsPath,
		IMAPAddr:     cfg.IMAPHost,
		LookbackDays: cfg.LookbackDays,
	}), recordStore
}

func scanCmd(logger *applog.Logger) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the mailbox and rebuild the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cli.LoadAndValidateConfig(logger)

			if email == "" || password == "" {
				alertCfg := notify.LoadAlertConfig(cfg.AlertsConfigPath)
				email, password = alertCfg.EmailAddr, alertCfg.AppPassword
			}
			if email == "" || password == "" {
				return fmt.Errorf("no credentials: pass --email and --password or connect once via the web UI")
			}

			scanWorker, recordStore := newWorker(logger, cfg)
			defer recordStore.Close()

			if err := scanWorker.RunScan(cmd.Context(), email, password); err != nil {
				return err
			}

			report, err := store.LoadReport(cfg.ReportPath)
			if err != nil {
				return err
			}
			fmt.Printf("Scan complete: %d records, %d merchants\n", report.TotalRecords, report.MerchantCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "mailbox address")
	cmd.Flags().StringVar(&password, "password", "", "mailbox app password")
	return cmd
}

func reportCmd(logger *applog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Recompute the report from stored records and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cli.LoadAndValidateConfig(logger)

			recordStore := cli.OpenStore(logger, cfg)
			defer recordStore.Close()

			report, err := analysis.New(recordStore).Run(cmd.Context())
			if err != nil {
				return err
			}
			if report.TotalRecords == 0 {
				fmt.Println("No records yet. Run `subtrack scan` first.")
				return nil
			}
			if err := store.SaveReport(cfg.ReportPath, report); err != nil {
				return err
			}

			fmt.Printf("Generated:       %s\n", report.GeneratedAt.Format("2006-01-02 15:04"))
			fmt.Printf("Merchants:       %d\n", report.MerchantCount)
			fmt.Printf("Monthly (USD):   %.2f\n", report.TotalMonthlySpend)
			fmt.Printf("Yearly (USD):    %.2f\n", report.TotalYearlySpend)
			if report.PotentialMonthlySavings > 0 {
				fmt.Printf("Savings:         %.2f/mo\n", report.PotentialMonthlySavings)
			}
			fmt.Println()
			for _, m := range report.Merchants {
				flag := " "
				if m.IsForgotten {
					flag = "!"
				}
				fmt.Printf("%s %-30s %-12s %s %8.2f/mo\n",
					flag, m.Merchant, m.Frequency, m.Currency, m.MonthlyCost)
			}
			for _, ov := range report.Overlaps {
				fmt.Printf("~ overlap: %s and %s (%s)\n", ov.MerchantA, ov.MerchantB, ov.Category)
			}
			return nil
		},
	}
}

func remindCmd(logger *applog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send any due renewal reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cli.LoadAndValidateConfig(logger)

			scanWorker, recordStore := newWorker(logger, cfg)
			defer recordStore.Close()

			count, err := scanWorker.RunReminders(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Sent %d reminder(s)\n", count)
			return nil
		},
	}
}
