package main

import (
	"errors"
	"fmt"

	"github.com/BadgerOps/uplink/internal/audit"
	"github.com/BadgerOps/uplink/internal/engine"
	"github.com/BadgerOps/uplink/internal/status"
	"github.com/BadgerOps/uplink/internal/store"
	"github.com/BadgerOps/uplink/internal/target"
	"github.com/spf13/cobra"
)

var (
	uploadAuditLog  string
	uploadStatusDir string
	uploadHistoryDB string
	uploadNoHistory bool
	uploadDryRun    bool
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload SOURCE TARGET",
		Short: "Upload a file or directory tree to a remote destination",
		Long: `Upload SOURCE to TARGET. A SOURCE directory is walked recursively and
every regular file in it is uploaded, flattened to its basename at the
destination. Files are processed one at a time; a per-file failure is
recorded and the run continues with the next file.

Each file gets a status document <status-dir>/<name>.status.json tracking
starting/transferring/terminal phases, and exactly one line in the audit
log per attempt, success or not.

Exit codes: 0 if every file transferred (or dry-run), 1 if any file
failed, 2 for a malformed target or configuration error.`,
		Example: `  uplink upload ./report.pdf ssh:deploy@backup01:/srv/incoming/
  uplink upload ./dist/ https://releases.example.com/up/
  uplink upload ./dist/ s3:artifacts/nightly/ --dry-run
  uplink upload big.iso s3:backups/images/big.iso --status-dir /tmp/status`,
		Args: cobra.ExactArgs(2),
		RunE: uploadRun,
	}

	cmd.Flags().StringVar(&uploadAuditLog, "audit-log", "", "audit log path (default from config)")
	cmd.Flags().StringVar(&uploadStatusDir, "status-dir", "", "status document directory (default from config)")
	cmd.Flags().StringVar(&uploadHistoryDB, "history-db", "", "transfer history database path (default inside status dir)")
	cmd.Flags().BoolVar(&uploadNoHistory, "no-history", false, "skip recording transfers in the history database")
	cmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "record statuses and audit entries without any network action")

	return cmd
}

func uploadRun(cmd *cobra.Command, args []string) error {
	source, targetSpec := args[0], args[1]

	if globalCfg == nil {
		return exitWith(2, fmt.Errorf("config not loaded"))
	}
	if uploadAuditLog != "" {
		globalCfg.AuditLog = uploadAuditLog
	}
	if uploadStatusDir != "" {
		globalCfg.StatusDir = uploadStatusDir
	}
	if uploadHistoryDB != "" {
		globalCfg.HistoryDB = uploadHistoryDB
	}

	// Configuration errors fail fast, before any status or audit side
	// effects.
	tg, err := target.Parse(targetSpec)
	if err != nil {
		return exitWith(2, fmt.Errorf("invalid target: %w", err))
	}

	files, err := engine.EnumerateSource(source)
	if err != nil {
		return exitWith(2, fmt.Errorf("invalid source: %w", err))
	}
	if len(files) == 0 {
		logger.Warn("source contains no regular files", "source", source)
		return nil
	}

	statusStore, err := status.NewStore(globalCfg.StatusDir, logger)
	if err != nil {
		return exitWith(2, err)
	}
	auditLog, err := audit.NewLog(globalCfg.AuditLog, logger)
	if err != nil {
		return exitWith(2, err)
	}

	var history *store.Store
	if !uploadNoHistory {
		history, err = store.New(globalCfg.EffectiveHistoryDB(), logger)
		if err != nil {
			// History is a convenience index; the audit log is the record.
			logger.Warn("history database unavailable, continuing without it", "error", err)
			history = nil
		} else {
			defer history.Close()
		}
	}

	logger.Info("starting upload",
		"files", len(files),
		"target", tg.String(),
		"dry_run", uploadDryRun,
	)

	uploader := engine.NewUploader(globalCfg, statusStore, auditLog, history, logger, engine.Options{
		DryRun: uploadDryRun,
	})
	report := uploader.Run(cmd.Context(), files, tg)

	if report.AnyFailed() {
		return exitWith(1, errors.New(failureSummary(report)))
	}
	return nil
}

func failureSummary(r *engine.Report) string {
	return fmt.Sprintf("%d of %d files failed", r.Failed, r.Total)
}
