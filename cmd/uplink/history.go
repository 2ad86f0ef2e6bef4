package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/BadgerOps/uplink/internal/store"
	"github.com/spf13/cobra"
)

var (
	historyDB     string
	historyFile   string
	historyFailed bool
	historyLimit  int
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past transfers from the history database",
		Long: `List past transfer attempts recorded in the history database, most
recent first. The history database is a local queryable index; the JSON
Lines audit log remains the authoritative record.`,
		Example: `  uplink history
  uplink history --failed
  uplink history --file report.pdf --limit 10`,
		RunE: historyRun,
	}

	cmd.Flags().StringVar(&historyDB, "history-db", "", "transfer history database path (default inside status dir)")
	cmd.Flags().StringVar(&historyFile, "file", "", "show only transfers of this basename")
	cmd.Flags().BoolVar(&historyFailed, "failed", false, "show only failed transfers")
	cmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of transfers to show")

	return cmd
}

func historyRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return exitWith(2, fmt.Errorf("config not loaded"))
	}
	if historyDB != "" {
		globalCfg.HistoryDB = historyDB
	}

	dbPath := globalCfg.EffectiveHistoryDB()
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no history database at %s", dbPath)
	}

	st, err := store.New(dbPath, logger)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer st.Close()

	transfers, err := st.ListTransfers(store.ListOptions{
		File:       historyFile,
		FailedOnly: historyFailed,
		Limit:      historyLimit,
	})
	if err != nil {
		return err
	}

	if len(transfers) == 0 {
		fmt.Println("No transfers found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tFILE\tTARGET\tSIZE\tEXIT\tDURATION")
	for _, t := range transfers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.1fs\n",
			t.StartTime.Format("2006-01-02 15:04:05"),
			t.File,
			truncate(t.TargetSpec, 40),
			t.Size,
			t.ExitCode,
			t.DurationS,
		)
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
