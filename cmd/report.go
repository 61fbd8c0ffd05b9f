package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mariadb"
	"github.com/kozaktomas/face-attend/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the attendance report of a batch and department",
	Long: `Build per-student attendance figures for one batch and department.
Students come from the roster database (ROSTER_DATABASE_URL); attendance
comes from the ledger. Working days are the distinct days with any record
for the batch and department.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int64("batch-id", 0, "Batch ID (required)")
	reportCmd.Flags().Int64("department-id", 0, "Department ID (required)")
	reportCmd.Flags().String("format", "table", "Output format: table, csv or json")
	reportCmd.Flags().String("out", "", "Write to file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	batchID := mustGetInt64(cmd, "batch-id")
	deptID := mustGetInt64(cmd, "department-id")
	format := mustGetString(cmd, "format")
	out := mustGetString(cmd, "out")

	if batchID <= 0 || deptID <= 0 {
		return errors.New("--batch-id and --department-id are required")
	}

	cfg := config.Load()
	if cfg.Roster.DatabaseURL == "" {
		return errors.New("ROSTER_DATABASE_URL environment variable is required")
	}
	pool, err := mariadb.Initialize(cfg.Roster.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize roster database: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	roster, err := database.GetRosterReader(ctx)
	if err != nil {
		return err
	}
	records, err := newPipeline(cfg).ledger.ReadAll()
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}
	rep, err := report.ForRoster(ctx, roster, records, batchID, deptID)
	if err != nil {
		return err
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		return report.WriteCSV(w, rep)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "table":
		fmt.Fprintf(w, "Batch: %s  Department: %s  Working days: %d\n\n", rep.Batch, rep.Department, rep.TotalWorkingDays)
		fmt.Fprintf(w, "%-8s %-30s %8s %8s %8s %8s\n", "ID", "Student", "Present", "%", "Absent", "%")
		for _, row := range rep.Rows {
			fmt.Fprintf(w, "%-8d %-30s %8d %8.2f %8d %8.2f\n",
				row.StudentID, row.Name, row.AttendanceCount, row.AttendancePercentage,
				row.AbsentCount, row.AbsentPercentage)
		}
		fmt.Fprintf(w, "\nOverall attendance: %.2f%%\n", rep.OverallPercentage)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
