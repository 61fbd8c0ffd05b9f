package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/constants"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect the attendance ledger",
}

var attendanceTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's attendance records",
	RunE:  runAttendanceToday,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceTodayCmd)

	attendanceTodayCmd.Flags().String("date", "", "Day to list (YYYY-MM-DD), defaults to today")
}

func runAttendanceToday(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	p := newPipeline(cfg)

	day := time.Now()
	if raw := mustGetString(cmd, "date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", raw, err)
		}
		day = parsed
	}

	records, err := p.ledger.ReadAll()
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	y, m, d := day.Date()
	count := 0
	for _, rec := range records {
		ry, rm, rd := rec.Time.Date()
		if ry != y || rm != m || rd != d {
			continue
		}
		count++
		fmt.Printf("%s  %-24s %-20s %s\n",
			rec.Time.Format(constants.LedgerTimeLayout),
			attendance.DisplayName(rec.Identity.StudentName()),
			attendance.DisplayName(rec.Identity.DepartmentName()),
			attendance.DisplayName(rec.Identity.BatchName()))
	}
	fmt.Printf("\n%d students marked on %s\n", count, day.Format(time.DateOnly))
	return nil
}
