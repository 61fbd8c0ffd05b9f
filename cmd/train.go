package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/state"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the face recognizer on all stored samples",
	Long: `Train the LBPH face recognizer on every sample under SAMPLES_DIR and
replace the stored model. Unlike the web trigger, no capture session needs
to have completed first.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	p := newPipeline(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Extracting histograms"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("faces"),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		_ = bar.Set(done)
	}

	started := time.Now()
	summary, err := p.trainer.Run(ctx, progress)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	identities, samples := 0, 0
	if summary != nil {
		identities, samples = summary.Identities, summary.Samples
	}
	recordCLITrainingRun(cfg, started, identities, samples, err)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("Model trained successfully\n")
	fmt.Printf("  Identities: %d\n", summary.Identities)
	fmt.Printf("  Samples:    %d\n", summary.Samples)
	if summary.Skipped > 0 {
		fmt.Printf("  Skipped:    %d unreadable images\n", summary.Skipped)
	}
	fmt.Printf("  Duration:   %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Printf("  Model:      %s\n", cfg.Storage.ModelPath)
	return nil
}

// recordCLITrainingRun stores the run in the training history when DATABASE_URL is set.
func recordCLITrainingRun(cfg *config.Config, started time.Time, identities, samples int, runErr error) {
	if cfg.Database.URL == "" {
		return
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		fmt.Printf("Warning: training history not recorded: %v\n", err)
		return
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	runs, err := database.GetTrainingRunWriter(ctx)
	if err != nil {
		return
	}

	completed := time.Now()
	run := database.StoredTrainingRun{
		JobID:       uuid.NewString(),
		Status:      string(state.JobStatusCompleted),
		StartedAt:   started,
		CompletedAt: &completed,
		Identities:  identities,
		Samples:     samples,
	}
	if runErr != nil {
		run.Status = string(state.JobStatusFailed)
		run.Error = runErr.Error()
	}
	if err := runs.SaveTrainingRun(ctx, run); err != nil {
		fmt.Printf("Warning: training history not recorded: %v\n", err)
	}
}
