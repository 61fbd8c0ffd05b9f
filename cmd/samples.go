package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List stored face samples per identity",
	RunE:  runSamples,
}

func init() {
	rootCmd.AddCommand(samplesCmd)

	samplesCmd.Flags().BoolP("verbose", "v", false, "Print every sample path")
}

func runSamples(cmd *cobra.Command, args []string) error {
	verbose := mustGetBool(cmd, "verbose")
	cfg := config.Load()
	p := newPipeline(cfg)

	groups, err := p.samples.Groups()
	if err != nil {
		return fmt.Errorf("listing samples: %w", err)
	}
	if len(groups) == 0 {
		fmt.Printf("No samples found in %s\n", p.samples.Root())
		return nil
	}

	total := 0
	for _, g := range groups {
		fmt.Printf("%-60s %d\n", g.Identity.Key(), len(g.Paths))
		total += len(g.Paths)
		if verbose {
			for _, path := range g.Paths {
				fmt.Printf("    %s\n", path)
			}
		}
	}
	fmt.Printf("\n%d identities, %d samples\n", len(groups), total)
	fmt.Printf("Model trained: %v\n", p.models.Exists())
	return nil
}
