package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/propval/internal/model"
	"github.com/ppiankov/propval/internal/pipeline"
)

var trainOnly string

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train every configured model archetype against the corpus",
	Long: `Train reads the persisted corpus, splits it once with the
configured seed, and fits each configured artifact slot against the
identical train/eval subsets. Each run early-stops on eval MAE and
persists the best-seen iteration as an atomic model+scaler bundle.

Example:
  propval train
  propval train --only boost`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainOnly, "only", "", "train a single slot by name")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if trainOnly != "" {
		var kept []model.Slot
		for _, slot := range cfg.Artifacts.Slots {
			if slot.Name == trainOnly {
				kept = append(kept, slot)
			}
		}
		if len(kept) == 0 {
			return fmt.Errorf("no configured slot named %q", trainOnly)
		}
		cfg.Artifacts.Slots = kept
	}

	p := pipeline.NewPipeline(cfg)
	results, err := p.TrainRun()
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Printf("✓ %s (%s)\n", res.Slot.Name, res.Slot.Archetype)
		fmt.Printf("    train MAE:      £%.0f\n", res.Metrics.TrainMAE)
		fmt.Printf("    eval MAE:       £%.0f\n", res.Metrics.EvalMAE)
		fmt.Printf("    eval R²:        %.4f\n", res.Metrics.R2)
		fmt.Printf("    best iteration: %d of %d\n", res.Metrics.BestIteration, res.Metrics.Iterations)
	}
	return nil
}
