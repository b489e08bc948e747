package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/propval/internal/pipeline"
)

var (
	sourcePath string
	corpusPath string
	maxRows    int
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Build the training corpus from the raw price-paid file",
	Long: `Process streams the raw source file with a bounded row ceiling,
runs the cleaning cascade (required fields, price interval,
de-duplication, date-window fallback), synthesizes the fixed feature
vectors and writes the corpus file consumed by 'propval train'.

Example:
  propval process
  propval process --source data/pp-2024.csv --max-rows 500000`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&sourcePath, "source", "", "raw source CSV (default from config)")
	processCmd.Flags().StringVar(&corpusPath, "corpus", "", "corpus output path (default from config)")
	processCmd.Flags().IntVar(&maxRows, "max-rows", 0, "row ceiling override (default from config)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sourcePath != "" {
		cfg.Data.Source = sourcePath
	}
	if corpusPath != "" {
		cfg.Corpus.Path = corpusPath
	}
	if maxRows > 0 {
		cfg.Data.MaxRows = maxRows
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Source: %s\n", cfg.Data.Source)
		fmt.Fprintf(os.Stderr, "Row ceiling: %d\n\n", cfg.Data.MaxRows)
	}

	p := pipeline.NewPipeline(cfg)
	result, err := p.Process()
	if err != nil {
		return err
	}

	fmt.Printf("✓ Loaded %d rows (%d bad rows skipped)\n", result.Load.Rows, result.Load.BadRows)
	fmt.Printf("✓ Cleaning kept %d of %d rows\n", result.Clean.Kept, result.Clean.Input)
	if verbose {
		fmt.Printf("    missing fields: %d\n", result.Clean.MissingField)
		fmt.Printf("    price range:    %d\n", result.Clean.PriceRange)
		fmt.Printf("    duplicates:     %d\n", result.Clean.Duplicates)
		fmt.Printf("    date filtered:  %d (window: %s)\n", result.Clean.DateFiltered, windowLabel(result.Clean.WindowYears))
	}
	fmt.Printf("✓ Wrote %d samples to %s\n", result.Samples, cfg.Corpus.Path)
	return nil
}

func windowLabel(years int) string {
	if years <= 0 {
		return "none"
	}
	return fmt.Sprintf("%dy", years)
}
