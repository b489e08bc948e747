package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/propval/internal/ingest"
)

var (
	fetchYear int
	fetchDest string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the published price-paid dataset",
	Long: `Fetch downloads one year of the published price-paid record.
The file is written atomically: a partial download never replaces an
existing dataset.

Example:
  propval fetch --year 2024
  propval fetch --year 2023 --dest data/pp-2023.csv`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().IntVar(&fetchYear, "year", 2024, "dataset year to download")
	fetchCmd.Flags().StringVar(&fetchDest, "dest", "", "destination path (default from config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dest := fetchDest
	if dest == "" {
		dest = fmt.Sprintf("data/pp-%d.csv", fetchYear)
	}

	var progress ingest.Progress
	if verbose {
		progress = func(bytes int) {
			fmt.Fprintf(os.Stderr, "  %.1f MB\n", float64(bytes)/1e6)
		}
	}

	fmt.Printf("Downloading %d price-paid data...\n", fetchYear)
	fmt.Println("(This may take several minutes - the file is hundreds of megabytes)")

	d := ingest.NewDownloader(cfg.Data, progress)
	if err := d.Download(context.Background(), fetchYear, dest); err != nil {
		return err
	}

	fmt.Printf("✓ Downloaded %d data: %s\n", fetchYear, dest)
	return nil
}
