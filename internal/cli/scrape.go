package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/propval/internal/scrape"
)

var (
	scrapePages  int
	scrapeOutput string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect supplemental sold-price records from listing pages",
	Long: `Scrape walks sold-price listing pages, fetches every property's
detail page and writes one CSV row per recorded transaction. Fetches
are rate-limited and robots.txt is honored per host.

The output is a supplemental training source with real per-property
room counts and coordinates, unlike the price-paid record which only
carries a property-type code.

Example:
  propval scrape
  propval scrape --pages 10 --output data/scraped.csv`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVar(&scrapePages, "pages", 0, "listing pages to walk (default from config)")
	scrapeCmd.Flags().StringVar(&scrapeOutput, "output", "", "output CSV path (default from config)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scrapePages > 0 {
		cfg.Scrape.Pages = scrapePages
	}
	if scrapeOutput != "" {
		cfg.Scrape.Output = scrapeOutput
	}

	ctx := context.Background()
	s := scrape.NewScraper(cfg.Scrape)

	fmt.Printf("Collecting property links from %d listing pages...\n", cfg.Scrape.Pages)
	ids, err := s.CollectIDs(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Found %d unique properties\n", len(ids))
	if len(ids) == 0 {
		return fmt.Errorf("no properties found")
	}

	var properties []*scrape.Property
	failed := 0
	for i, id := range ids {
		prop, err := s.ScrapeDetail(ctx, id)
		if err != nil {
			failed++
			if verbose {
				fmt.Fprintf(os.Stderr, "  skip: %v\n", err)
			}
			continue
		}
		properties = append(properties, prop)

		if verbose && (i+1)%25 == 0 {
			fmt.Fprintf(os.Stderr, "  %d/%d (%d ok, %d failed)\n", i+1, len(ids), len(properties), failed)
		}
	}

	rows, err := scrape.WriteCSV(cfg.Scrape.Output, properties)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Saved %d transactions from %d properties to %s (%d failed)\n",
		rows, len(properties), cfg.Scrape.Output, failed)
	return nil
}
