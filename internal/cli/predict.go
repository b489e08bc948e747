package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/propval/internal/artifact"
	"github.com/ppiankov/propval/internal/feature"
	"github.com/ppiankov/propval/internal/model"
	"github.com/ppiankov/propval/internal/serve"
)

var (
	predBeds     float64
	predBaths    float64
	predEnsuite  float64
	predDetached bool
	predPostcode string
)

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "One-shot valuation from the best available artifact",
	Long: `Predict probes the configured artifact slots in priority order,
loads the first valid model+scaler bundle and answers a single
valuation. Location comes from the postcode via the same prefix table
used at training time.

Example:
  propval predict --postcode SW1A1AA --beds 3 --baths 2 --detached`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().Float64Var(&predBeds, "beds", 3, "number of bedrooms")
	predictCmd.Flags().Float64Var(&predBaths, "baths", 1, "number of bathrooms")
	predictCmd.Flags().Float64Var(&predEnsuite, "ensuite", 0, "number of ensuite bathrooms")
	predictCmd.Flags().BoolVar(&predDetached, "detached", false, "detached property")
	predictCmd.Flags().StringVar(&predPostcode, "postcode", "", "UK postcode")
	_ = predictCmd.MarkFlagRequired("postcode")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := artifact.NewStore(cfg.Artifacts.Dir)
	svc, err := serve.NewService(store, *cfg)
	if err != nil {
		return err
	}

	synth := feature.NewSynthesizer(cfg.Features)
	lat, lon := synth.Geocode(predPostcode)

	detached := 0.0
	if predDetached {
		detached = 1.0
	}
	byName := map[string]float64{
		"beds":     predBeds,
		"baths":    predBaths,
		"ensuite":  predEnsuite,
		"detached": detached,
		"lat":      lat,
		"lon":      lon,
	}

	features := make([]float64, len(svc.Schema()))
	for i, name := range svc.Schema() {
		features[i] = byName[name]
	}

	result, err := svc.Predict(model.PredictionRequest{Features: features})
	if err != nil {
		return err
	}

	fmt.Printf("Estimated value: £%.0f (£%.0f - £%.0f)\n", result.Value, result.Min, result.Max)
	fmt.Printf("Estimated rent:  £%.0f/month\n", result.Rent)
	fmt.Printf("Model variant:   %s\n", result.Variant)
	return nil
}
