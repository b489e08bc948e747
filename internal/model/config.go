package model

import "time"

// Config is the complete propval configuration tree.
// Loaded via viper (flags > PROPVAL_* env > ~/.propval/config.yaml > defaults).
type Config struct {
	Data      DataConfig     `yaml:"data" mapstructure:"data"`
	Clean     CleanConfig    `yaml:"clean" mapstructure:"clean"`
	Features  FeatureConfig  `yaml:"features" mapstructure:"features"`
	Corpus    CorpusConfig   `yaml:"corpus" mapstructure:"corpus"`
	Split     SplitConfig    `yaml:"split" mapstructure:"split"`
	Train     TrainConfig    `yaml:"train" mapstructure:"train"`
	Artifacts ArtifactConfig `yaml:"artifacts" mapstructure:"artifacts"`
	Serve     ServeConfig    `yaml:"serve" mapstructure:"serve"`
	Scrape    ScrapeConfig   `yaml:"scrape" mapstructure:"scrape"`
	Output    OutputConfig   `yaml:"output" mapstructure:"output"`
}

// DataConfig describes the raw price-paid source file.
type DataConfig struct {
	Source      string        `yaml:"source" mapstructure:"source"`
	DownloadURL string        `yaml:"download_url" mapstructure:"download_url"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ChunkSize   int           `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxRows     int           `yaml:"max_rows" mapstructure:"max_rows"`
	Columns     ColumnMap     `yaml:"columns" mapstructure:"columns"`
}

// ColumnMap fixes the zero-based column positions of the header-less
// price-paid CSV. The published format never changes order, so positions
// are configuration rather than sniffed.
type ColumnMap struct {
	Price        int `yaml:"price" mapstructure:"price"`
	Date         int `yaml:"date" mapstructure:"date"`
	Postcode     int `yaml:"postcode" mapstructure:"postcode"`
	PropertyType int `yaml:"property_type" mapstructure:"property_type"`
	Town         int `yaml:"town" mapstructure:"town"`
}

// CleanConfig parameterizes the cleaning cascade.
type CleanConfig struct {
	PriceMin float64 `yaml:"price_min" mapstructure:"price_min"`
	PriceMax float64 `yaml:"price_max" mapstructure:"price_max"`
	// DateWindowsYears is tried in order; the first window that leaves a
	// non-empty corpus wins. 0 means no date filter.
	DateWindowsYears []int `yaml:"date_windows_years" mapstructure:"date_windows_years"`
}

// FeatureConfig fixes the synthesizer schema. Order, tables and defaults
// are data so the schema can be tested without any trained model.
type FeatureConfig struct {
	Order         []string               `yaml:"order" mapstructure:"order"`
	PropertyTypes map[string]TypeProfile `yaml:"property_types" mapstructure:"property_types"`
	DefaultType   TypeProfile            `yaml:"default_type" mapstructure:"default_type"`
	Geocode       map[string][2]float64  `yaml:"geocode" mapstructure:"geocode"`
	DefaultLat    float64                `yaml:"default_lat" mapstructure:"default_lat"`
	DefaultLon    float64                `yaml:"default_lon" mapstructure:"default_lon"`
	Inflation     InflationConfig        `yaml:"inflation" mapstructure:"inflation"`
}

// TypeProfile maps a property-type code to fixed room attributes.
type TypeProfile struct {
	Beds     float64 `yaml:"beds" mapstructure:"beds"`
	Baths    float64 `yaml:"baths" mapstructure:"baths"`
	Ensuite  float64 `yaml:"ensuite" mapstructure:"ensuite"`
	Detached bool    `yaml:"detached" mapstructure:"detached"`
}

// InflationConfig adjusts historical prices to a target year with
// compound annual inflation. Disabled by default.
type InflationConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	AnnualRate float64 `yaml:"annual_rate" mapstructure:"annual_rate"`
	TargetYear int     `yaml:"target_year" mapstructure:"target_year"`
}

// CorpusConfig locates the persisted training corpus.
type CorpusConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SplitConfig parameterizes the train/eval partition.
type SplitConfig struct {
	TrainFraction float64 `yaml:"train_fraction" mapstructure:"train_fraction"`
	Seed          int64   `yaml:"seed" mapstructure:"seed"`
}

// TrainConfig carries per-archetype hyperparameters.
type TrainConfig struct {
	Boost BoostConfig `yaml:"boost" mapstructure:"boost"`
	Net   NetConfig   `yaml:"net" mapstructure:"net"`
}

// BoostConfig configures the gradient-boosted tree ensemble.
type BoostConfig struct {
	Estimators     int     `yaml:"estimators" mapstructure:"estimators"`
	LearningRate   float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	MaxDepth       int     `yaml:"max_depth" mapstructure:"max_depth"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf" mapstructure:"min_samples_leaf"`
	Patience       int     `yaml:"patience" mapstructure:"patience"`
}

// NetConfig configures the fully connected network.
type NetConfig struct {
	Hidden       []int   `yaml:"hidden" mapstructure:"hidden"`
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	Epochs       int     `yaml:"epochs" mapstructure:"epochs"`
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"`
	Patience     int     `yaml:"patience" mapstructure:"patience"`
	Seed         int64   `yaml:"seed" mapstructure:"seed"`
}

// ArtifactConfig locates trained model bundles. Slots is the priority
// fallback chain: probed in order at serve start, first loadable wins.
type ArtifactConfig struct {
	Dir   string `yaml:"dir" mapstructure:"dir"`
	Slots []Slot `yaml:"slots" mapstructure:"slots"`
}

// Slot names one artifact variant in the priority chain. Adding an
// archetype means appending a slot, not branching new code paths.
type Slot struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Archetype string `yaml:"archetype" mapstructure:"archetype"`
}

// ServeConfig configures the prediction service.
type ServeConfig struct {
	CacheTTL     time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheCleanup time.Duration `yaml:"cache_cleanup" mapstructure:"cache_cleanup"`
}

// ScrapeConfig configures the supplemental sold-price scraper.
type ScrapeConfig struct {
	ListingURL string        `yaml:"listing_url" mapstructure:"listing_url"`
	DetailURL  string        `yaml:"detail_url" mapstructure:"detail_url"`
	Pages      int           `yaml:"pages" mapstructure:"pages"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Output     string        `yaml:"output" mapstructure:"output"`
}

// OutputConfig controls progress reporting.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults. Tables mirror the
// published price-paid format and a coarse postcode-area gazetteer.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Source:      "data/pp-complete.csv",
			DownloadURL: "https://publicdata.landregistry.org.uk/pp-%d.csv",
			Timeout:     5 * time.Minute,
			ChunkSize:   50000,
			MaxRows:     1000000,
			Columns: ColumnMap{
				Price:        1,
				Date:         2,
				Postcode:     3,
				PropertyType: 4,
				Town:         11,
			},
		},
		Clean: CleanConfig{
			PriceMin:         50000,
			PriceMax:         5000000,
			DateWindowsYears: []int{10, 20, 0},
		},
		Features: FeatureConfig{
			Order: []string{"beds", "baths", "ensuite", "detached", "lat", "lon"},
			PropertyTypes: map[string]TypeProfile{
				"D": {Beds: 4, Baths: 2, Ensuite: 1, Detached: true},
				"S": {Beds: 3, Baths: 1, Ensuite: 0, Detached: false},
				"T": {Beds: 3, Baths: 1, Ensuite: 0, Detached: false},
				"F": {Beds: 2, Baths: 1, Ensuite: 0, Detached: false},
				"O": {Beds: 3, Baths: 1, Ensuite: 0, Detached: false},
			},
			DefaultType: TypeProfile{Beds: 3, Baths: 1, Ensuite: 0, Detached: false},
			Geocode: map[string][2]float64{
				"SW1": {51.5033, -0.1276},
				"EC1": {51.5190, -0.1026},
				"W1":  {51.5155, -0.1520},
				"E1":  {51.5180, -0.0740},
				"N1":  {51.5373, -0.1220},
				"SE1": {51.5042, -0.1037},
				"NW1": {51.5349, -0.1599},
				"M1":  {53.4808, -2.2426},
				"B1":  {52.5095, -1.8848},
				"L1":  {53.4084, -2.9916},
				"LS1": {53.8017, -1.5456},
				"S1":  {53.3806, -1.4659},
				"B":   {52.5095, -1.8848},
				"BN":  {50.8625, -0.0833},
				"CB":  {52.2044, 0.1235},
				"EH1": {55.9533, -3.1883},
				"G1":  {55.8625, -4.2588},
				"CF1": {51.4825, -3.1660},
				"M":   {53.4808, -2.2426},
			},
			DefaultLat: 54.0,
			DefaultLon: -2.0,
			Inflation: InflationConfig{
				Enabled:    false,
				AnnualRate: 0.03,
				TargetYear: 2026,
			},
		},
		Corpus: CorpusConfig{
			Path: "data/corpus.csv",
		},
		Split: SplitConfig{
			TrainFraction: 0.8,
			Seed:          42,
		},
		Train: TrainConfig{
			Boost: BoostConfig{
				Estimators:     200,
				LearningRate:   0.05,
				MaxDepth:       4,
				MinSamplesLeaf: 20,
				Patience:       20,
			},
			Net: NetConfig{
				Hidden:       []int{64, 32},
				LearningRate: 0.001,
				Epochs:       100,
				BatchSize:    32,
				Patience:     10,
				Seed:         42,
			},
		},
		Artifacts: ArtifactConfig{
			Dir: "models",
			Slots: []Slot{
				{Name: "boost", Archetype: "boost"},
				{Name: "net", Archetype: "net"},
			},
		},
		Serve: ServeConfig{
			CacheTTL:     5 * time.Minute,
			CacheCleanup: 10 * time.Minute,
		},
		Scrape: ScrapeConfig{
			ListingURL: "https://www.rightmove.co.uk/house-prices/widley.html?pageNumber=%d",
			DetailURL:  "https://www.rightmove.co.uk/house-prices/details/%s",
			Pages:      40,
			UserAgent:  "propval/0.1 (+https://github.com/ppiankov/propval)",
			RatePerSec: 1.0,
			Timeout:    15 * time.Second,
			Output:     "data/scraped.csv",
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}
