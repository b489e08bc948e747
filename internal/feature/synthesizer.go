package feature

import (
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/propval/internal/model"
)

// Synthesizer maps cleaned records onto the fixed numeric feature
// schema. Synthesize is a pure function of its input: the same record
// always yields the same vector, at training time and at serving time,
// because every mapping is a fixed table from configuration rather than
// something inferred from the corpus.
type Synthesizer struct {
	cfg model.FeatureConfig
	// prefixes sorted longest-first so "SW1" wins over "S".
	prefixes []string
}

// NewSynthesizer creates a Synthesizer from the feature configuration.
func NewSynthesizer(cfg model.FeatureConfig) *Synthesizer {
	prefixes := make([]string, 0, len(cfg.Geocode))
	for p := range cfg.Geocode {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return &Synthesizer{cfg: cfg, prefixes: prefixes}
}

// Schema returns the feature names in vector order.
func (s *Synthesizer) Schema() []string {
	return s.cfg.Order
}

// Synthesize derives the feature vector and target price from one
// cleaned record.
func (s *Synthesizer) Synthesize(rec model.CleanedRecord) (model.FeatureVector, float64) {
	profile := s.profile(rec.PropertyType)
	lat, lon := s.Geocode(rec.Postcode)

	detached := 0.0
	if profile.Detached {
		detached = 1.0
	}

	byName := map[string]float64{
		"beds":     profile.Beds,
		"baths":    profile.Baths,
		"ensuite":  profile.Ensuite,
		"detached": detached,
		"lat":      lat,
		"lon":      lon,
	}

	vec := make(model.FeatureVector, len(s.cfg.Order))
	for i, name := range s.cfg.Order {
		vec[i] = byName[name]
	}

	target := rec.Price
	if s.cfg.Inflation.Enabled {
		target = s.inflate(target, rec.Date.Year())
	}
	return vec, target
}

// Geocode resolves a postcode to approximate coordinates by longest
// matching prefix. Unmatched postcodes degrade to the default
// coordinate; they never error.
func (s *Synthesizer) Geocode(postcode string) (float64, float64) {
	pc := strings.ToUpper(strings.TrimSpace(postcode))
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(pc, prefix) {
			coords := s.cfg.Geocode[prefix]
			return coords[0], coords[1]
		}
	}
	return s.cfg.DefaultLat, s.cfg.DefaultLon
}

// profile returns the room attributes for a property-type code.
func (s *Synthesizer) profile(code string) model.TypeProfile {
	if p, ok := s.cfg.PropertyTypes[strings.ToUpper(code)]; ok {
		return p
	}
	return s.cfg.DefaultType
}

// inflate compounds the configured annual rate from the sale year to
// the target year, bringing historical prices onto one price level.
func (s *Synthesizer) inflate(price float64, saleYear int) float64 {
	years := s.cfg.Inflation.TargetYear - saleYear
	if years <= 0 {
		return price
	}
	return price * math.Pow(1+s.cfg.Inflation.AnnualRate, float64(years))
}
