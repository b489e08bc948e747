package serve

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/propval/internal/artifact"
	"github.com/ppiankov/propval/internal/model"
)

// ErrPredictionInput means the request's feature vector did not match
// the loaded artifact's schema. The caller must resend a conforming
// vector; nothing is scaled or inferred from a malformed one.
var ErrPredictionInput = errors.New("prediction input does not match feature schema")

// Service answers predict calls from whichever artifact won the
// startup probe. The loaded bundle is written exactly once, here, and
// only read afterwards; changing the active artifact requires a
// process restart.
type Service struct {
	bundle *artifact.Bundle
	cache  *gocache.Cache
}

// NewService probes the priority chain and holds the first loadable
// bundle. With zero loadable slots it fails fast: no default or
// guessed prediction is ever served.
func NewService(store *artifact.Store, cfg model.Config) (*Service, error) {
	bundle, err := store.Probe(cfg.Artifacts.Slots)
	if err != nil {
		return nil, err
	}
	return &Service{
		bundle: bundle,
		cache:  gocache.New(cfg.Serve.CacheTTL, cfg.Serve.CacheCleanup),
	}, nil
}

// Variant returns the slot name that won the probe.
func (s *Service) Variant() string {
	return s.bundle.Slot
}

// Schema returns the feature names the loaded artifact expects.
func (s *Service) Schema() []string {
	return s.bundle.Manifest.Features
}

// Predict applies the loaded scaler and model to the request. The model
// is pure, so identical vectors are answered from the memo cache.
func (s *Service) Predict(req model.PredictionRequest) (model.PredictionResult, error) {
	if len(req.Features) != s.bundle.Scaler.Len() {
		return model.PredictionResult{}, fmt.Errorf("%w: got %d features, want %d",
			ErrPredictionInput, len(req.Features), s.bundle.Scaler.Len())
	}

	key := cacheKey(req.Features)
	if cached, found := s.cache.Get(key); found {
		return cached.(model.PredictionResult), nil
	}

	scaled := s.bundle.Scaler.Transform(req.Features)
	value := s.bundle.Model.Predict(scaled)

	// Clamp to the plausible market band.
	value = math.Max(30000, math.Min(5000000, value))

	variance := value * 0.10
	result := model.PredictionResult{
		Value:   value,
		Min:     value - variance,
		Max:     value + variance,
		Rent:    value / 200,
		Variant: s.bundle.Slot,
	}

	s.cache.Set(key, result, gocache.DefaultExpiration)
	return result, nil
}

// cacheKey hashes the raw feature vector bit-exactly.
func cacheKey(features []float64) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, v := range features {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		_, _ = h.Write(buf)
	}
	return "propval:v1:" + hex.EncodeToString(h.Sum(nil))
}
