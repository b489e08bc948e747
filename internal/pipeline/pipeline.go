package pipeline

import (
	"fmt"
	"os"

	"github.com/ppiankov/propval/internal/artifact"
	"github.com/ppiankov/propval/internal/clean"
	"github.com/ppiankov/propval/internal/corpus"
	"github.com/ppiankov/propval/internal/feature"
	"github.com/ppiankov/propval/internal/ingest"
	"github.com/ppiankov/propval/internal/model"
	"github.com/ppiankov/propval/internal/train"
)

// Pipeline orchestrates the offline stages: ingest, clean, synthesize,
// persist, train. Every stage runs single-threaded and synchronous;
// the loader's chunking is the only resource bound that matters.
type Pipeline struct {
	cfg         *model.Config
	loader      *ingest.Loader
	cascade     *clean.Cascade
	synthesizer *feature.Synthesizer
	store       *artifact.Store
}

// NewPipeline creates a pipeline from the configuration.
func NewPipeline(cfg *model.Config) *Pipeline {
	var progress ingest.Progress
	if cfg.Output.Verbose {
		progress = func(rows int) {
			fmt.Fprintf(os.Stderr, "  loaded %d rows\n", rows)
		}
	}

	return &Pipeline{
		cfg:         cfg,
		loader:      ingest.NewLoader(cfg.Data, progress),
		cascade:     clean.NewCascade(cfg.Clean),
		synthesizer: feature.NewSynthesizer(cfg.Features),
		store:       artifact.NewStore(cfg.Artifacts.Dir),
	}
}

// ProcessResult summarizes a processing run.
type ProcessResult struct {
	Load    ingest.LoadStats
	Clean   clean.Stats
	Samples int
}

// Process runs source file → cleaned records → feature vectors →
// corpus file.
func (p *Pipeline) Process() (*ProcessResult, error) {
	raw, loadStats, err := p.loader.Load(p.cfg.Data.Source)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	cleaned, cleanStats, err := p.cascade.Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	samples := make([]model.TrainingSample, len(cleaned))
	for i, rec := range cleaned {
		features, target := p.synthesizer.Synthesize(rec)
		samples[i] = model.TrainingSample{Features: features, Target: target}
	}

	if err := corpus.WriteFile(p.cfg.Corpus.Path, p.synthesizer.Schema(), samples); err != nil {
		return nil, fmt.Errorf("persist corpus: %w", err)
	}

	return &ProcessResult{
		Load:    loadStats,
		Clean:   cleanStats,
		Samples: len(samples),
	}, nil
}

// TrainResult reports one archetype's training run.
type TrainResult struct {
	Slot    model.Slot
	Metrics train.Metrics
}

// TrainRun reads the persisted corpus, splits it once, and trains every
// configured slot against the identical subsets, persisting each
// model+scaler bundle as it completes.
func (p *Pipeline) TrainRun() ([]TrainResult, error) {
	schema, samples, err := corpus.ReadFile(p.cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("corpus %s is empty", p.cfg.Corpus.Path)
	}

	trainSet, evalSet := corpus.Split(samples, p.cfg.Split.TrainFraction, p.cfg.Split.Seed)

	var results []TrainResult
	for _, slot := range p.cfg.Artifacts.Slots {
		trainer, err := train.NewTrainer(slot.Archetype, p.cfg.Train)
		if err != nil {
			return results, err
		}

		m, scaler, metrics, err := trainer.Train(trainSet, evalSet)
		if err != nil {
			return results, fmt.Errorf("train %s: %w", slot.Name, err)
		}

		if err := p.store.Save(slot, m, scaler, schema); err != nil {
			return results, fmt.Errorf("save %s: %w", slot.Name, err)
		}

		results = append(results, TrainResult{Slot: slot, Metrics: metrics})
	}

	return results, nil
}
