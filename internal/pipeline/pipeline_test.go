package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/propval/internal/artifact"
	"github.com/ppiankov/propval/internal/model"
	"github.com/ppiankov/propval/internal/serve"
)

// writeSourceFile produces a synthetic price-paid extract in the raw
// sixteen-column layout. Price follows property type so training has a
// learnable signal.
func writeSourceFile(t *testing.T, path string, rows int) {
	t.Helper()

	basePrices := map[string]float64{"D": 450000, "S": 320000, "T": 250000, "F": 160000}
	types := []string{"D", "S", "T", "F"}
	postcodes := []string{"SW1A 1AA", "M1 2AB", "LS1 4DT", "PO7 5AB"}
	dates := []string{"2022-03-15 00:00", "2023-07-01 00:00", "2024-11-20 00:00"}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	for i := 0; i < rows; i++ {
		typ := types[i%len(types)]
		price := basePrices[typ] + float64(i*13)
		row := make([]string, 16)
		row[0] = fmt.Sprintf("{%08d}", i)
		row[1] = fmt.Sprintf("%.0f", price)
		row[2] = dates[i%len(dates)]
		row[3] = postcodes[i%len(postcodes)]
		row[4] = typ
		row[11] = "TESTTOWN"
		if err := w.Write(row); err != nil {
			t.Fatalf("write source row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush source: %v", err)
	}
}

func testPipelineConfig(t *testing.T) *model.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := model.DefaultConfig()
	cfg.Data.Source = filepath.Join(dir, "pp-data.csv")
	cfg.Data.ChunkSize = 64
	cfg.Corpus.Path = filepath.Join(dir, "corpus.csv")
	cfg.Artifacts.Dir = filepath.Join(dir, "models")
	cfg.Output.Verbose = false

	// Keep the end-to-end run quick.
	cfg.Train.Boost.Estimators = 50
	cfg.Train.Net.Epochs = 30
	return cfg
}

func TestPipeline_ProcessThenTrainThenServe(t *testing.T) {
	cfg := testPipelineConfig(t)
	writeSourceFile(t, cfg.Data.Source, 200)

	p := NewPipeline(cfg)

	procRes, err := p.Process()
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if procRes.Load.Rows != 200 {
		t.Errorf("expected 200 rows loaded, got %d", procRes.Load.Rows)
	}
	if procRes.Samples != 200 {
		t.Errorf("expected 200 samples, got %d", procRes.Samples)
	}
	if _, err := os.Stat(cfg.Corpus.Path); err != nil {
		t.Fatalf("corpus file not written: %v", err)
	}

	trainRes, err := p.TrainRun()
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(trainRes) != len(cfg.Artifacts.Slots) {
		t.Fatalf("expected %d train results, got %d", len(cfg.Artifacts.Slots), len(trainRes))
	}
	for _, res := range trainRes {
		if res.Metrics.Iterations == 0 {
			t.Errorf("slot %s: zero training iterations", res.Slot.Name)
		}
		if res.Metrics.EvalMAE < 0 {
			t.Errorf("slot %s: negative eval MAE %v", res.Slot.Name, res.Metrics.EvalMAE)
		}
	}

	svc, err := serve.NewService(artifact.NewStore(cfg.Artifacts.Dir), *cfg)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	if svc.Variant() != cfg.Artifacts.Slots[0].Name {
		t.Errorf("expected highest-priority slot %q to win, got %q",
			cfg.Artifacts.Slots[0].Name, svc.Variant())
	}

	// A detached house in central London, per the feature schema.
	res, err := svc.Predict(model.PredictionRequest{
		Features: []float64{4, 2, 1, 1, 51.4975, -0.1357},
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.Value < 30000 || res.Value > 5000000 {
		t.Errorf("prediction %v outside the clamp band", res.Value)
	}
	if res.Min >= res.Value || res.Max <= res.Value {
		t.Errorf("band [%v, %v] does not bracket %v", res.Min, res.Max, res.Value)
	}
	if res.Rent != res.Value/200 {
		t.Errorf("expected rent %v, got %v", res.Value/200, res.Rent)
	}
}

func TestPipeline_Process_MissingSource(t *testing.T) {
	cfg := testPipelineConfig(t)
	if _, err := NewPipeline(cfg).Process(); err == nil {
		t.Error("expected error for missing source file")
	}
}

func TestPipeline_TrainRun_MissingCorpus(t *testing.T) {
	cfg := testPipelineConfig(t)
	if _, err := NewPipeline(cfg).TrainRun(); err == nil {
		t.Error("expected error for missing corpus file")
	}
}
