package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/propval/internal/model"
	"github.com/ppiankov/propval/internal/train"
)

var testSchema = []string{"beds", "baths", "ensuite", "detached", "lat", "lon"}

func testBundleInputs() (train.Model, *train.Scaler) {
	m := &train.BoostModel{Base: 250000, LearningRate: 0.1}
	scaler := &train.Scaler{
		Mean: []float64{3, 1, 0, 0.3, 52, -1.5},
		Std:  []float64{1, 0.5, 0.2, 0.4, 2, 1},
	}
	return m, scaler
}

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	slot := model.Slot{Name: "boost", Archetype: "boost"}

	m, scaler := testBundleInputs()
	if err := store.Save(slot, m, scaler, testSchema); err != nil {
		t.Fatalf("save: %v", err)
	}

	bundle, err := store.Load(slot)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if bundle.Slot != "boost" {
		t.Errorf("expected slot boost, got %q", bundle.Slot)
	}
	if bundle.Manifest.Archetype != "boost" {
		t.Errorf("expected archetype boost, got %q", bundle.Manifest.Archetype)
	}
	if len(bundle.Manifest.Features) != len(testSchema) {
		t.Errorf("expected %d features in manifest, got %d", len(testSchema), len(bundle.Manifest.Features))
	}

	scaled := bundle.Scaler.Transform([]float64{3, 1, 0, 0.3, 52, -1.5})
	if got := bundle.Model.Predict(scaled); got != 250000 {
		t.Errorf("expected prediction 250000, got %v", got)
	}
}

func TestStore_Load_TamperedModelFailsIntegrity(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	slot := model.Slot{Name: "boost", Archetype: "boost"}

	m, scaler := testBundleInputs()
	if err := store.Save(slot, m, scaler, testSchema); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Simulate a partially copied bundle: the model payload no longer
	// matches the manifest the scaler was written with.
	modelPath := filepath.Join(dir, "boost", "model.json")
	if err := os.WriteFile(modelPath, []byte(`{"base":1,"learning_rate":0.1}`), 0644); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	if _, err := store.Load(slot); !errors.Is(err, ErrIntegrity) {
		t.Errorf("expected ErrIntegrity, got %v", err)
	}
}

func TestStore_Load_MissingSlot(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load(model.Slot{Name: "boost", Archetype: "boost"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestStore_Probe_FallsBackToNextSlot(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	slots := []model.Slot{
		{Name: "boost", Archetype: "boost"},
		{Name: "net", Archetype: "boost"},
	}

	// Only the lower-priority slot has a valid bundle.
	m, scaler := testBundleInputs()
	if err := store.Save(slots[1], m, scaler, testSchema); err != nil {
		t.Fatalf("save: %v", err)
	}

	bundle, err := store.Probe(slots)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if bundle.Slot != "net" {
		t.Errorf("expected fallback to net slot, got %q", bundle.Slot)
	}
}

func TestStore_Probe_CorruptHighPrioritySkipped(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	slots := []model.Slot{
		{Name: "boost", Archetype: "boost"},
		{Name: "net", Archetype: "boost"},
	}

	m, scaler := testBundleInputs()
	for _, slot := range slots {
		if err := store.Save(slot, m, scaler, testSchema); err != nil {
			t.Fatalf("save %s: %v", slot.Name, err)
		}
	}

	// Corrupt the high-priority payload; the probe must move on.
	if err := os.WriteFile(filepath.Join(dir, "boost", "scaler.json"), []byte(`{}`), 0644); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	bundle, err := store.Probe(slots)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if bundle.Slot != "net" {
		t.Errorf("expected net slot to win, got %q", bundle.Slot)
	}
}

func TestStore_Probe_AllSlotsMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	slots := []model.Slot{
		{Name: "boost", Archetype: "boost"},
		{Name: "net", Archetype: "net"},
	}
	if _, err := store.Probe(slots); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
