package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/propval/internal/model"
	"github.com/ppiankov/propval/internal/train"
)

var (
	// ErrUnavailable means no configured slot could be loaded. The
	// serving process must fail fast rather than guess a prediction.
	ErrUnavailable = errors.New("no model artifact available")

	// ErrIntegrity means a slot's model and scaler do not match the
	// manifest they were written with. The slot is skipped so a
	// partially copied bundle can never produce wrong-scale
	// predictions.
	ErrIntegrity = errors.New("artifact integrity check failed")
)

const (
	modelFile    = "model.json"
	scalerFile   = "scaler.json"
	manifestFile = "manifest.yaml"
)

// Manifest records what a bundle contains. The digests tie the model
// and scaler payloads to each other: both were written in the same
// Save call or the bundle does not load.
type Manifest struct {
	Archetype    string    `yaml:"archetype"`
	Features     []string  `yaml:"features"`
	ModelDigest  string    `yaml:"model_digest"`
	ScalerDigest string    `yaml:"scaler_digest"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// Bundle is one loaded model+scaler pair. Immutable once loaded.
type Bundle struct {
	Slot     string
	Manifest Manifest
	Model    train.Model
	Scaler   *train.Scaler
}

// Store persists trained models under one directory, one subdirectory
// per priority slot.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes a model, its paired scaler and the manifest into the
// slot's directory as a single unit. The manifest is written last, so
// an interrupted save leaves a bundle that fails its integrity check
// instead of a silently mismatched pair.
func (s *Store) Save(slot model.Slot, m train.Model, scaler *train.Scaler, features []string) error {
	dir := filepath.Join(s.dir, slot.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create slot dir: %w", err)
	}

	modelData, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	scalerData, err := json.Marshal(scaler)
	if err != nil {
		return fmt.Errorf("marshal scaler: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, modelFile), modelData, 0644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, scalerFile), scalerData, 0644); err != nil {
		return fmt.Errorf("write scaler: %w", err)
	}

	manifest := Manifest{
		Archetype:    m.Archetype(),
		Features:     features,
		ModelDigest:  digest(modelData),
		ScalerDigest: digest(scalerData),
		CreatedAt:    time.Now().UTC(),
	}
	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), manifestData, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Load reads one slot's bundle, verifying both payloads against the
// manifest before deserializing them.
func (s *Store) Load(slot model.Slot) (*Bundle, error) {
	dir := filepath.Join(s.dir, slot.Name)

	manifestData, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %v", ErrUnavailable, slot.Name, err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(manifestData, &manifest); err != nil {
		return nil, fmt.Errorf("%w: slot %s: bad manifest: %v", ErrIntegrity, slot.Name, err)
	}

	modelData, err := os.ReadFile(filepath.Join(dir, modelFile))
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %v", ErrIntegrity, slot.Name, err)
	}
	scalerData, err := os.ReadFile(filepath.Join(dir, scalerFile))
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %v", ErrIntegrity, slot.Name, err)
	}

	if digest(modelData) != manifest.ModelDigest || digest(scalerData) != manifest.ScalerDigest {
		return nil, fmt.Errorf("%w: slot %s: payload does not match manifest", ErrIntegrity, slot.Name)
	}

	m, err := train.UnmarshalModel(manifest.Archetype, modelData)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %v", ErrIntegrity, slot.Name, err)
	}
	var scaler train.Scaler
	if err := json.Unmarshal(scalerData, &scaler); err != nil {
		return nil, fmt.Errorf("%w: slot %s: bad scaler: %v", ErrIntegrity, slot.Name, err)
	}

	return &Bundle{
		Slot:     slot.Name,
		Manifest: manifest,
		Model:    m,
		Scaler:   &scaler,
	}, nil
}

// Probe walks the priority chain in order and returns the first bundle
// that loads cleanly. Integrity failures skip to the next slot. If no
// slot loads, the error wraps ErrUnavailable.
func (s *Store) Probe(slots []model.Slot) (*Bundle, error) {
	var errs []error
	for _, slot := range slots {
		bundle, err := s.Load(slot)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return bundle, nil
	}
	return nil, fmt.Errorf("%w: probed %d slots: %v", ErrUnavailable, len(slots), errors.Join(errs...))
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
