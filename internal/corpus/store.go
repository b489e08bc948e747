package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppiankov/propval/internal/model"
)

// WriteFile persists the synthesized corpus as a columnar CSV: one
// feature column per schema entry plus a trailing target column. The
// file decouples processing runs from training runs; its consumers
// depend only on the feature schema, never on the raw source layout.
func WriteFile(path string, schema []string, samples []model.TrainingSample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create corpus dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create corpus file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)

	header := append(append([]string{}, schema...), "target")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write corpus header: %w", err)
	}

	row := make([]string, len(schema)+1)
	for _, sample := range samples {
		if len(sample.Features) != len(schema) {
			return fmt.Errorf("sample has %d features, schema has %d", len(sample.Features), len(schema))
		}
		for i, v := range sample.Features {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[len(schema)] = strconv.FormatFloat(sample.Target, 'g', -1, 64)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write corpus row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush corpus: %w", err)
	}
	return nil
}

// ReadFile loads a persisted corpus, returning the schema from the
// header and the samples in file order.
func ReadFile(path string) ([]string, []model.TrainingSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read corpus header: %w", err)
	}
	if len(header) < 2 || header[len(header)-1] != "target" {
		return nil, nil, fmt.Errorf("corpus %s: malformed header", path)
	}
	schema := header[:len(header)-1]

	var samples []model.TrainingSample
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A bad row means the file is damaged; a truncated corpus
			// must never pass for a complete one.
			return nil, nil, fmt.Errorf("corpus %s: %w", path, err)
		}
		if len(row) != len(header) {
			return nil, nil, fmt.Errorf("corpus %s line %d: %d columns, want %d", path, line, len(row), len(header))
		}

		features := make(model.FeatureVector, len(schema))
		for i := range schema {
			features[i], err = strconv.ParseFloat(row[i], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("corpus %s line %d: %w", path, line, err)
			}
		}
		target, err := strconv.ParseFloat(row[len(schema)], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("corpus %s line %d: %w", path, line, err)
		}

		samples = append(samples, model.TrainingSample{Features: features, Target: target})
	}

	return schema, samples, nil
}
