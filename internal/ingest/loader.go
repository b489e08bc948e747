package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/propval/internal/model"
)

var (
	// ErrSourceNotFound means the source file is absent. Fatal: ingestion
	// cannot proceed without a dataset.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrMalformedChunk means the reader failed below the row level.
	// Row-level parse errors are tolerated and skipped; this is not.
	ErrMalformedChunk = errors.New("malformed chunk")
)

// Progress receives rows-loaded-so-far at chunk boundaries. It is
// observability only and has no effect on what gets loaded.
type Progress func(rows int)

// Loader streams the price-paid CSV in fixed-size chunks with a hard
// row ceiling, so memory stays bounded regardless of source file size.
type Loader struct {
	cols      model.ColumnMap
	chunkSize int
	maxRows   int
	progress  Progress
}

// NewLoader creates a Loader from the data configuration. progress may
// be nil.
func NewLoader(cfg model.DataConfig, progress Progress) *Loader {
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = 50000
	}
	return &Loader{
		cols:      cfg.Columns,
		chunkSize: chunk,
		maxRows:   cfg.MaxRows,
		progress:  progress,
	}
}

// LoadStats counts what the loader saw. Bad rows are dropped silently
// and surface only here.
type LoadStats struct {
	Rows    int
	BadRows int
	Chunks  int
}

// Load reads the file strictly in order and returns at most MaxRows
// records. It stops as soon as the ceiling is reached, even mid-chunk.
func (l *Loader) Load(path string) ([]model.RawRecord, LoadStats, error) {
	var stats LoadStats

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, stats, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, stats, fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<16))
	r.FieldsPerRecord = -1 // no header row, column count not enforced here

	records := make([]model.RawRecord, 0, l.chunkSize)
	for {
		if l.maxRows > 0 && stats.Rows >= l.maxRows {
			break
		}

		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.BadRows++
				continue
			}
			return nil, stats, fmt.Errorf("%w: chunk %d: %v", ErrMalformedChunk, stats.Chunks+1, err)
		}

		rec, ok := l.extract(row)
		if !ok {
			stats.BadRows++
			continue
		}

		records = append(records, rec)
		stats.Rows++

		if stats.Rows%l.chunkSize == 0 {
			stats.Chunks++
			if l.progress != nil {
				l.progress(stats.Rows)
			}
		}
	}

	if stats.Rows%l.chunkSize != 0 {
		stats.Chunks++
		if l.progress != nil {
			l.progress(stats.Rows)
		}
	}

	return records, stats, nil
}

// extract picks the configured columns out of one row. Rows too short
// to hold every configured column are bad rows, not chunk failures.
func (l *Loader) extract(row []string) (model.RawRecord, bool) {
	max := l.cols.Price
	for _, idx := range []int{l.cols.Date, l.cols.Postcode, l.cols.PropertyType, l.cols.Town} {
		if idx > max {
			max = idx
		}
	}
	if len(row) <= max {
		return model.RawRecord{}, false
	}
	return model.RawRecord{
		Price:        row[l.cols.Price],
		Date:         row[l.cols.Date],
		Postcode:     row[l.cols.Postcode],
		PropertyType: row[l.cols.PropertyType],
		Town:         row[l.cols.Town],
	}, true
}
