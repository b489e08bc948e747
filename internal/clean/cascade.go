package clean

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/propval/internal/model"
)

// ErrEmptyCorpus means every date window, including "no filter", left
// zero rows. Training on an empty corpus is never allowed to happen
// silently.
var ErrEmptyCorpus = errors.New("cleaning produced an empty corpus")

// Cascade applies the ordered cleaning predicates: required fields,
// price interval, first-wins de-duplication, then a date-recency filter
// with a widening fallback chain. Re-applying the cascade to its own
// output drops nothing.
type Cascade struct {
	priceMin float64
	priceMax float64
	windows  []int
	now      func() time.Time
}

// NewCascade creates a Cascade from the cleaning configuration.
func NewCascade(cfg model.CleanConfig) *Cascade {
	return &Cascade{
		priceMin: cfg.PriceMin,
		priceMax: cfg.PriceMax,
		windows:  cfg.DateWindowsYears,
		now:      time.Now,
	}
}

// Stats counts what each predicate dropped.
type Stats struct {
	Input        int
	MissingField int
	PriceRange   int
	Duplicates   int
	DateFiltered int
	// WindowYears is the window that finally applied; 0 means no filter.
	WindowYears int
	Kept        int
}

// Clean runs the full cascade over raw records.
func (c *Cascade) Clean(records []model.RawRecord) ([]model.CleanedRecord, Stats, error) {
	stats := Stats{Input: len(records)}

	seen := make(map[string]struct{}, len(records))
	cleaned := make([]model.CleanedRecord, 0, len(records))

	for _, raw := range records {
		rec, ok := c.normalize(raw)
		if !ok {
			stats.MissingField++
			continue
		}

		if rec.Price < c.priceMin || rec.Price > c.priceMax {
			stats.PriceRange++
			continue
		}

		key := dedupeKey(rec)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		cleaned = append(cleaned, rec)
	}

	kept, window := c.applyDateWindows(cleaned)
	if len(kept) == 0 {
		return nil, stats, fmt.Errorf("%w: %d rows in, every window empty", ErrEmptyCorpus, len(records))
	}

	stats.DateFiltered = len(cleaned) - len(kept)
	stats.WindowYears = window
	stats.Kept = len(kept)
	return kept, stats, nil
}

// applyDateWindows tries each configured window in order and keeps the
// first non-empty result. The field is historical and sparse near the
// present, so a narrow recency filter can legitimately empty the corpus.
func (c *Cascade) applyDateWindows(records []model.CleanedRecord) ([]model.CleanedRecord, int) {
	if len(c.windows) == 0 {
		return records, 0
	}

	for _, years := range c.windows {
		if years <= 0 {
			return records, 0
		}

		cutoff := c.now().AddDate(0, 0, -years*365)
		kept := make([]model.CleanedRecord, 0, len(records))
		for _, rec := range records {
			if !rec.Date.Before(cutoff) {
				kept = append(kept, rec)
			}
		}
		if len(kept) > 0 {
			return kept, years
		}
	}

	return nil, 0
}

// normalize type-checks one raw row. Any missing or unparsable required
// field drops the row.
func (c *Cascade) normalize(raw model.RawRecord) (model.CleanedRecord, bool) {
	postcode := strings.ToUpper(strings.TrimSpace(raw.Postcode))
	town := strings.TrimSpace(raw.Town)
	ptype := strings.ToUpper(strings.TrimSpace(raw.PropertyType))
	if postcode == "" || town == "" || ptype == "" {
		return model.CleanedRecord{}, false
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(raw.Price), 64)
	if err != nil {
		return model.CleanedRecord{}, false
	}

	date, ok := parseDate(strings.TrimSpace(raw.Date))
	if !ok {
		return model.CleanedRecord{}, false
	}

	return model.CleanedRecord{
		Price:        price,
		Date:         date,
		Postcode:     postcode,
		PropertyType: ptype,
		Town:         town,
	}, true
}

// parseDate accepts the price-paid timestamp format and plain dates.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dedupeKey(rec model.CleanedRecord) string {
	return fmt.Sprintf("%s|%.2f|%s", rec.Postcode, rec.Price, rec.Date.Format("2006-01-02"))
}

// Reclean runs the cascade over already-clean records, converting them
// back to their raw form first. Used by tests to assert idempotence and
// by callers that merge corpora from multiple sources.
func (c *Cascade) Reclean(records []model.CleanedRecord) ([]model.CleanedRecord, Stats, error) {
	raw := make([]model.RawRecord, len(records))
	for i, rec := range records {
		raw[i] = model.RawRecord{
			Price:        strconv.FormatFloat(rec.Price, 'f', -1, 64),
			Date:         rec.Date.Format("2006-01-02 15:04"),
			Postcode:     rec.Postcode,
			PropertyType: rec.PropertyType,
			Town:         rec.Town,
		}
	}
	return c.Clean(raw)
}
