package clean

import (
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/propval/internal/model"
)

func testCascade(windows []int) *Cascade {
	c := NewCascade(model.CleanConfig{
		PriceMin:         50000,
		PriceMax:         5000000,
		DateWindowsYears: windows,
	})
	// Pin the clock so window math is stable.
	c.now = func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	return c
}

func raw(price, date, postcode string) model.RawRecord {
	return model.RawRecord{
		Price:        price,
		Date:         date,
		Postcode:     postcode,
		PropertyType: "D",
		Town:         "LONDON",
	}
}

func TestCascade_Clean_PriceRange(t *testing.T) {
	c := testCascade(nil)

	records := []model.RawRecord{
		raw("40000", "2020-01-01 00:00", "SW1A 1AA"),
		raw("60000", "2020-01-02 00:00", "SW1A 1AB"),
		raw("5100000", "2020-01-03 00:00", "SW1A 1AC"),
	}

	cleaned, stats, err := c.Clean(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cleaned) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(cleaned))
	}
	if cleaned[0].Price != 60000 {
		t.Errorf("expected the 60000 row to survive, got %.0f", cleaned[0].Price)
	}
	if stats.PriceRange != 2 {
		t.Errorf("expected 2 price-range drops, got %d", stats.PriceRange)
	}
}

func TestCascade_Clean_DropsMissingFields(t *testing.T) {
	c := testCascade(nil)

	records := []model.RawRecord{
		raw("100000", "2020-01-01 00:00", ""),
		raw("100000", "", "SW1A 1AA"),
		raw("not-a-price", "2020-01-01 00:00", "SW1A 1AA"),
		raw("100000", "2020-01-01 00:00", "SW1A 1AB"),
	}

	cleaned, stats, err := c.Clean(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cleaned) != 1 {
		t.Errorf("expected 1 survivor, got %d", len(cleaned))
	}
	if stats.MissingField != 3 {
		t.Errorf("expected 3 missing-field drops, got %d", stats.MissingField)
	}
}

func TestCascade_Clean_DeduplicatesKeepingFirst(t *testing.T) {
	c := testCascade(nil)

	records := []model.RawRecord{
		{Price: "100000", Date: "2020-01-01 00:00", Postcode: "SW1A 1AA", PropertyType: "D", Town: "LONDON"},
		{Price: "100000", Date: "2020-01-01 00:00", Postcode: "SW1A 1AA", PropertyType: "F", Town: "WESTMINSTER"},
	}

	cleaned, stats, err := c.Clean(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cleaned) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(cleaned))
	}
	// First occurrence wins.
	if cleaned[0].PropertyType != "D" {
		t.Errorf("expected first-encountered row to survive, got type %q", cleaned[0].PropertyType)
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate drop, got %d", stats.Duplicates)
	}
}

func TestCascade_Clean_DateWindowFallback(t *testing.T) {
	c := testCascade([]int{10, 20, 0})

	// All records ~15 years before the pinned clock: the 10y window
	// yields zero rows, the 20y window must apply.
	records := []model.RawRecord{
		raw("100000", "2010-06-01 00:00", "SW1A 1AA"),
		raw("200000", "2010-07-01 00:00", "SW1A 1AB"),
	}

	cleaned, stats, err := c.Clean(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cleaned) != 2 {
		t.Errorf("expected 2 survivors, got %d", len(cleaned))
	}
	if stats.WindowYears != 20 {
		t.Errorf("expected the 20y window to apply, got %d", stats.WindowYears)
	}
}

func TestCascade_Clean_NarrowWindowAppliesWhenNonEmpty(t *testing.T) {
	c := testCascade([]int{10, 20, 0})

	records := []model.RawRecord{
		raw("100000", "2020-01-01 00:00", "SW1A 1AA"), // within 10y
		raw("200000", "2010-01-01 00:00", "SW1A 1AB"), // outside 10y
	}

	cleaned, stats, err := c.Clean(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cleaned) != 1 {
		t.Errorf("expected 1 survivor under the 10y window, got %d", len(cleaned))
	}
	if stats.WindowYears != 10 {
		t.Errorf("expected the 10y window to apply, got %d", stats.WindowYears)
	}
	if stats.DateFiltered != 1 {
		t.Errorf("expected 1 date-filtered drop, got %d", stats.DateFiltered)
	}
}

func TestCascade_Clean_EmptyCorpusError(t *testing.T) {
	c := testCascade([]int{10, 20, 0})

	records := []model.RawRecord{
		raw("10", "2020-01-01 00:00", "SW1A 1AA"), // below price floor
	}

	_, _, err := c.Clean(records)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestCascade_Clean_Idempotent(t *testing.T) {
	c := testCascade([]int{10, 20, 0})

	records := []model.RawRecord{
		raw("100000", "2020-01-01 00:00", "SW1A 1AA"),
		raw("40000", "2020-01-02 00:00", "SW1A 1AB"),
		raw("250000", "2021-03-04 00:00", "M1 1AA"),
		raw("250000", "2021-03-04 00:00", "M1 1AA"),
	}

	once, _, err := c.Clean(records)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}

	twice, stats, err := c.Reclean(once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if len(twice) != len(once) {
		t.Fatalf("second pass changed corpus size: %d -> %d", len(once), len(twice))
	}
	if stats.Kept != stats.Input {
		t.Errorf("second pass dropped rows: input %d, kept %d", stats.Input, stats.Kept)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("record %d changed across passes: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestCascade_Clean_Invariants(t *testing.T) {
	c := testCascade([]int{10, 20, 0})

	records := []model.RawRecord{
		raw("100000", "2020-01-01 00:00", "SW1A 1AA"),
		raw("3000000", "2019-05-01 00:00", "M1 1AA"),
		raw("75000", "2022-11-11 00:00", "LS1 2AB"),
	}

	cleaned, _, err := c.Clean(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]struct{})
	for _, rec := range cleaned {
		if rec.Price < 50000 || rec.Price > 5000000 {
			t.Errorf("price %.0f outside configured interval", rec.Price)
		}
		key := dedupeKey(rec)
		if _, dup := seen[key]; dup {
			t.Errorf("duplicate (postcode, price, date) triple survived: %s", key)
		}
		seen[key] = struct{}{}
	}
}
