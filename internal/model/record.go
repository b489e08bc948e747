package model

import "time"

// RawRecord is one row as read from the source file. Fields are opaque
// strings; nothing has been validated yet.
type RawRecord struct {
	Price        string
	Date         string
	Postcode     string
	PropertyType string
	Town         string
}

// CleanedRecord is a RawRecord that passed every cascade predicate.
// Price is within the configured interval, Date parsed and within the
// selected window, and (Postcode, Price, Date) is unique in the corpus.
type CleanedRecord struct {
	Price        float64
	Date         time.Time
	Postcode     string
	PropertyType string
	Town         string
}

// FeatureVector is a fixed-length ordered numeric vector. Length and
// order are set by FeatureConfig.Order and must match exactly what a
// paired scaler/model expects.
type FeatureVector []float64

// TrainingSample pairs one synthesized vector with its target price.
type TrainingSample struct {
	Features FeatureVector
	Target   float64
}
