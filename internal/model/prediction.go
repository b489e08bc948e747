package model

// PredictionRequest holds raw (unscaled) feature inputs in schema order.
type PredictionRequest struct {
	Features []float64 `json:"features"`
}

// PredictionResult is one valuation answer. Variant names the artifact
// slot that produced it. Min/Max bracket the point estimate with a ±10%
// band and Rent is a rough monthly estimate derived from the value.
type PredictionResult struct {
	Value   float64 `json:"value"`
	Min     float64 `json:"min_value"`
	Max     float64 `json:"max_value"`
	Rent    float64 `json:"predicted_rent"`
	Variant string  `json:"model_variant_used"`
}
