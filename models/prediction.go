package models

import "time"

// StoredPrediction is one persisted prediction row.
type StoredPrediction struct {
	ID             int64
	BatchID        string
	Source         string
	Row            int
	Name           string
	Year           int
	KmDriven       int
	Fuel           string
	SellerType     string
	Transmission   string
	Owner          string
	PredictedPrice float64
	CreatedAt      time.Time
}
