package storage

import "carprice/models"

// PredictionWriter is the interface any prediction persistence backend must
// satisfy. WritePredictions returns the id assigned to the batch.
type PredictionWriter interface {
	WritePredictions(source string, t *models.PredictedTable) (string, error)
	Close() error
}

// PredictionStore is a PredictionWriter that can read a batch back.
type PredictionStore interface {
	PredictionWriter
	FetchBatch(batchID string) ([]*models.StoredPrediction, error)
}

// TableWriter exports a predicted table.
type TableWriter interface {
	WriteTable(t *models.PredictedTable) error
	Close() error
}
