package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"carprice/models"
	"carprice/utils"
)

const (
	insertBatchSize = 50
	insertColumns   = 11
)

// PostgresStore persists predictions to PostgreSQL, one batch per table or
// request.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

var _ PredictionStore = (*PostgresStore)(nil)

// NewPostgresStore opens a connection to PostgreSQL, pings it with the given
// retry policy, runs schema migrations and returns a ready-to-use store.
func NewPostgresStore(dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db, logger: retry.Logger}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			id              BIGSERIAL     PRIMARY KEY,
			batch_id        UUID          NOT NULL,
			source          TEXT          NOT NULL DEFAULT '',
			row_index       INTEGER       NOT NULL,
			name            TEXT          NOT NULL,
			year            INTEGER       NOT NULL,
			km_driven       INTEGER       NOT NULL,
			fuel            VARCHAR(32)   NOT NULL,
			seller_type     VARCHAR(32)   NOT NULL,
			transmission    VARCHAR(32)   NOT NULL,
			owner           VARCHAR(64)   NOT NULL,
			predicted_price NUMERIC(14,2) NOT NULL,
			created_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_predictions_batch ON predictions(batch_id);
		CREATE INDEX IF NOT EXISTS idx_predictions_price ON predictions(predicted_price);
	`)
	return err
}

// WritePredictions inserts every predicted row of t under a fresh batch id
// in a single transaction and returns the id.
func (ps *PostgresStore) WritePredictions(source string, t *models.PredictedTable) (string, error) {
	batchID := uuid.New()
	if len(t.Predictions) == 0 {
		return batchID.String(), nil
	}

	tx, err := ps.db.Begin()
	if err != nil {
		return "", fmt.Errorf("postgres: begin: %w", err)
	}
	for i := 0; i < len(t.Predictions); i += insertBatchSize {
		end := min(i+insertBatchSize, len(t.Predictions))
		query, args := buildInsert(batchID, source, t, i, end)
		if _, err := tx.Exec(query, args...); err != nil {
			_ = tx.Rollback()
			return "", fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("postgres: commit: %w", err)
	}

	ps.logger.Info("[postgres] Stored %d predictions (batch %s)", len(t.Predictions), batchID)
	return batchID.String(), nil
}

// buildInsert renders a multi-row INSERT for predictions [from, to) of t.
func buildInsert(batchID uuid.UUID, source string, t *models.PredictedTable, from, to int) (string, []any) {
	valueStrings := make([]string, 0, to-from)
	valueArgs := make([]any, 0, (to-from)*insertColumns)

	for idx := from; idx < to; idx++ {
		base := (idx - from) * insertColumns
		placeholders := make([]string, insertColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		rec := t.Records[idx]
		row := idx
		if idx < len(t.SourceRows) {
			row = t.SourceRows[idx]
		}
		valueArgs = append(valueArgs,
			batchID.String(), source, row, rec.Name, rec.Year, rec.KmDriven,
			rec.Fuel, rec.SellerType, rec.Transmission, rec.Owner, t.Predictions[idx])
	}

	query := fmt.Sprintf(`
		INSERT INTO predictions (batch_id, source, row_index, name, year, km_driven,
			fuel, seller_type, transmission, owner, predicted_price)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// FetchBatch retrieves the stored predictions of one batch in row order.
func (ps *PostgresStore) FetchBatch(batchID string) ([]*models.StoredPrediction, error) {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid batch id %q: %w", batchID, err)
	}

	rows, err := ps.db.Query(`
		SELECT id, batch_id, source, row_index, name, year, km_driven,
			fuel, seller_type, transmission, owner, predicted_price, created_at
		FROM predictions
		WHERE batch_id = $1
		ORDER BY row_index
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch batch: %w", err)
	}
	defer rows.Close()

	var out []*models.StoredPrediction
	for rows.Next() {
		p := &models.StoredPrediction{}
		if err := rows.Scan(
			&p.ID, &p.BatchID, &p.Source, &p.Row, &p.Name, &p.Year, &p.KmDriven,
			&p.Fuel, &p.SellerType, &p.Transmission, &p.Owner, &p.PredictedPrice, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
