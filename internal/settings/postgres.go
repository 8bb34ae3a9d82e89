// internal/settings/postgres.go
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"afterevent-mailer/internal/common/errors"
	"afterevent-mailer/internal/common/logger"
	"afterevent-mailer/internal/models"
)

// recordID is the fixed key of the singleton settings row.
const recordID = "afterevent"

const (
	loadQuery = `SELECT record FROM dispatch_settings WHERE id = $1`
	saveQuery = `
		INSERT INTO dispatch_settings (id, record) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record`
)

// PostgresStore keeps the settings record as a JSON document in a single
// keyed row.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "settings"}),
	}
}

// Load returns the stored settings record. A missing row yields the
// documented defaults; a malformed or schema-invalid record is logged and
// also yields defaults, so a bad write can never stop the daily run.
func (s *PostgresStore) Load(ctx context.Context) (models.Settings, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, loadQuery, recordID).Scan(&raw)
	if stderrors.Is(err, sql.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.DefaultSettings(), errors.NewSettingsLoadFailedError(err)
	}

	if err := validateRecord(raw); err != nil {
		s.logger.Warn("stored settings record is invalid, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return models.DefaultSettings(), nil
	}

	var rec models.Settings
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("stored settings record is unreadable, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return models.DefaultSettings(), nil
	}

	return rec, nil
}

// Save validates and upserts the settings record.
func (s *PostgresStore) Save(ctx context.Context, rec models.Settings) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.NewSettingsInvalidError(err.Error())
	}
	if err := validateRecord(raw); err != nil {
		return errors.NewSettingsInvalidError(err.Error())
	}

	if _, err := s.db.ExecContext(ctx, saveQuery, recordID, raw); err != nil {
		return errors.NewSettingsLoadFailedError(err)
	}
	return nil
}
