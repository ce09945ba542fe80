package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore is a PersistenceStore backed by a Postgres table, grounded
// on the teacher's internal/platform/database.Open (sql.Open("postgres",
// dsn) + PingContext) and the JDBCTable's sqlx row-scanning style.
type PostgresStore struct {
	db *sqlx.DB
}

const createCheckpointsTable = `
CREATE TABLE IF NOT EXISTS eventflux_checkpoints (
	app_id   TEXT NOT NULL,
	revision TEXT NOT NULL,
	payload  BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (app_id, revision)
)`

// OpenPostgresStore opens a Postgres connection and ensures the checkpoints
// table exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createCheckpointsTable); err != nil {
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(appID, revision string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO eventflux_checkpoints (app_id, revision, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (app_id, revision) DO UPDATE SET payload = EXCLUDED.payload`,
		appID, revision, data)
	if err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", appID, revision, err)
	}
	return nil
}

func (s *PostgresStore) Load(appID, revision string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `
		SELECT payload FROM eventflux_checkpoints WHERE app_id = $1 AND revision = $2`,
		appID, revision)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load checkpoint %s/%s: %w", appID, revision, err)
	}
	return payload, true, nil
}

func (s *PostgresStore) GetLastRevision(appID string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var revision string
	err := s.db.GetContext(ctx, &revision, `
		SELECT revision FROM eventflux_checkpoints WHERE app_id = $1
		ORDER BY revision DESC LIMIT 1`, appID)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get last revision for %s: %w", appID, err)
	}
	return revision, true, nil
}

func (s *PostgresStore) ClearAllRevisions(appID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `DELETE FROM eventflux_checkpoints WHERE app_id = $1`, appID)
	if err != nil {
		return fmt.Errorf("clear revisions for %s: %w", appID, err)
	}
	return nil
}
