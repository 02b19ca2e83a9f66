package metadata

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datakeep/ingest-core/internal/format"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DataSource(ctx context.Context, userID, projectID, sourceID uuid.UUID) (*DataSource, error) {
	const stmt = `
SELECT id, user_id, project_id, file_type, location, status
FROM data_sources
WHERE id = $1 AND user_id = $2 AND project_id = $3`

	ds := &DataSource{}
	var fileType string
	err := s.db.QueryRow(ctx, stmt, sourceID, userID, projectID).
		Scan(&ds.ID, &ds.UserID, &ds.ProjectID, &fileType, &ds.Location, &ds.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sourceNotFound(sourceID)
		}
		return nil, wrapError(CodeMetadataFailed, true, err)
	}
	ds.Type = format.SourceType(fileType)
	return ds, nil
}

// CreateOrGetDataset upserts on the (user_id, project_id, name) unique key.
// The no-op DO UPDATE lets RETURNING yield the surviving row's id for both
// the insert and the conflict path, so concurrent creators converge.
func (s *PostgresStore) CreateOrGetDataset(ctx context.Context, userID, projectID uuid.UUID, name string) (*Dataset, error) {
	const stmt = `
INSERT INTO datasets (id, user_id, project_id, name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, project_id, name) DO UPDATE SET updated_at = now()
RETURNING id`

	d := &Dataset{UserID: userID, ProjectID: projectID, Name: name}
	err := s.db.QueryRow(ctx, stmt, uuid.New(), userID, projectID, name).Scan(&d.ID)
	if err != nil {
		return nil, wrapError(CodeMetadataFailed, true, err)
	}
	return d, nil
}

func (s *PostgresStore) DatasetByName(ctx context.Context, userID, projectID uuid.UUID, name string) (*Dataset, error) {
	const stmt = `
SELECT id, user_id, project_id, name
FROM datasets
WHERE user_id = $1 AND project_id = $2 AND name = $3`

	d := &Dataset{}
	err := s.db.QueryRow(ctx, stmt, userID, projectID, name).
		Scan(&d.ID, &d.UserID, &d.ProjectID, &d.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, datasetNotFound(name)
		}
		return nil, wrapError(CodeMetadataFailed, true, err)
	}
	return d, nil
}

func (s *PostgresStore) UpsertDatasheet(ctx context.Context, sheet *Datasheet) (uuid.UUID, error) {
	const stmt = `
INSERT INTO datasheets (id, user_id, dataset_id, name, location, row_count, column_count)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, dataset_id, name) DO UPDATE SET
  location = EXCLUDED.location,
  row_count = EXCLUDED.row_count,
  column_count = EXCLUDED.column_count,
  updated_at = now()
RETURNING id`

	var id uuid.UUID
	err := s.db.QueryRow(ctx, stmt,
		uuid.New(), sheet.UserID, sheet.DatasetID, sheet.Name,
		sheet.Location, sheet.RowCount, sheet.ColumnCount,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, wrapError(CodeMetadataFailed, true, err)
	}
	return id, nil
}

func (s *PostgresStore) MarkSourceReady(ctx context.Context, sourceID uuid.UUID) error {
	const stmt = `UPDATE data_sources SET status = $2, updated_at = now() WHERE id = $1`

	tag, err := s.db.Exec(ctx, stmt, sourceID, StatusReady)
	if err != nil {
		return wrapError(CodeMetadataFailed, true, err)
	}
	if tag.RowsAffected() == 0 {
		return sourceNotFound(sourceID)
	}
	return nil
}
