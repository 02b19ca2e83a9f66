// Package metadata records ingestion outcomes in the relational store:
// data source lookups, dataset resolution, and datasheet upserts.
package metadata

import (
	"context"

	"github.com/google/uuid"

	"github.com/datakeep/ingest-core/internal/format"
)

// Data source lifecycle states.
const (
	StatusPending = "pending"
	StatusReady   = "ready"
	StatusError   = "error"
)

// DataSource describes one uploaded raw file. It is read-only input to the
// pipeline except for the status flip at the end of a successful import.
type DataSource struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProjectID uuid.UUID
	Type      format.SourceType
	Location  string // object key of the raw upload
	Status    string
}

// Dataset is a named container of datasheets, unique per (user, project, name).
type Dataset struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProjectID uuid.UUID
	Name      string
}

// Datasheet is one persisted tabular artifact, unique per (user, dataset, name).
// RowCount and ColumnCount are advisory.
type Datasheet struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DatasetID   uuid.UUID
	Name        string
	Location    string // artifact storage pointer
	RowCount    int
	ColumnCount int
}

// Store is the record store the pipeline depends on. Both upsert operations
// are idempotent; uniqueness convergence under concurrent creators is
// delegated to the backing store's constraints.
type Store interface {
	// DataSource fetches a source owned by the given user and project.
	DataSource(ctx context.Context, userID, projectID, sourceID uuid.UUID) (*DataSource, error)

	// CreateOrGetDataset resolves a dataset by its (user, project, name)
	// uniqueness key, creating it when absent. Always returns a valid row.
	CreateOrGetDataset(ctx context.Context, userID, projectID uuid.UUID, name string) (*Dataset, error)

	// DatasetByName resolves an existing dataset or reports not-found.
	DatasetByName(ctx context.Context, userID, projectID uuid.UUID, name string) (*Dataset, error)

	// UpsertDatasheet creates or updates the sheet row keyed by
	// (user, dataset, name) and returns its id either way.
	UpsertDatasheet(ctx context.Context, sheet *Datasheet) (uuid.UUID, error)

	// MarkSourceReady transitions the data source status to ready.
	MarkSourceReady(ctx context.Context, sourceID uuid.UUID) error
}
