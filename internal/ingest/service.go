// Package ingest owns the file-ingestion pipeline: data-source resolution,
// file retrieval, format dispatch, sheet mapping, artifact persistence,
// metadata recording, and guaranteed scratch-file cleanup.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/datakeep/ingest-core/internal/artifact"
	"github.com/datakeep/ingest-core/internal/format"
	"github.com/datakeep/ingest-core/internal/metadata"
	"github.com/datakeep/ingest-core/internal/objectstore"
	"github.com/datakeep/ingest-core/internal/tabular"
)

// PreviewRowLimit caps how many rows of each sheet a preview returns.
const PreviewRowLimit = 100

// FileService orchestrates preview and import for one call at a time. Its
// collaborators are injected once at construction; calls share no other
// state, so distinct sources can be served concurrently.
type FileService struct {
	store      metadata.Store
	objects    objectstore.ObjectStore
	artifacts  *artifact.Writer
	bucket     string
	scratchDir string
	logger     *slog.Logger
}

// NewFileService wires the pipeline. bucket holds both raw uploads and sheet
// artifacts; scratchDir receives one short-lived local file per call.
func NewFileService(store metadata.Store, objects objectstore.ObjectStore, bucket, scratchDir string, logger *slog.Logger) *FileService {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileService{
		store:      store,
		objects:    objects,
		artifacts:  artifact.NewWriter(objects, bucket),
		bucket:     bucket,
		scratchDir: scratchDir,
		logger:     logger,
	}
}

// PreviewRequest identifies the data source to preview.
type PreviewRequest struct {
	UserID    uuid.UUID
	ProjectID uuid.UUID
	SourceID  uuid.UUID
}

// SheetPreview is a truncated view of one parsed sheet.
type SheetPreview struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// PreviewResult holds sheet previews in the reader's order.
type PreviewResult struct {
	Sheets []SheetPreview
}

// ImportSettings mirrors the caller's settings_save payload.
type ImportSettings struct {
	CreateNewDataset bool                   `json:"createNewDataset"`
	DatasetName      string                 `json:"datasetName"`
	SelectedSheets   tabular.SheetSelection `json:"selectedSheets"`
}

// ImportRequest identifies the data source to import and how to persist it.
// Load is accepted for forward compatibility and currently unused.
type ImportRequest struct {
	UserID    uuid.UUID
	ProjectID uuid.UUID
	SourceID  uuid.UUID
	Load      json.RawMessage
	Settings  ImportSettings
}

// ImportResult reports a completed import.
type ImportResult struct {
	Status       string               `json:"status"`
	DatasetID    uuid.UUID            `json:"dataset_id"`
	DatasheetIDs map[string]uuid.UUID `json:"datasheet_ids"`
	Message      string               `json:"message"`
}

// Preview parses the source file and returns at most PreviewRowLimit rows per
// sheet. Nothing is written: no artifacts, no metadata, no status change.
func (s *FileService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	source, reader, err := s.resolveSource(ctx, req.UserID, req.ProjectID, req.SourceID)
	if err != nil {
		return nil, err
	}

	localPath, cleanup, err := s.download(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	sheets, err := reader.Read(localPath)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{Sheets: make([]SheetPreview, 0, len(sheets))}
	for _, sheet := range sheets {
		truncated := sheet.Table.Truncate(PreviewRowLimit)
		result.Sheets = append(result.Sheets, SheetPreview{
			Name:    sheet.Name,
			Headers: truncated.Headers,
			Rows:    truncated.Rows,
		})
	}
	return result, nil
}

// Import runs the full pipeline. Sheets are committed strictly in selection
// order, artifact first then metadata row, so a mid-import failure leaves
// earlier sheets fully committed, the failing sheet uncommitted, and the
// source status unchanged. Retries rely on the writer's deterministic
// overwrite paths and the recorder's upserts.
func (s *FileService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if req.Settings.DatasetName == "" {
		return nil, wrapError(CodeBadSettings, fmt.Errorf("datasetName is required"))
	}

	source, reader, err := s.resolveSource(ctx, req.UserID, req.ProjectID, req.SourceID)
	if err != nil {
		return nil, err
	}

	localPath, cleanup, err := s.download(ctx, source)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	sheets, err := reader.Read(localPath)
	if err != nil {
		return nil, err
	}

	mapped, err := MapSheets(source.Type, sheets, req.Settings.SelectedSheets)
	if err != nil {
		return nil, err
	}

	dataset, err := s.resolveDataset(ctx, req)
	if err != nil {
		return nil, err
	}

	sheetIDs := make(map[string]uuid.UUID, len(mapped))
	for _, sheet := range mapped {
		pointer, err := s.artifacts.Write(ctx, req.ProjectID, dataset.ID, sheet.Name, sheet.Table)
		if err != nil {
			return nil, err
		}
		id, err := s.store.UpsertDatasheet(ctx, &metadata.Datasheet{
			UserID:      req.UserID,
			DatasetID:   dataset.ID,
			Name:        sheet.Name,
			Location:    pointer,
			RowCount:    sheet.Table.NumRows(),
			ColumnCount: sheet.Table.NumColumns(),
		})
		if err != nil {
			return nil, err
		}
		sheetIDs[sheet.Name] = id
	}

	if err := s.store.MarkSourceReady(ctx, source.ID); err != nil {
		return nil, err
	}

	s.logger.Info("import complete",
		"source_id", source.ID,
		"dataset_id", dataset.ID,
		"dataset", dataset.Name,
		"sheets", len(sheetIDs),
	)

	return &ImportResult{
		Status:       "success",
		DatasetID:    dataset.ID,
		DatasheetIDs: sheetIDs,
		Message:      fmt.Sprintf("Successfully imported %d datasheets", len(sheetIDs)),
	}, nil
}

// resolveSource looks up the data source record and selects the reader for
// its declared type. Dispatch happens before any file I/O so an unsupported
// type never triggers a download.
func (s *FileService) resolveSource(ctx context.Context, userID, projectID, sourceID uuid.UUID) (*metadata.DataSource, format.Reader, error) {
	source, err := s.store.DataSource(ctx, userID, projectID, sourceID)
	if err != nil {
		return nil, nil, err
	}
	reader, err := format.ForType(source.Type)
	if err != nil {
		return nil, nil, err
	}
	return source, reader, nil
}

func (s *FileService) resolveDataset(ctx context.Context, req ImportRequest) (*metadata.Dataset, error) {
	if req.Settings.CreateNewDataset {
		return s.store.CreateOrGetDataset(ctx, req.UserID, req.ProjectID, req.Settings.DatasetName)
	}
	return s.store.DatasetByName(ctx, req.UserID, req.ProjectID, req.Settings.DatasetName)
}

// download copies the raw upload to a scoped scratch file. The returned
// cleanup must run on every exit path; it is the only resource the pipeline
// must release.
func (s *FileService) download(ctx context.Context, source *metadata.DataSource) (string, func(), error) {
	data, err := s.objects.GetObject(ctx, s.bucket, source.Location)
	if err != nil {
		return "", nil, err
	}

	path := filepath.Join(s.scratchDir, "ingest-"+uuid.NewString()+format.FileExt(source.Type))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		// The file may have partially landed; remove it before surfacing.
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("stage source file: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove scratch file", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}
