package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/datakeep/ingest-core/internal/format"
	"github.com/datakeep/ingest-core/internal/metadata"
	"github.com/datakeep/ingest-core/internal/objectstore"
	"github.com/datakeep/ingest-core/internal/tabular"
)

const testBucket = "datakeep"

type testEnv struct {
	store   *metadata.MemoryStore
	objects *objectstore.LocalStore
	svc     *FileService
	scratch string
	objRoot string
	user    uuid.UUID
	project uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	scratch := t.TempDir()
	objRoot := t.TempDir()
	store := metadata.NewMemoryStore()
	objects := objectstore.NewLocalStore(objRoot)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		store:   store,
		objects: objects,
		svc:     NewFileService(store, objects, testBucket, scratch, logger),
		scratch: scratch,
		objRoot: objRoot,
		user:    uuid.New(),
		project: uuid.New(),
	}
}

// seedSource uploads raw bytes and registers a pending data source for them.
func (e *testEnv) seedSource(t *testing.T, srcType format.SourceType, data []byte) uuid.UUID {
	t.Helper()
	id := uuid.New()
	key := objectstore.JoinKey("uploads", id.String())
	if data != nil {
		if err := e.objects.PutObject(context.Background(), testBucket, key, data); err != nil {
			t.Fatalf("seed object: %v", err)
		}
	}
	e.store.AddDataSource(&metadata.DataSource{
		ID:        id,
		UserID:    e.user,
		ProjectID: e.project,
		Type:      srcType,
		Location:  key,
	})
	return id
}

func (e *testEnv) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.scratch)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir holds %d files after call", len(entries))
	}
}

func csvBytes(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("id,name\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "%d,row-%d\n", i, i)
	}
	return buf.Bytes()
}

func workbookBytes(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", order[0]); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for _, name := range order[1:] {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
	}
	for name, rows := range sheets {
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestPreviewTruncatesLongSheets(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(150))

	result, err := env.svc.Preview(context.Background(), PreviewRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(result.Sheets) != 1 {
		t.Fatalf("got %d sheets, want 1", len(result.Sheets))
	}
	if got := len(result.Sheets[0].Rows); got != PreviewRowLimit {
		t.Errorf("rows = %d, want %d", got, PreviewRowLimit)
	}
	if result.Sheets[0].Name != format.SingleSheet {
		t.Errorf("sheet name = %q", result.Sheets[0].Name)
	}
	env.assertScratchEmpty(t)
}

func TestPreviewShortSheetUnchanged(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(5))

	result, err := env.svc.Preview(context.Background(), PreviewRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got := len(result.Sheets[0].Rows); got != 5 {
		t.Errorf("rows = %d, want 5", got)
	}
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(3))

	if _, err := env.svc.Preview(context.Background(), PreviewRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
	}); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if status := env.store.SourceStatus(sourceID); status != metadata.StatusPending {
		t.Errorf("status = %q, want pending", status)
	}
	env.assertScratchEmpty(t)
}

func TestPreviewUnsupportedTypeBeforeDownload(t *testing.T) {
	env := newTestEnv(t)
	// No object is uploaded: dispatch must fail before any retrieval.
	sourceID := env.seedSource(t, format.SourceType("txt"), nil)

	_, err := env.svc.Preview(context.Background(), PreviewRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
	})
	if ErrorCode(err) != format.CodeUnsupportedType {
		t.Errorf("code = %q, want %q", ErrorCode(err), format.CodeUnsupportedType)
	}
	env.assertScratchEmpty(t)
}

func TestPreviewSourceNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Preview(context.Background(), PreviewRequest{
		UserID: env.user, ProjectID: env.project, SourceID: uuid.New(),
	})
	if ErrorCode(err) != metadata.CodeSourceNotFound {
		t.Errorf("code = %q, want %q", ErrorCode(err), metadata.CodeSourceNotFound)
	}
}

func TestImportCSV(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(10))

	result, err := env.svc.Import(context.Background(), ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{
			CreateNewDataset: true,
			DatasetName:      "sales",
			SelectedSheets:   tabular.SheetSelection{{Source: "file", Target: "orders"}},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Status != "success" {
		t.Errorf("status = %q", result.Status)
	}
	if result.Message != "Successfully imported 1 datasheets" {
		t.Errorf("message = %q", result.Message)
	}
	if _, ok := result.DatasheetIDs["orders"]; !ok || len(result.DatasheetIDs) != 1 {
		t.Errorf("datasheet ids = %v", result.DatasheetIDs)
	}
	if status := env.store.SourceStatus(sourceID); status != metadata.StatusReady {
		t.Errorf("status = %q, want ready", status)
	}

	artifactPath := filepath.Join(env.objRoot, testBucket, env.project.String(), result.DatasetID.String(), "orders.parquet")
	if _, err := os.Stat(artifactPath); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	// The persisted artifact round-trips through the parquet reader.
	sheets, err := (&format.ParquetReader{}).Read(artifactPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if sheets[0].Table.NumRows() != 10 || sheets[0].Table.NumColumns() != 2 {
		t.Errorf("artifact shape = %dx%d, want 10x2",
			sheets[0].Table.NumRows(), sheets[0].Table.NumColumns())
	}
	env.assertScratchEmpty(t)
}

func TestImportExcelPartialSelection(t *testing.T) {
	env := newTestEnv(t)
	rows := [][]any{{"h"}, {"v1"}, {"v2"}}
	data := workbookBytes(t,
		map[string][][]any{"Alpha": rows, "Beta": rows, "Gamma": rows},
		[]string{"Alpha", "Beta", "Gamma"},
	)
	sourceID := env.seedSource(t, format.TypeExcel, data)

	result, err := env.svc.Import(context.Background(), ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{
			CreateNewDataset: true,
			DatasetName:      "survey",
			SelectedSheets: tabular.SheetSelection{
				{Source: "Gamma", Target: "last"},
				{Source: "Alpha", Target: "first"},
			},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(result.DatasheetIDs) != 2 {
		t.Fatalf("datasheet ids = %v, want 2", result.DatasheetIDs)
	}
	for _, name := range []string{"last", "first"} {
		if _, ok := result.DatasheetIDs[name]; !ok {
			t.Errorf("missing datasheet %q", name)
		}
	}
	if env.store.DatasheetCount(result.DatasetID) != 2 {
		t.Errorf("datasheet rows = %d, want 2", env.store.DatasheetCount(result.DatasetID))
	}
	// Beta was not selected and must not be materialized.
	betaPath := filepath.Join(env.objRoot, testBucket, env.project.String(), result.DatasetID.String(), "Beta.parquet")
	if _, err := os.Stat(betaPath); !os.IsNotExist(err) {
		t.Errorf("unselected sheet was persisted")
	}
	env.assertScratchEmpty(t)
}

func TestImportIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(4))
	req := ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{
			CreateNewDataset: true,
			DatasetName:      "repeat",
			SelectedSheets:   tabular.SheetSelection{{Source: "file", Target: "data"}},
		},
	}

	first, err := env.svc.Import(context.Background(), req)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := env.svc.Import(context.Background(), req)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}

	if first.DatasetID != second.DatasetID {
		t.Errorf("dataset ids differ: %s vs %s", first.DatasetID, second.DatasetID)
	}
	if first.DatasheetIDs["data"] != second.DatasheetIDs["data"] {
		t.Errorf("datasheet ids differ across retries")
	}
	if env.store.DatasheetCount(first.DatasetID) != 1 {
		t.Errorf("datasheet rows = %d, want 1", env.store.DatasheetCount(first.DatasetID))
	}
}

func TestImportRequiresDatasetName(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(1))

	_, err := env.svc.Import(context.Background(), ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{CreateNewDataset: true},
	})
	if ErrorCode(err) != CodeBadSettings {
		t.Errorf("code = %q, want %q", ErrorCode(err), CodeBadSettings)
	}
}

func TestImportExistingDatasetMustExist(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(1))

	_, err := env.svc.Import(context.Background(), ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{
			CreateNewDataset: false,
			DatasetName:      "absent",
			SelectedSheets:   tabular.SheetSelection{{Source: "file", Target: "data"}},
		},
	})
	if ErrorCode(err) != metadata.CodeDatasetNotFound {
		t.Errorf("code = %q, want %q", ErrorCode(err), metadata.CodeDatasetNotFound)
	}
	if status := env.store.SourceStatus(sourceID); status != metadata.StatusPending {
		t.Errorf("status = %q, want pending", status)
	}
	env.assertScratchEmpty(t)
}

func TestImportEmptySelectionForSingleSheet(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, csvBytes(1))

	_, err := env.svc.Import(context.Background(), ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{CreateNewDataset: true, DatasetName: "d"},
	})
	if ErrorCode(err) != CodeNoTargetName {
		t.Errorf("code = %q, want %q", ErrorCode(err), CodeNoTargetName)
	}
	env.assertScratchEmpty(t)
}

func TestImportCleansUpAfterParseFailure(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, []byte("a,b\n\"broken\"x,2\n"))

	_, err := env.svc.Import(context.Background(), ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{
			CreateNewDataset: true,
			DatasetName:      "d",
			SelectedSheets:   tabular.SheetSelection{{Source: "file", Target: "data"}},
		},
	})
	if ErrorCode(err) != format.CodeParseFailed {
		t.Errorf("code = %q, want %q", ErrorCode(err), format.CodeParseFailed)
	}
	if status := env.store.SourceStatus(sourceID); status != metadata.StatusPending {
		t.Errorf("status = %q, want pending", status)
	}
	env.assertScratchEmpty(t)
}

func TestImportMissingUpload(t *testing.T) {
	env := newTestEnv(t)
	sourceID := env.seedSource(t, format.TypeCSV, nil)

	_, err := env.svc.Import(context.Background(), ImportRequest{
		UserID: env.user, ProjectID: env.project, SourceID: sourceID,
		Settings: ImportSettings{
			CreateNewDataset: true,
			DatasetName:      "d",
			SelectedSheets:   tabular.SheetSelection{{Source: "file", Target: "data"}},
		},
	})
	if ErrorCode(err) != objectstore.CodeObjectNotFound {
		t.Errorf("code = %q, want %q", ErrorCode(err), objectstore.CodeObjectNotFound)
	}
	env.assertScratchEmpty(t)
}
