package metadata

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store in memory. It mimics the Postgres uniqueness
// behaviour for tests and local development.
type MemoryStore struct {
	mu         sync.Mutex
	sources    map[uuid.UUID]*DataSource
	datasets   []*Dataset
	datasheets []*Datasheet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sources: make(map[uuid.UUID]*DataSource)}
}

// AddDataSource seeds a source record, as the upload path would.
func (s *MemoryStore) AddDataSource(ds *DataSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ds
	if cp.Status == "" {
		cp.Status = StatusPending
	}
	s.sources[cp.ID] = &cp
}

func (s *MemoryStore) DataSource(ctx context.Context, userID, projectID, sourceID uuid.UUID) (*DataSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.sources[sourceID]
	if !ok || ds.UserID != userID || ds.ProjectID != projectID {
		return nil, sourceNotFound(sourceID)
	}
	cp := *ds
	return &cp, nil
}

func (s *MemoryStore) CreateOrGetDataset(ctx context.Context, userID, projectID uuid.UUID, name string) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.findDataset(userID, projectID, name); d != nil {
		cp := *d
		return &cp, nil
	}
	d := &Dataset{ID: uuid.New(), UserID: userID, ProjectID: projectID, Name: name}
	s.datasets = append(s.datasets, d)
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) DatasetByName(ctx context.Context, userID, projectID uuid.UUID, name string) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.findDataset(userID, projectID, name); d != nil {
		cp := *d
		return &cp, nil
	}
	return nil, datasetNotFound(name)
}

func (s *MemoryStore) UpsertDatasheet(ctx context.Context, sheet *Datasheet) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.datasheets {
		if existing.UserID == sheet.UserID && existing.DatasetID == sheet.DatasetID && existing.Name == sheet.Name {
			existing.Location = sheet.Location
			existing.RowCount = sheet.RowCount
			existing.ColumnCount = sheet.ColumnCount
			return existing.ID, nil
		}
	}
	cp := *sheet
	cp.ID = uuid.New()
	s.datasheets = append(s.datasheets, &cp)
	return cp.ID, nil
}

func (s *MemoryStore) MarkSourceReady(ctx context.Context, sourceID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.sources[sourceID]
	if !ok {
		return sourceNotFound(sourceID)
	}
	ds.Status = StatusReady
	return nil
}

// SourceStatus reports the current status of a seeded source.
func (s *MemoryStore) SourceStatus(sourceID uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.sources[sourceID]; ok {
		return ds.Status
	}
	return ""
}

// DatasheetCount reports how many datasheet rows exist for a dataset.
func (s *MemoryStore) DatasheetCount(datasetID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sheet := range s.datasheets {
		if sheet.DatasetID == datasetID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) findDataset(userID, projectID uuid.UUID, name string) *Dataset {
	for _, d := range s.datasets {
		if d.UserID == userID && d.ProjectID == projectID && d.Name == name {
			return d
		}
	}
	return nil
}
