package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Dataset is one uploaded csv.
type Dataset struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
	Table      Table     `json:"-"`
}

// Summary describes a dataset without its rows.
type Summary struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
	Columns    []string  `json:"columns"`
	RowCount   int       `json:"rowCount"`
}

// Summary returns the dataset metadata.
func (d Dataset) Summary() Summary {
	return Summary{
		Id:         d.Id,
		Name:       d.Name,
		UploadedAt: d.UploadedAt,
		Columns:    d.Table.Columns,
		RowCount:   len(d.Table.Rows),
	}
}

// Store keeps uploaded datasets in memory.
type Store interface {
	Put(name string, table Table) Dataset
	Get(id string) (Dataset, bool)
	List() []Dataset
}

type _Store struct {
	mu       sync.RWMutex
	limit    int
	now      func() time.Time
	datasets map[string]Dataset
	order    []string // oldest first
}

// NewStore returns a store holding at most limit datasets.  Adding past the limit evicts the
// oldest upload.
func NewStore(limit int, now func() time.Time) Store {
	if limit < 1 {
		limit = 1
	}
	if now == nil {
		now = time.Now
	}
	return &_Store{
		limit:    limit,
		now:      now,
		datasets: make(map[string]Dataset),
		order:    []string{},
	}
}

func (s *_Store) Put(name string, table Table) Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	dataset := Dataset{
		Id:         uuid.NewString(),
		Name:       name,
		UploadedAt: s.now().UTC(),
		Table:      table,
	}
	s.datasets[dataset.Id] = dataset
	s.order = append(s.order, dataset.Id)
	for len(s.order) > s.limit {
		delete(s.datasets, s.order[0])
		s.order = s.order[1:]
	}
	return dataset
}

func (s *_Store) Get(id string) (Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dataset, ok := s.datasets[id]
	return dataset, ok
}

// List returns the datasets newest first.
func (s *_Store) List() []Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	datasets := make([]Dataset, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		datasets = append(datasets, s.datasets[s.order[i]])
	}
	return datasets
}
