package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

type savedFilterRecord struct {
	ID        uuid.UUID       `json:"id"`
	Category  string          `json:"category"`
	Name      string          `json:"name"`
	Values    json.RawMessage `json:"values"`
	CreatedAt time.Time       `json:"created_at"`
}

type fileContent struct {
	SavedFilters []savedFilterRecord `json:"saved_filters"`
}

// SavedFilterStore keeps saved filters in one JSON file. The whole file is
// rewritten on every Save via a temporary file and rename.
type SavedFilterStore struct {
	path string

	mu      sync.RWMutex
	filters map[uuid.UUID]domain.SavedFilter
}

var _ port.SavedFilterRepositoryPort = (*SavedFilterStore)(nil)

// NewSavedFilterStore loads path. A missing or empty file is an empty store.
func NewSavedFilterStore(path string) (*SavedFilterStore, error) {
	s := &SavedFilterStore{path: path, filters: make(map[uuid.UUID]domain.SavedFilter)}
	content, err := load(path)
	if err != nil {
		return nil, err
	}
	for _, r := range content.SavedFilters {
		s.filters[r.ID] = domain.SavedFilter{
			ID: r.ID, Category: r.Category, Name: r.Name, Values: r.Values, CreatedAt: r.CreatedAt,
		}
	}
	return s, nil
}

func load(path string) (fileContent, error) {
	var c fileContent
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, fmt.Errorf("open saved filters: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c, fmt.Errorf("read saved filters: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode saved filters: %w", err)
	}
	return c, nil
}

func (s *SavedFilterStore) Save(_ context.Context, filter domain.SavedFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.filters[filter.ID]
	s.filters[filter.ID] = filter
	if err := s.flush(); err != nil {
		if existed {
			s.filters[filter.ID] = prev
		} else {
			delete(s.filters, filter.ID)
		}
		return err
	}
	return nil
}

func (s *SavedFilterStore) GetByID(_ context.Context, id uuid.UUID) (*domain.SavedFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.filters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSavedFilterNotFound, id)
	}
	return &f, nil
}

// ListByCategory returns the saved filters of category, newest first.
func (s *SavedFilterStore) ListByCategory(_ context.Context, category string) ([]domain.SavedFilter, error) {
	s.mu.RLock()
	out := make([]domain.SavedFilter, 0)
	for _, f := range s.filters {
		if f.Category == category {
			out = append(out, f)
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(fs []domain.SavedFilter) {
	sort.Slice(fs, func(i, j int) bool {
		if !fs[i].CreatedAt.Equal(fs[j].CreatedAt) {
			return fs[i].CreatedAt.After(fs[j].CreatedAt)
		}
		return fs[i].ID.String() < fs[j].ID.String()
	})
}

// flush must be called with mu held.
func (s *SavedFilterStore) flush() error {
	all := make([]domain.SavedFilter, 0, len(s.filters))
	for _, f := range s.filters {
		all = append(all, f)
	}
	sortNewestFirst(all)
	content := fileContent{SavedFilters: make([]savedFilterRecord, len(all))}
	for i, f := range all {
		content.SavedFilters[i] = savedFilterRecord{
			ID: f.ID, Category: f.Category, Name: f.Name, Values: f.Values, CreatedAt: f.CreatedAt.UTC(),
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&content); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode saved filters: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
