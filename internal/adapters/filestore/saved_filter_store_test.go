package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"catalog-service/internal/core/domain"

	"github.com/google/uuid"
)

func savedFilter(category, name string, at time.Time) domain.SavedFilter {
	return domain.SavedFilter{
		ID:        uuid.New(),
		Category:  category,
		Name:      name,
		Values:    json.RawMessage(`{"make":["BMW"]}`),
		CreatedAt: at,
	}
}

func TestSavedFilterStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "saved.json")
	store, err := NewSavedFilterStore(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := savedFilter("automotive", "older", base)
	b := savedFilter("automotive", "newer", base.Add(time.Minute))
	c := savedFilter("fashion", "other", base)
	for _, f := range []domain.SavedFilter{a, b, c} {
		if err := store.Save(ctx, f); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	reopened, err := NewSavedFilterStore(path)
	if err != nil {
		t.Fatal(err)
	}
	list, err := reopened.ListByCategory(ctx, "automotive")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "newer" || list[1].Name != "older" {
		t.Fatalf("list = %+v", list)
	}
	got, err := reopened.GetByID(ctx, c.ID)
	if err != nil || got.Name != "other" || string(got.Values) != `{"make":["BMW"]}` {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
}

func TestSavedFilterStoreMissingAndEmptyFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSavedFilterStore(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetByID(context.Background(), uuid.New()); !errors.Is(err, domain.ErrSavedFilterNotFound) {
		t.Fatalf("err = %v", err)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSavedFilterStore(empty); err != nil {
		t.Fatalf("empty file: %v", err)
	}
}

func TestSavedFilterStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSavedFilterStore(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSavedFilterStoreRollsBackOnWriteFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store, err := NewSavedFilterStore(filepath.Join(dir, "saved.json"))
	if err != nil {
		t.Fatal(err)
	}
	// the store's directory is now a regular file, so the write fails
	if err := os.WriteFile(dir, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	f := savedFilter("sports", "bikes", time.Now())
	if err := store.Save(context.Background(), f); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := store.GetByID(context.Background(), f.ID); !errors.Is(err, domain.ErrSavedFilterNotFound) {
		t.Fatal("failed save must not stay in memory")
	}
}
