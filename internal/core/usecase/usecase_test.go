package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/page"
	"catalog-service/internal/schema"

	"github.com/google/uuid"
)

type fakeListings struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]domain.Listing
	listErr error
}

func newFakeListings(ls ...domain.Listing) *fakeListings {
	f := &fakeListings{byID: make(map[uuid.UUID]domain.Listing)}
	for _, l := range ls {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		f.byID[l.ID] = l
	}
	return f
}

func (f *fakeListings) Save(_ context.Context, l domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[l.ID] = l
	return nil
}

func (f *fakeListings) BatchSave(ctx context.Context, ls []domain.Listing) error {
	for _, l := range ls {
		_ = f.Save(ctx, l)
	}
	return nil
}

func (f *fakeListings) GetByID(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return &l, nil
}

func (f *fakeListings) ListByCategory(_ context.Context, category string) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Listing
	for _, l := range f.byID {
		if l.Category == category {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

type fakeSaved struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.SavedFilter
}

func newFakeSaved() *fakeSaved { return &fakeSaved{items: make(map[uuid.UUID]domain.SavedFilter)} }

func (f *fakeSaved) Save(_ context.Context, s domain.SavedFilter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[s.ID] = s
	return nil
}

func (f *fakeSaved) GetByID(_ context.Context, id uuid.UUID) (*domain.SavedFilter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, domain.ErrSavedFilterNotFound
	}
	return &s, nil
}

func (f *fakeSaved) ListByCategory(_ context.Context, category string) ([]domain.SavedFilter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SavedFilter
	for _, s := range f.items {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	changed []domain.FiltersChangedEvent
	saved   []domain.FiltersSavedEvent
}

func (p *fakePublisher) PublishFiltersChanged(_ context.Context, e domain.FiltersChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return nil
}

func (p *fakePublisher) PublishFiltersSaved(_ context.Context, e domain.FiltersSavedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, e)
	return nil
}

type fixture struct {
	schemas   *schema.Registry
	listings  *fakeListings
	saved     *fakeSaved
	publisher *fakePublisher
	pages     *page.Registry

	open    *OpenPageUseCase
	set     *SetFilterUseCase
	reset   *ResetFiltersUseCase
	view    *GetPageViewUseCase
	save    *SaveFiltersUseCase
	ingest  *IngestListingUseCase
	options *GetFilterOptionsUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := schema.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		schemas: reg,
		listings: newFakeListings(
			domain.Listing{Category: "automotive", Title: "Audi A4", Attributes: map[string]any{"make": "Audi", "price": 1000, "location": "Cluj"}},
			domain.Listing{Category: "automotive", Title: "BMW 320", Attributes: map[string]any{"make": "BMW", "price": 2000, "location": "Bucuresti"}},
			domain.Listing{Category: "automotive", Title: "Ford Focus", Attributes: map[string]any{"make": "Ford", "price": 2001, "location": "Cluj"}},
			domain.Listing{Category: "fashion", Title: "Coat", Attributes: map[string]any{"brand": "Zara"}},
		),
		saved:     newFakeSaved(),
		publisher: &fakePublisher{},
		pages:     page.NewRegistry(nil, nil),
	}
	f.open = NewOpenPageUseCase(reg, f.listings, f.saved, f.pages, 24)
	f.set = NewSetFilterUseCase(reg, f.pages, f.publisher, 24)
	f.reset = NewResetFiltersUseCase(f.pages, f.publisher, 24)
	f.view = NewGetPageViewUseCase(f.pages)
	f.save = NewSaveFiltersUseCase(f.pages, f.saved, f.publisher)
	f.ingest = NewIngestListingUseCase(reg, f.listings, f.pages)
	f.options = NewGetFilterOptionsUseCase(reg, f.listings)
	return f
}

func (f *fixture) openAutomotive(t *testing.T) uuid.UUID {
	t.Helper()
	snap, err := f.open.Execute(context.Background(), "automotive", nil)
	if err != nil {
		t.Fatalf("OpenPage: %v", err)
	}
	return snap.Info.ID
}

func TestOpenPage(t *testing.T) {
	f := newFixture(t)
	snap, err := f.open.Execute(context.Background(), "automotive", nil)
	if err != nil {
		t.Fatal(err)
	}
	if snap.View.Total != 3 || snap.View.Matched != 3 || snap.State.Len() != 8 {
		t.Fatalf("snapshot = %+v", snap.View)
	}
	if _, err := f.open.Execute(context.Background(), "boats", nil); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetFilterPublishesEvent(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)

	snap, err := f.set.Execute(context.Background(), id, "make", json.RawMessage(`{"values":["Audi","BMW"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if snap.View.Matched != 2 || snap.View.ActiveCount != 1 {
		t.Fatalf("view = %+v", snap.View)
	}
	if len(f.publisher.changed) != 1 {
		t.Fatalf("events = %d", len(f.publisher.changed))
	}
	ev := f.publisher.changed[0]
	if ev.Facet != "make" || ev.PageID != id || string(ev.Active) != `{"make":["Audi","BMW"]}` || ev.Matched != 2 {
		t.Fatalf("event = %+v (%s)", ev, ev.Active)
	}
}

func TestSetFilterRejections(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	ctx := context.Background()

	if _, err := f.set.Execute(ctx, id, "doesNotExist", json.RawMessage(`{"value":"x"}`)); !errors.Is(err, domain.ErrUnknownFacet) {
		t.Fatalf("unknown facet err = %v", err)
	}
	if _, err := f.set.Execute(ctx, id, "price", json.RawMessage(`{"values":["1"]}`)); !errors.Is(err, domain.ErrMalformedFilterValue) {
		t.Fatalf("malformed err = %v", err)
	}
	if _, err := f.set.Execute(ctx, uuid.New(), "make", nil); !errors.Is(err, domain.ErrPageNotFound) {
		t.Fatalf("unknown page err = %v", err)
	}
	if len(f.publisher.changed) != 0 {
		t.Fatalf("rejected mutations published %d events", len(f.publisher.changed))
	}
	snap, _ := f.view.Execute(ctx, id, 0, 0)
	if snap.View.Revision != 1 {
		t.Fatalf("rejected mutations recomputed the view: %+v", snap.View)
	}
}

func TestSetFilterForm(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	form := url.Values{"location": {"Cluj"}, "price_max": {"2000"}}
	snap, err := f.set.ExecuteForm(context.Background(), id, form)
	if err != nil {
		t.Fatal(err)
	}
	if snap.View.Matched != 1 || snap.View.Visible[0].Title != "Audi A4" || snap.View.ActiveCount != 2 {
		t.Fatalf("view = %+v", snap.View)
	}

	if _, err := f.set.ExecuteForm(context.Background(), id, url.Values{"price_min": {"abc"}}); !errors.Is(err, domain.ErrMalformedFilterValue) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetFilterFormRejectsNonFiniteBounds(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	ctx := context.Background()

	form := url.Values{"price_min": {"NaN"}, "price_max": {"Inf"}}
	if _, err := f.set.ExecuteForm(ctx, id, form); !errors.Is(err, domain.ErrMalformedFilterValue) {
		t.Fatalf("err = %v", err)
	}
	snap, _ := f.view.Execute(ctx, id, 0, 0)
	if snap.View.ActiveCount != 0 || snap.View.Matched != 3 {
		t.Fatalf("view = %+v", snap.View)
	}
	if _, err := f.save.Execute(ctx, id, "after bad form"); err != nil {
		t.Fatalf("save after rejected form: %v", err)
	}
}

func TestResetFilters(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	ctx := context.Background()
	_, _ = f.set.Execute(ctx, id, "location", json.RawMessage(`{"value":"Cluj"}`))

	snap, err := f.reset.Execute(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if snap.View.Matched != 3 || len(snap.State.Active()) != 0 {
		t.Fatalf("view = %+v", snap.View)
	}
	last := f.publisher.changed[len(f.publisher.changed)-1]
	if !last.Reset || string(last.Active) != "{}" {
		t.Fatalf("event = %+v", last)
	}
}

func TestSaveAndReplayFilters(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	ctx := context.Background()
	_, _ = f.set.Execute(ctx, id, "price", json.RawMessage(`{"min":1000,"max":2000}`))
	_, _ = f.set.Execute(ctx, id, "location", json.RawMessage(`{"value":"Cluj"}`))

	saved, err := f.save.Execute(ctx, id, "  cheap in Cluj ")
	if err != nil {
		t.Fatal(err)
	}
	if saved.Name != "cheap in Cluj" || saved.Category != "automotive" {
		t.Fatalf("saved = %+v", saved)
	}
	if len(f.publisher.saved) != 1 || f.publisher.saved[0].SavedFilterID != saved.ID {
		t.Fatalf("saved events = %+v", f.publisher.saved)
	}

	snap, err := f.open.Execute(ctx, "automotive", &saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Info.ID == id || snap.View.Matched != 1 || snap.View.ActiveCount != 2 {
		t.Fatalf("replayed view = %+v", snap.View)
	}

	if _, err := f.open.Execute(ctx, "fashion", &saved.ID); !errors.Is(err, domain.ErrSavedFilterNotFound) {
		t.Fatalf("cross-category replay err = %v", err)
	}

	list, err := NewListSavedFiltersUseCase(f.schemas, f.saved).Execute(ctx, "automotive")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, %v", list, err)
	}
}

func TestSaveFiltersDefaultName(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	saved, err := f.save.Execute(context.Background(), id, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(saved.Name, "automotive ") {
		t.Fatalf("name = %q", saved.Name)
	}
}

func TestGetFilterOptions(t *testing.T) {
	f := newFixture(t)
	s, err := f.options.Execute(context.Background(), "automotive")
	if err != nil {
		t.Fatal(err)
	}
	loc, _ := s.Facet("location")
	if len(loc.Options) != 2 || loc.Options[0].Value != "Bucuresti" || loc.Options[1].Count != 2 {
		t.Fatalf("location options = %+v", loc.Options)
	}
	mk, _ := s.Facet("make")
	counts := map[string]int{}
	for _, o := range mk.Options {
		counts[o.Value] = o.Count
	}
	if counts["Audi"] != 1 || counts["BMW"] != 1 || counts["Toyota"] != 0 {
		t.Fatalf("make counts = %v", counts)
	}

	f.listings.listErr = errors.New("db down")
	s, err = f.options.Execute(context.Background(), "automotive")
	if err != nil {
		t.Fatalf("listing failure must not fail options: %v", err)
	}
	if loc, _ := s.Facet("location"); len(loc.Options) != 0 {
		t.Fatalf("unexpected options %+v", loc.Options)
	}
}

func TestIngestListingRefreshesOpenPages(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	ctx := context.Background()
	_, _ = f.set.Execute(ctx, id, "location", json.RawMessage(`{"value":"Cluj"}`))

	stored, err := f.ingest.Execute(ctx, domain.Listing{
		Category:   "automotive",
		Title:      " Dacia Logan ",
		Attributes: map[string]any{"make": "Dacia", "location": "Cluj", "lat": 46.7712, "lng": 23.6236},
	})
	if err != nil {
		t.Fatal(err)
	}
	if stored.ID == uuid.Nil || stored.Title != "Dacia Logan" || stored.CreatedAt.IsZero() {
		t.Fatalf("stored = %+v", stored)
	}
	if cell, _ := stored.Attributes["geo_cell"].(string); len(cell) != GeoCellPrecision {
		t.Fatalf("geo_cell = %v", stored.Attributes["geo_cell"])
	}

	snap, _ := f.view.Execute(ctx, id, 0, 0)
	if snap.View.Total != 4 || snap.View.Matched != 3 {
		t.Fatalf("page not refreshed: %+v", snap.View)
	}
}

func TestIngestListingRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.ingest.Execute(ctx, domain.Listing{Category: "boats", Title: "Yacht"}); !errors.Is(err, domain.ErrInvalidListing) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.ingest.Execute(ctx, domain.Listing{Category: "automotive"}); !errors.Is(err, domain.ErrInvalidListing) {
		t.Fatalf("err = %v", err)
	}

	n, err := f.ingest.ExecuteBatch(ctx, []domain.Listing{
		{Category: "sports", Title: "Bike", Attributes: map[string]any{"type": "bikes"}},
		{Category: "boats", Title: "Yacht"},
	})
	if err != nil || n != 1 {
		t.Fatalf("batch = %d, %v", n, err)
	}
}

func TestGeoCell(t *testing.T) {
	tests := []struct {
		attrs map[string]any
		ok    bool
	}{
		{map[string]any{"lat": 44.4268, "lng": 26.1025}, true},
		{map[string]any{"lat": 44.4268}, false},
		{map[string]any{"lat": "44.4", "lng": 26.1}, false},
		{map[string]any{"lat": 95.0, "lng": 26.1}, false},
	}
	for _, tt := range tests {
		cell, ok := GeoCell(domain.Listing{Attributes: tt.attrs})
		if ok != tt.ok || (ok && len(cell) != GeoCellPrecision) {
			t.Errorf("GeoCell(%v) = %q, %v", tt.attrs, cell, ok)
		}
	}
}

func TestListCategoriesAndSchema(t *testing.T) {
	f := newFixture(t)
	cats, err := NewListCategoriesUseCase(f.schemas).Execute(context.Background())
	if err != nil || len(cats) != 8 {
		t.Fatalf("categories = %v, %v", cats, err)
	}
	if _, err := NewGetFilterSchemaUseCase(f.schemas).Execute(context.Background(), "nope"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Fatalf("err = %v", err)
	}
}

func TestClosePage(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	uc := NewClosePageUseCase(f.pages)
	if err := uc.Execute(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	if _, err := f.view.Execute(context.Background(), id, 0, 0); !errors.Is(err, domain.ErrPageNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestGetActiveFilters(t *testing.T) {
	f := newFixture(t)
	id := f.openAutomotive(t)
	ctx := context.Background()
	uc := NewGetActiveFiltersUseCase(f.pages)

	_, _ = f.set.Execute(ctx, id, "make", json.RawMessage(`{"values":["BMW"]}`))
	active, err := uc.Execute(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || !active["make"].(domain.MultiSelect).Contains("BMW") {
		t.Fatalf("active = %v", active)
	}
	if _, err := uc.Execute(ctx, uuid.New()); !errors.Is(err, domain.ErrPageNotFound) {
		t.Fatalf("err = %v", err)
	}
}
