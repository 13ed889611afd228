package page

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
)

var decls = []domain.FacetDecl{
	{Key: "make", Kind: domain.FacetMultiSelect},
	{Key: "price", Kind: domain.FacetRange},
	{Key: "location", Kind: domain.FacetScalar},
	{Key: "title", Kind: domain.FacetText},
}

func catalog() []domain.Listing {
	return []domain.Listing{
		{Title: "Audi A4", Attributes: map[string]any{"make": "Audi", "price": 1000, "location": "Cluj"}},
		{Title: "BMW 320", Attributes: map[string]any{"make": "BMW", "price": 2000, "location": "Bucuresti"}},
		{Title: "Ford Focus", Attributes: map[string]any{"make": "Ford", "price": 2001, "location": "Cluj"}},
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type warnLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Info(string, port.Fields)  {}
func (l *warnLogger) Debug(string, port.Fields) {}
func (l *warnLogger) Warn(msg string, _ port.Fields) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
func (l *warnLogger) Error(string, error, port.Fields)         {}
func (l *warnLogger) WithFields(port.Fields) port.LoggerPort { return l }

func newController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController(uuid.New(), "automotive", decls, catalog(), nil, nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func titles(ls []domain.Listing) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Title
	}
	return out
}

func TestControllerInitialView(t *testing.T) {
	c := newController(t)
	v := c.View(0, 0)
	if v.Total != 3 || v.Matched != 3 || v.ActiveCount != 0 || v.NoResults || v.Revision != 1 {
		t.Fatalf("view = %+v", v)
	}
}

func TestControllerRecomputesOnNotification(t *testing.T) {
	c := newController(t)
	if err := c.SetFilter("price", domain.NewRange(domain.Bound(1000), domain.Bound(2000))); err != nil {
		t.Fatal(err)
	}
	v := c.View(0, 0)
	if got := titles(v.Visible); len(got) != 2 || got[0] != "Audi A4" || got[1] != "BMW 320" {
		t.Fatalf("visible = %v", got)
	}
	if v.ActiveCount != 1 || v.Revision != 2 {
		t.Fatalf("view = %+v", v)
	}

	if err := c.SetFilter("make", domain.NewMultiSelect("Ford")); err != nil {
		t.Fatal(err)
	}
	v = c.View(0, 0)
	if !v.NoResults || v.Matched != 0 || v.ActiveCount != 2 {
		t.Fatalf("expected explicit no-results view, got %+v", v)
	}

	c.ResetFilters()
	if v = c.View(0, 0); v.Matched != 3 || v.ActiveCount != 0 {
		t.Fatalf("after reset = %+v", v)
	}
}

func TestControllerRejectedKeyKeepsRevision(t *testing.T) {
	c := newController(t)
	err := c.SetFilter("doesNotExist", domain.NewScalar("x"))
	if !errors.Is(err, domain.ErrUnknownFacet) {
		t.Fatalf("err = %v", err)
	}
	if v := c.View(0, 0); v.Revision != 1 {
		t.Fatalf("rejected key recomputed the view: %+v", v)
	}
}

func TestControllerPagination(t *testing.T) {
	c := newController(t)
	tests := []struct {
		limit, offset int
		want          []string
	}{
		{2, 0, []string{"Audi A4", "BMW 320"}},
		{2, 2, []string{"Ford Focus"}},
		{2, 10, []string{}},
		{0, 1, []string{"BMW 320", "Ford Focus"}},
		{5, -1, []string{"Audi A4", "BMW 320", "Ford Focus"}},
	}
	for _, tt := range tests {
		v := c.View(tt.limit, tt.offset)
		got := titles(v.Visible)
		if len(got) != len(tt.want) {
			t.Fatalf("View(%d,%d) = %v, want %v", tt.limit, tt.offset, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("View(%d,%d) = %v, want %v", tt.limit, tt.offset, got, tt.want)
			}
		}
		if v.Matched != 3 {
			t.Fatalf("matched must not depend on pagination: %d", v.Matched)
		}
	}
}

func TestControllerReplaceListingsKeepsFilters(t *testing.T) {
	c := newController(t)
	_ = c.SetFilter("location", domain.NewScalar("Cluj"))
	c.ReplaceListings(append(catalog(), domain.Listing{Title: "Dacia", Attributes: map[string]any{"location": "Cluj"}}))
	v := c.View(0, 0)
	if v.Total != 4 || v.Matched != 3 {
		t.Fatalf("view = %+v", v)
	}
}

func TestControllerCloseStopsRecompute(t *testing.T) {
	c, err := NewController(uuid.New(), "automotive", decls, catalog(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	_ = c.SetFilter("make", domain.NewMultiSelect("BMW"))
	if v := c.View(0, 0); v.Revision != 1 {
		t.Fatalf("closed page still recomputes: %+v", v)
	}
}

func TestEncodeAndReplay(t *testing.T) {
	src := newController(t)
	_ = src.SetFilter("make", domain.NewMultiSelect("BMW", "Audi"))
	_ = src.SetFilter("price", domain.NewRange(nil, domain.Bound(2000)))
	_ = src.SetFilter("location", domain.NewScalar("Cluj"))
	_ = src.SetFilter("title", domain.Text{Query: "a4"})

	raw, err := EncodeState(src.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if string(decoded["make"]) != `["Audi","BMW"]` || string(decoded["price"]) != `{"min":null,"max":2000}` {
		t.Fatalf("encoded = %s", raw)
	}

	dst := newController(t)
	n, err := Replay(dst, raw, nil)
	if err != nil || n != 4 {
		t.Fatalf("Replay = %d, %v", n, err)
	}
	srcView, dstView := src.View(0, 0), dst.View(0, 0)
	if srcView.Matched != dstView.Matched || dstView.Matched != 1 || dstView.ActiveCount != 4 {
		t.Fatalf("replayed view = %+v, source view = %+v", dstView, srcView)
	}
}

func TestEncodeSkipsInactiveFacets(t *testing.T) {
	c := newController(t)
	_ = c.SetFilter("make", domain.NewMultiSelect())
	raw, err := EncodeState(c.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "{}" {
		t.Fatalf("encoded = %s", raw)
	}
}

func TestReplaySkipsUndeclaredFacets(t *testing.T) {
	c := newController(t)
	logger := &warnLogger{}
	n, err := Replay(c, json.RawMessage(`{"colour":["red"],"location":"Cluj"}`), logger)
	if err != nil || n != 1 {
		t.Fatalf("Replay = %d, %v", n, err)
	}
	if len(logger.warns) != 1 {
		t.Fatalf("warnings = %v", logger.warns)
	}
}

func TestReplayRejectsMalformedPayload(t *testing.T) {
	c := newController(t)
	for _, body := range []string{`[]`, `{"make":"BMW"}`, `{"price":{"from":1}}`} {
		if _, err := Replay(c, json.RawMessage(body), nil); !errors.Is(err, domain.ErrMalformedFilterValue) {
			t.Errorf("%s: err = %v", body, err)
		}
	}
	if c.View(0, 0).ActiveCount != 0 {
		t.Fatal("malformed payload changed the page")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	reg := NewRegistry(nil, clock.Now)

	a, err := reg.Open("automotive", decls, catalog())
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)
	b, _ := reg.Open("automotive", decls, catalog())
	_, _ = reg.Open("fashion", []domain.FacetDecl{{Key: "size", Kind: domain.FacetMultiSelect}}, nil)

	if got, err := reg.Get(a.ID()); err != nil || got != a {
		t.Fatalf("Get = %v, %v", got, err)
	}
	pages := reg.ForCategory("automotive")
	if len(pages) != 2 || pages[0] != a || pages[1] != b {
		t.Fatalf("ForCategory = %v", pages)
	}

	if err := reg.Close(a.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Get(a.ID()); !errors.Is(err, domain.ErrPageNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := reg.Close(a.ID()); !errors.Is(err, domain.ErrPageNotFound) {
		t.Fatalf("second close err = %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("len = %d", reg.Len())
	}
}

func TestRegistryOpenRejectsBadDeclarations(t *testing.T) {
	reg := NewRegistry(nil, nil)
	if _, err := reg.Open("x", nil, nil); !errors.Is(err, domain.ErrInvalidFacetDecl) {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistryEvictIdle(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	reg := NewRegistry(nil, clock.Now)
	stale, _ := reg.Open("automotive", decls, catalog())
	clock.Advance(20 * time.Minute)
	fresh, _ := reg.Open("automotive", decls, catalog())
	clock.Advance(15 * time.Minute)

	if n := reg.EvictIdle(30 * time.Minute); n != 1 {
		t.Fatalf("evicted = %d", n)
	}
	if _, err := reg.Get(stale.ID()); !errors.Is(err, domain.ErrPageNotFound) {
		t.Fatal("stale page still registered")
	}
	if _, err := reg.Get(fresh.ID()); err != nil {
		t.Fatal("fresh page evicted")
	}
}
