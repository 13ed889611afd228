package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"catalog-service/internal/adapters/filestore"
	"catalog-service/internal/adapters/memory"
	"catalog-service/internal/core/page"
	"catalog-service/internal/core/port"
	"catalog-service/internal/core/usecase"
	"catalog-service/internal/renderer"
	"catalog-service/internal/schema"
)

type nopLogger struct{}

func (nopLogger) Info(string, port.Fields)                {}
func (nopLogger) Warn(string, port.Fields)                {}
func (nopLogger) Error(string, error, port.Fields)        {}
func (nopLogger) Debug(string, port.Fields)               {}
func (l nopLogger) WithFields(port.Fields) port.LoggerPort { return l }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	schemas, err := schema.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	listings := memory.NewListingRepository()
	seed, err := memory.SeedCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if err := listings.BatchSave(ctx, seed); err != nil {
		t.Fatal(err)
	}
	saved, err := filestore.NewSavedFilterStore(filepath.Join(t.TempDir(), "saved.json"))
	if err != nil {
		t.Fatal(err)
	}
	pages := page.NewRegistry(nil, nil)
	t.Cleanup(pages.CloseAll)
	const pageSize = 24

	openPage := usecase.NewOpenPageUseCase(schemas, listings, saved, pages, pageSize)
	setFilter := usecase.NewSetFilterUseCase(schemas, pages, nil, pageSize)
	resetFilters := usecase.NewResetFiltersUseCase(pages, nil, pageSize)
	getOptions := usecase.NewGetFilterOptionsUseCase(schemas, listings)

	catalogHandlers := NewCatalogHandler(
		usecase.NewListCategoriesUseCase(schemas),
		usecase.NewGetFilterSchemaUseCase(schemas),
		getOptions,
		usecase.NewListSavedFiltersUseCase(schemas, saved),
		usecase.NewIngestListingUseCase(schemas, listings, pages),
	)
	pageHandlers := NewPageHandler(
		openPage, setFilter, resetFilters,
		usecase.NewGetPageViewUseCase(pages),
		usecase.NewGetActiveFiltersUseCase(pages),
		usecase.NewClosePageUseCase(pages),
		usecase.NewSaveFiltersUseCase(pages, saved, nil),
		pageSize,
	)
	htmlHandlers := NewHTMLHandler(openPage, setFilter, resetFilters, getOptions, renderer.New())

	srv := httptest.NewServer(NewRouter([]string{"http://localhost:5173"}, catalogHandlers, pageHandlers, htmlHandlers, nopLogger{}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decodePage(t *testing.T, data []byte) PageResponse {
	t.Helper()
	var p PageResponse
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode page: %v (%s)", err, data)
	}
	return p
}

func openAutomotive(t *testing.T, srv *httptest.Server) PageResponse {
	t.Helper()
	resp, data := do(t, http.MethodPost, srv.URL+"/api/v1/pages", `{"category":"automotive"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open page: %d %s", resp.StatusCode, data)
	}
	return decodePage(t, data)
}

func TestHealthAndCategories(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Trace-ID") == "" {
		t.Fatalf("health: %d, trace %q", resp.StatusCode, resp.Header.Get("X-Trace-ID"))
	}

	resp, data := do(t, http.MethodGet, srv.URL+"/api/v1/categories", "")
	var categories []CategoryResponse
	if err := json.Unmarshal(data, &categories); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("categories: %d %s", resp.StatusCode, data)
	}
	if len(categories) != 8 {
		t.Fatalf("got %d categories", len(categories))
	}
}

func TestSchemaAndOptions(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		path   string
		status int
	}{
		{"/api/v1/categories/automotive/schema", http.StatusOK},
		{"/api/v1/categories/real-estate/options", http.StatusOK},
		{"/api/v1/categories/spaceships/schema", http.StatusNotFound},
		{"/api/v1/categories/spaceships/options", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, data := do(t, http.MethodGet, srv.URL+tt.path, "")
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status %d, want %d (%s)", tt.path, resp.StatusCode, tt.status, data)
		}
	}

	_, data := do(t, http.MethodGet, srv.URL+"/api/v1/categories/real-estate/options", "")
	if !strings.Contains(string(data), `"key":"geo_cell"`) {
		t.Fatalf("real-estate options lack geo_cell: %s", data)
	}
}

func TestPageFilterLifecycle(t *testing.T) {
	srv := newTestServer(t)
	p := openAutomotive(t, srv)
	if p.Total != 6 || p.Matched != 6 || p.ActiveCount != 0 || len(p.Listings) != 6 {
		t.Fatalf("opened page = %+v", p)
	}
	base := srv.URL + "/api/v1/pages/" + p.PageID

	resp, data := do(t, http.MethodPut, base+"/filters/make", `{"values":["BMW","Audi"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set make: %d %s", resp.StatusCode, data)
	}
	if got := decodePage(t, data); got.Matched != 2 || got.ActiveCount != 1 || got.Revision != 2 {
		t.Fatalf("after make = %+v", got)
	}

	resp, data = do(t, http.MethodPut, base+"/filters/price", `{"min":15000,"max":null}`)
	if got := decodePage(t, data); resp.StatusCode != http.StatusOK || got.Matched != 1 || got.Listings[0].Title != "BMW 320d walkaround" {
		t.Fatalf("after price: %d %+v", resp.StatusCode, got)
	}

	_, data = do(t, http.MethodGet, base+"/active-filters", "")
	var active ActiveFiltersResponse
	if err := json.Unmarshal(data, &active); err != nil {
		t.Fatal(err)
	}
	if active.ActiveCount != 2 {
		t.Fatalf("active = %+v", active)
	}
	if mk, _ := json.Marshal(active.Active["make"]); string(mk) != `{"values":["Audi","BMW"]}` {
		t.Fatalf("make = %s", mk)
	}

	_, data = do(t, http.MethodPut, base+"/filters/make", `{"values":["Tesla"]}`)
	if got := decodePage(t, data); !got.NoResults || got.Matched != 0 || len(got.Listings) != 0 {
		t.Fatalf("expected explicit no results, got %+v", got)
	}

	resp, data = do(t, http.MethodDelete, base+"/filters", "")
	if got := decodePage(t, data); resp.StatusCode != http.StatusOK || got.Matched != 6 || got.ActiveCount != 0 {
		t.Fatalf("after reset: %d %+v", resp.StatusCode, got)
	}

	resp, data = do(t, http.MethodGet, base+"?limit=2&offset=1", "")
	if got := decodePage(t, data); resp.StatusCode != http.StatusOK || len(got.Listings) != 2 || got.Matched != 6 {
		t.Fatalf("paged view: %d %+v", resp.StatusCode, got)
	}

	resp, _ = do(t, http.MethodDelete, base, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close: %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodGet, base, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("closed page: %d", resp.StatusCode)
	}
}

func TestSetFilterErrors(t *testing.T) {
	srv := newTestServer(t)
	p := openAutomotive(t, srv)
	base := srv.URL + "/api/v1/pages/" + p.PageID

	tests := []struct {
		name   string
		method string
		url    string
		body   string
		status int
	}{
		{"undeclared facet", http.MethodPut, base + "/filters/colour", `{"values":["red"]}`, http.StatusUnprocessableEntity},
		{"wrong shape", http.MethodPut, base + "/filters/price", `{"values":["1"]}`, http.StatusBadRequest},
		{"not json", http.MethodPut, base + "/filters/make", `{`, http.StatusBadRequest},
		{"bad page id", http.MethodGet, srv.URL + "/api/v1/pages/nope", "", http.StatusBadRequest},
		{"unknown page", http.MethodPut, srv.URL + "/api/v1/pages/2d1c3c1e-8a3b-4c8e-9a59-3f0e7a1b2c3d/filters/make", `null`, http.StatusNotFound},
		{"bad limit", http.MethodGet, base + "?limit=-1", "", http.StatusBadRequest},
		{"open without category", http.MethodPost, srv.URL + "/api/v1/pages", `{}`, http.StatusBadRequest},
		{"open unknown category", http.MethodPost, srv.URL + "/api/v1/pages", `{"category":"spaceships"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, data := do(t, tt.method, tt.url, tt.body)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status %d, want %d (%s)", tt.name, resp.StatusCode, tt.status, data)
		}
	}

	_, data := do(t, http.MethodGet, base, "")
	if got := decodePage(t, data); got.Revision != 1 || got.ActiveCount != 0 {
		t.Fatalf("rejected requests changed the page: %+v", got)
	}
}

func TestSaveAndReplayFilters(t *testing.T) {
	srv := newTestServer(t)
	p := openAutomotive(t, srv)
	base := srv.URL + "/api/v1/pages/" + p.PageID
	do(t, http.MethodPut, base+"/filters/fuel", `{"value":"diesel"}`)

	resp, data := do(t, http.MethodPost, base+"/saved-filters", `{"name":"Diesel cars"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save: %d %s", resp.StatusCode, data)
	}
	var saved SavedFilterResponse
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Name != "Diesel cars" || string(saved.Values) != `{"fuel":"diesel"}` {
		t.Fatalf("saved = %+v (%s)", saved, saved.Values)
	}

	_, data = do(t, http.MethodGet, srv.URL+"/api/v1/categories/automotive/saved-filters", "")
	var list []SavedFilterResponse
	if err := json.Unmarshal(data, &list); err != nil || len(list) != 1 {
		t.Fatalf("list = %s", data)
	}

	resp, data = do(t, http.MethodPost, srv.URL+"/api/v1/pages", `{"category":"automotive","saved_filter_id":"`+saved.ID+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open with saved filter: %d %s", resp.StatusCode, data)
	}
	if got := decodePage(t, data); got.ActiveCount != 1 || got.Matched != 3 {
		t.Fatalf("replayed page = %+v", got)
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/pages", `{"category":"fashion","saved_filter_id":"`+saved.ID+`"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("saved filter of another category: %d", resp.StatusCode)
	}
}

func TestIngestListingRefreshesOpenPages(t *testing.T) {
	srv := newTestServer(t)
	p := openAutomotive(t, srv)

	resp, data := do(t, http.MethodPost, srv.URL+"/api/v1/listings",
		`{"category":"automotive","title":"Dacia Logan","attributes":{"make":"Dacia","price":7000}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("ingest: %d %s", resp.StatusCode, data)
	}
	_, data = do(t, http.MethodGet, srv.URL+"/api/v1/pages/"+p.PageID, "")
	if got := decodePage(t, data); got.Total != 7 {
		t.Fatalf("open page not refreshed: %+v", got)
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/listings", `{"category":"automotive","attributes":{}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("listing without title: %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/listings", `{"category":"spaceships","title":"x","attributes":{}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("listing of unknown category: %d", resp.StatusCode)
	}
}

var formAction = regexp.MustCompile(`action="(/pages/[0-9a-f-]+/filters)"`)

func TestHTMLPages(t *testing.T) {
	srv := newTestServer(t)

	resp, data := do(t, http.MethodGet, srv.URL+"/pages/automotive", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("html page: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	body := string(data)
	if strings.Count(body, `class="video-card"`) != 6 {
		t.Fatalf("expected 6 cards")
	}
	m := formAction.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no form action in page")
	}

	form := url.Values{"make": {"Tesla"}}
	resp, err := http.Post(srv.URL+m[1], "application/x-www-form-urlencoded", bytes.NewBufferString(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(data), "No listings match the selected filters.") {
		t.Fatalf("expected no-results block")
	}

	reset := url.Values{"make": {"Tesla"}, "reset": {"1"}}
	resp, err = http.Post(srv.URL+m[1], "application/x-www-form-urlencoded", bytes.NewBufferString(reset.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	data, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.Count(string(data), `class="video-card"`) != 6 {
		t.Fatalf("reset did not restore all cards")
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/pages/spaceships", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown category page: %d", resp.StatusCode)
	}
}
