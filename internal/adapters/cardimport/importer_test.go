package cardimport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog-service/internal/schema"
)

const page = `<!doctype html>
<html><body>
<article class="video-card" data-category="automotive" data-make="BMW" data-price="1500" data-location="Cluj" data-fuel="diesel">
  <video src="/v/bmw.mp4" poster="/t/bmw.jpg"></video>
  <h3>BMW 320d</h3>
</article>
<article class="video-card" data-title="Audi A4" data-make="Audi" data-price="cheap" data-year="2018">
</article>
<article class="video-card" data-category="spaceships" data-title="Falcon"></article>
<article class="video-card" data-category="services" data-seller-type="company" data-price="30"></article>
<div class="not-a-card" data-make="Ford"></div>
</body></html>`

func newImporter(t *testing.T) *Importer {
	t.Helper()
	reg, err := schema.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	imp, err := NewImporter(reg, 0)
	if err != nil {
		t.Fatal(err)
	}
	return imp
}

func TestImportExtractsCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	listings, err := newImporter(t).Import(context.Background(), srv.URL+"/catalog.html", "automotive")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	// the unknown category and the card without a title are skipped
	if len(listings) != 2 {
		t.Fatalf("got %d listings: %+v", len(listings), listings)
	}

	bmw := listings[0]
	if bmw.Title != "BMW 320d" || bmw.Category != "automotive" {
		t.Fatalf("bmw = %+v", bmw)
	}
	if bmw.VideoURL != srv.URL+"/v/bmw.mp4" || bmw.ThumbURL != srv.URL+"/t/bmw.jpg" {
		t.Fatalf("urls = %q %q", bmw.VideoURL, bmw.ThumbURL)
	}
	if price, ok := bmw.NumberAttr("price"); !ok || price != 1500 {
		t.Fatalf("price = %v, %v", price, ok)
	}
	if fuel, ok := bmw.StringAttr("fuel"); !ok || fuel != "diesel" {
		t.Fatalf("fuel = %v, %v", fuel, ok)
	}

	audi := listings[1]
	if audi.Category != "automotive" || audi.Title != "Audi A4" {
		t.Fatalf("audi = %+v", audi)
	}
	if _, ok := audi.NumberAttr("price"); ok {
		t.Fatal("non numeric price must stay a string")
	}
	if year, ok := audi.NumberAttr("year"); !ok || year != 2018 {
		t.Fatalf("year = %v, %v", year, ok)
	}
}

func TestImportReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := newImporter(t).Import(context.Background(), srv.URL, "automotive"); err == nil {
		t.Fatal("expected error for a 404 page")
	}
}

func TestImportHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newImporter(t).Import(ctx, "http://127.0.0.1:1/", "automotive"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestTypedValue(t *testing.T) {
	if v := typedValue("range", "12.5"); v != 12.5 {
		t.Fatalf("range = %v", v)
	}
	if v := typedValue("scalar", "12.5"); v != "12.5" {
		t.Fatalf("scalar = %v", v)
	}
}
