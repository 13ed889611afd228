package cardimport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// CardSelector matches the listing cards of a static catalog page.
const CardSelector = ".video-card"

// data-* attributes with a fixed meaning; every other data-* attribute is a facet.
var reservedData = map[string]bool{
	"id": true, "category": true, "title": true, "video": true, "thumb": true, "created": true,
}

// Importer extracts listings from static HTML pages where every listing is a
// .video-card element carrying its facets as data-* attributes:
//
//	<article class="video-card" data-category="automotive" data-make="BMW" data-price="1500">
type Importer struct {
	collector *colly.Collector
	schemas   port.SchemaProviderPort
}

func NewImporter(schemas port.SchemaProviderPort, delay time.Duration) (*Importer, error) {
	if schemas == nil {
		return nil, fmt.Errorf("card importer: schema provider cannot be nil")
	}
	c := colly.NewCollector(colly.AllowURLRevisit())
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, RandomDelay: delay}); err != nil {
		return nil, fmt.Errorf("card importer: failed to set limit rule: %w", err)
	}
	extensions.Referer(c)
	return &Importer{collector: c, schemas: schemas}, nil
}

// Import visits pageURL and returns the cards found on it. defaultCategory is
// used for cards without data-category. Cards of unknown categories are skipped.
func (i *Importer) Import(ctx context.Context, pageURL, defaultCategory string) ([]domain.Listing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "CardImporter",
		"url":       pageURL,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := i.collector.Clone()
	var listings []domain.Listing
	var responseErr error
	skipped := 0

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		logger.Debug("Fetching page", nil)
	})

	collector.OnHTML(CardSelector, func(e *colly.HTMLElement) {
		listing, err := i.cardToListing(e, defaultCategory)
		if err != nil {
			skipped++
			logger.Warn("Card skipped", port.Fields{"error": err.Error()})
			return
		}
		listings = append(listings, listing)
	})

	collector.OnError(func(r *colly.Response, err error) {
		responseErr = fmt.Errorf("card importer: request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("card importer: failed to visit %s: %w", pageURL, err)
	}
	collector.Wait()
	if responseErr != nil {
		logger.Error("Import failed", responseErr, nil)
		return nil, responseErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Page imported", port.Fields{"cards": len(listings), "skipped": skipped})
	return listings, nil
}

func (i *Importer) cardToListing(e *colly.HTMLElement, defaultCategory string) (domain.Listing, error) {
	category := strings.TrimSpace(e.Attr("data-category"))
	if category == "" {
		category = defaultCategory
	}
	decls, err := i.schemas.Declarations(category)
	if err != nil {
		return domain.Listing{}, err
	}
	kinds := make(map[string]domain.FacetKind, len(decls))
	for _, d := range decls {
		kinds[d.Key] = d.Kind
	}

	l := domain.Listing{
		Category:   category,
		Title:      firstNonEmpty(e.Attr("data-title"), e.ChildText("h3"), e.ChildText("h2")),
		VideoURL:   absolute(e, firstNonEmpty(e.Attr("data-video"), e.ChildAttr("video", "src"))),
		ThumbURL:   absolute(e, firstNonEmpty(e.Attr("data-thumb"), e.ChildAttr("video", "poster"), e.ChildAttr("img", "src"))),
		Attributes: make(map[string]any),
	}
	if created := e.Attr("data-created"); created != "" {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			l.CreatedAt = t.UTC()
		}
	}

	for _, node := range e.DOM.Nodes {
		for _, a := range node.Attr {
			key, ok := strings.CutPrefix(a.Key, "data-")
			if !ok || reservedData[key] {
				continue
			}
			key = strings.ReplaceAll(key, "-", "_")
			value := strings.TrimSpace(a.Val)
			if value == "" {
				continue
			}
			l.Attributes[key] = typedValue(kinds[key], value)
		}
	}
	if l.Title == "" {
		return domain.Listing{}, fmt.Errorf("card in %s has no title", category)
	}
	return l, nil
}

// typedValue turns values of range facets into numbers. Every other value
// stays a string, so "1000" never matches a range unless the facet is one.
func typedValue(kind domain.FacetKind, value string) any {
	if kind != domain.FacetRange {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return f
}

func absolute(e *colly.HTMLElement, u string) string {
	if u == "" {
		return ""
	}
	return e.Request.AbsoluteURL(u)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
