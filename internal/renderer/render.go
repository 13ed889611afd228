package renderer

import (
	"fmt"
	"html/template"
	"io"
	"strconv"

	"catalog-service/internal/core/domain"
)

// PageData is everything needed to draw one filter page.
type PageData struct {
	Schema *domain.FilterSchema
	State  *domain.FilterState
	View   domain.PageView
	// FormAction is where the filter form posts to.
	FormAction string
}

// Renderer draws server-side filter pages.
type Renderer struct {
	tpl *template.Template
}

// New parses the page template.
func New() *Renderer {
	tpl := template.Must(template.New("page").Parse(pageTpl))
	return &Renderer{tpl: tpl}
}

// RenderPage writes the HTML page for data.
func (r *Renderer) RenderPage(w io.Writer, data PageData) error {
	if data.Schema == nil || data.State == nil {
		return fmt.Errorf("render page: schema and state are required")
	}
	model := pageModel{
		Title:       data.Schema.Title,
		Category:    data.Schema.Category,
		FormAction:  data.FormAction,
		Controls:    buildControls(data.Schema, data.State),
		ActiveCount: data.View.ActiveCount,
		Matched:     data.View.Matched,
		Total:       data.View.Total,
		NoResults:   data.View.NoResults,
	}
	for _, l := range data.View.Visible {
		model.Cards = append(model.Cards, buildCard(data.Schema, l))
	}
	return r.tpl.Execute(w, model)
}

type pageModel struct {
	Title       string
	Category    string
	FormAction  string
	Controls    []control
	Cards       []card
	ActiveCount int
	Matched     int
	Total       int
	NoResults   bool
}

type control struct {
	Key         string
	Label       string
	Kind        string
	Unit        string
	Placeholder string
	Options     []option

	// range inputs
	MinValue string
	MaxValue string
	Lower    string
	Upper    string
	Step     string

	// scalar and text inputs
	Value string
}

type option struct {
	Value    string
	Label    string
	Count    int
	Selected bool
}

type card struct {
	Title    string
	VideoURL string
	ThumbURL string
	Facts    []fact
}

type fact struct {
	Label string
	Value string
}

func buildControls(schema *domain.FilterSchema, state *domain.FilterState) []control {
	controls := make([]control, 0, len(schema.Facets))
	for _, f := range schema.Facets {
		c := control{
			Key:         f.Key,
			Label:       f.Label,
			Kind:        string(f.Kind),
			Unit:        f.Unit,
			Placeholder: f.Placeholder,
			Lower:       formatBound(f.Min),
			Upper:       formatBound(f.Max),
			Step:        formatBound(f.Step),
		}
		current, _ := state.Get(f.Key)
		for _, o := range f.Options {
			opt := option{Value: o.Value, Label: o.Label, Count: o.Count}
			switch v := current.(type) {
			case domain.MultiSelect:
				opt.Selected = v.Contains(o.Value)
			case domain.Scalar:
				opt.Selected = v.Value != nil && *v.Value == o.Value
			}
			c.Options = append(c.Options, opt)
		}
		switch v := current.(type) {
		case domain.Range:
			c.MinValue = formatBound(v.Min)
			c.MaxValue = formatBound(v.Max)
		case domain.Scalar:
			if v.Value != nil {
				c.Value = *v.Value
			}
		case domain.Text:
			c.Value = v.Query
		}
		controls = append(controls, c)
	}
	return controls
}

// buildCard lists the schema facets the listing carries, in schema order.
func buildCard(schema *domain.FilterSchema, l domain.Listing) card {
	c := card{Title: l.Title, VideoURL: l.VideoURL, ThumbURL: l.ThumbURL}
	for _, f := range schema.Facets {
		var value string
		if n, ok := l.NumberAttr(f.Key); ok {
			value = formatNumber(n)
			if f.Unit != "" {
				value += " " + f.Unit
			}
		} else if s, ok := l.StringAttr(f.Key); ok && s != "" {
			value = s
			if o, found := findOption(f.Options, s); found {
				value = o.Label
			}
		} else {
			continue
		}
		c.Facts = append(c.Facts, fact{Label: f.Label, Value: value})
	}
	return c
}

func findOption(options []domain.FacetOption, value string) (domain.FacetOption, bool) {
	for _, o := range options {
		if o.Value == value {
			return o, true
		}
	}
	return domain.FacetOption{}, false
}

func formatBound(b *float64) string {
	if b == nil {
		return ""
	}
	return formatNumber(*b)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

const pageTpl = `<!doctype html>
<html lang="en">
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,-apple-system,Segoe UI,Roboto;max-width:1200px;margin:0 auto;padding:1rem}
.layout{display:grid;grid-template-columns:260px 1fr;gap:20px;align-items:start}
fieldset{border:1px solid #ddd;border-radius:6px;margin:0 0 12px;padding:8px}
legend{font-weight:600}
.badge{display:inline-block;min-width:1.4em;padding:0 6px;border-radius:10px;background:#2563eb;color:#fff;text-align:center}
.cards{display:grid;grid-template-columns:repeat(auto-fill,minmax(220px,1fr));gap:14px}
.video-card{border:1px solid #e5e5e5;border-radius:8px;overflow:hidden}
.video-card video{width:100%;display:block;background:#000}
.video-card h3{font-size:1rem;margin:8px}
.video-card dl{margin:0 8px 8px;font-size:.85rem;display:grid;grid-template-columns:auto 1fr;gap:2px 8px}
.no-results{padding:2rem;text-align:center;color:#666;border:1px dashed #ccc;border-radius:8px}
</style>
<header>
  <h1>{{.Title}}</h1>
  <p>Active filters <span class="badge" data-active-count="{{.ActiveCount}}">{{.ActiveCount}}</span>
     showing {{.Matched}} of {{.Total}}</p>
</header>
<div class="layout">
<form method="post" action="{{.FormAction}}" class="filters" data-category="{{.Category}}">
{{range .Controls}}
  <fieldset data-facet="{{.Key}}" data-kind="{{.Kind}}">
    <legend>{{.Label}}{{if .Unit}} ({{.Unit}}){{end}}</legend>
    {{if eq .Kind "multi_select"}}
      {{$key := .Key}}
      {{range .Options}}
      <label><input type="checkbox" name="{{$key}}" value="{{.Value}}"{{if .Selected}} checked{{end}} /> {{.Label}}{{if .Count}} ({{.Count}}){{end}}</label><br />
      {{end}}
    {{else if eq .Kind "range"}}
      <input type="number" name="{{.Key}}_min" value="{{.MinValue}}" placeholder="{{if .Lower}}{{.Lower}}{{else}}min{{end}}"{{if .Lower}} min="{{.Lower}}"{{end}}{{if .Upper}} max="{{.Upper}}"{{end}}{{if .Step}} step="{{.Step}}"{{end}} />
      <input type="number" name="{{.Key}}_max" value="{{.MaxValue}}" placeholder="{{if .Upper}}{{.Upper}}{{else}}max{{end}}"{{if .Lower}} min="{{.Lower}}"{{end}}{{if .Upper}} max="{{.Upper}}"{{end}}{{if .Step}} step="{{.Step}}"{{end}} />
    {{else if eq .Kind "scalar"}}
      <select name="{{.Key}}">
        <option value="">Any</option>
        {{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}{{if .Count}} ({{.Count}}){{end}}</option>
        {{end}}
      </select>
    {{else}}
      <input type="search" name="{{.Key}}" value="{{.Value}}" placeholder="{{.Placeholder}}" />
    {{end}}
  </fieldset>
{{end}}
  <button type="submit">Apply</button>
  <button type="submit" name="reset" value="1">Reset</button>
</form>
<main>
{{if .NoResults}}
  <div class="no-results">No listings match the selected filters.</div>
{{else}}
  <div class="cards">
  {{range .Cards}}
    <article class="video-card">
      {{if .VideoURL}}<video src="{{.VideoURL}}"{{if .ThumbURL}} poster="{{.ThumbURL}}"{{end}} preload="none" muted playsinline></video>{{end}}
      <h3>{{.Title}}</h3>
      {{if .Facts}}<dl>{{range .Facts}}<dt>{{.Label}}</dt><dd>{{.Value}}</dd>{{end}}</dl>{{end}}
    </article>
  {{end}}
  </div>
{{end}}
</main>
</div>
</html>`
