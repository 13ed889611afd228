package rest

import (
	"bytes"
	"net/http"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"
	"catalog-service/internal/core/port/usecases_port"
	"catalog-service/internal/renderer"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// HTMLHandler serves the server-rendered filter pages.
type HTMLHandler struct {
	openPageUC         usecases_port.OpenPageUseCase
	setFilterUC        usecases_port.SetFilterUseCase
	resetFiltersUC     usecases_port.ResetFiltersUseCase
	getFilterOptionsUC usecases_port.GetFilterOptionsUseCase
	renderer           *renderer.Renderer
}

func NewHTMLHandler(
	openPageUC usecases_port.OpenPageUseCase,
	setFilterUC usecases_port.SetFilterUseCase,
	resetFiltersUC usecases_port.ResetFiltersUseCase,
	getFilterOptionsUC usecases_port.GetFilterOptionsUseCase,
	r *renderer.Renderer,
) *HTMLHandler {
	return &HTMLHandler{
		openPageUC:         openPageUC,
		setFilterUC:        setFilterUC,
		resetFiltersUC:     resetFiltersUC,
		getFilterOptionsUC: getFilterOptionsUC,
		renderer:           r,
	}
}

// OpenPage opens a fresh page of the category, optionally replaying ?saved=<id>.
func (h *HTMLHandler) OpenPage(w http.ResponseWriter, r *http.Request) {
	var savedID *uuid.UUID
	if s := r.URL.Query().Get("saved"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid saved filter id", http.StatusBadRequest)
			return
		}
		savedID = &id
	}
	snapshot, err := h.openPageUC.Execute(r.Context(), chi.URLParam(r, "category"), savedID)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	h.render(w, r, snapshot)
}

// ApplyFilters handles the filter form: the reset button clears every facet,
// otherwise the submitted form replaces all facets.
func (h *HTMLHandler) ApplyFilters(w http.ResponseWriter, r *http.Request) {
	id, err := pageIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var snapshot *domain.PageSnapshot
	if r.PostForm.Get("reset") != "" {
		snapshot, err = h.resetFiltersUC.Execute(r.Context(), id)
	} else {
		snapshot, err = h.setFilterUC.ExecuteForm(r.Context(), id, r.PostForm)
	}
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}
	h.render(w, r, snapshot)
}

func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, snapshot *domain.PageSnapshot) {
	logger := contextkeys.LoggerFromContext(r.Context())

	schema, err := h.getFilterOptionsUC.Execute(r.Context(), snapshot.Info.Category)
	if err != nil {
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	var buf bytes.Buffer
	err = h.renderer.RenderPage(&buf, renderer.PageData{
		Schema:     schema,
		State:      snapshot.State,
		View:       snapshot.View,
		FormAction: "/pages/" + snapshot.Info.ID.String() + "/filters",
	})
	if err != nil {
		logger.Error("Failed to render page", err, port.Fields{"page_id": snapshot.Info.ID.String()})
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
