package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"catalog-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

type PageHandler struct {
	openPageUC     usecases_port.OpenPageUseCase
	setFilterUC    usecases_port.SetFilterUseCase
	resetFiltersUC usecases_port.ResetFiltersUseCase
	getPageViewUC  usecases_port.GetPageViewUseCase
	getActiveUC    usecases_port.GetActiveFiltersUseCase
	closePageUC    usecases_port.ClosePageUseCase
	saveFiltersUC  usecases_port.SaveFiltersUseCase
	pageSize       int
}

func NewPageHandler(
	openPageUC usecases_port.OpenPageUseCase,
	setFilterUC usecases_port.SetFilterUseCase,
	resetFiltersUC usecases_port.ResetFiltersUseCase,
	getPageViewUC usecases_port.GetPageViewUseCase,
	getActiveUC usecases_port.GetActiveFiltersUseCase,
	closePageUC usecases_port.ClosePageUseCase,
	saveFiltersUC usecases_port.SaveFiltersUseCase,
	pageSize int,
) *PageHandler {
	return &PageHandler{
		openPageUC:     openPageUC,
		setFilterUC:    setFilterUC,
		resetFiltersUC: resetFiltersUC,
		getPageViewUC:  getPageViewUC,
		getActiveUC:    getActiveUC,
		closePageUC:    closePageUC,
		saveFiltersUC:  saveFiltersUC,
		pageSize:       pageSize,
	}
}

func (h *PageHandler) OpenPage(w http.ResponseWriter, r *http.Request) {
	var req OpenPageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Category == "" {
		WriteJSONError(w, http.StatusBadRequest, "Category is required")
		return
	}
	snapshot, err := h.openPageUC.Execute(r.Context(), req.Category, req.SavedFilterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/pages/"+snapshot.Info.ID.String())
	RespondWithJSON(w, http.StatusCreated, toPageResponse(snapshot))
}

func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, err := pageIDParam(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := GetLimitOrDefault(r, h.pageSize)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := GetOffsetOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	snapshot, err := h.getPageViewUC.Execute(r.Context(), id, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toPageResponse(snapshot))
}

// SetFilter replaces one facet. The body is the facet value, e.g.
// {"values":["BMW"]}, {"min":1000,"max":null}, {"value":"Cluj"}, {"query":"tdi"} or null.
func (h *PageHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	id, err := pageIDParam(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	snapshot, err := h.setFilterUC.Execute(r.Context(), id, chi.URLParam(r, "facet"), body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toPageResponse(snapshot))
}

func (h *PageHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	id, err := pageIDParam(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	snapshot, err := h.resetFiltersUC.Execute(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, toPageResponse(snapshot))
}

func (h *PageHandler) GetActiveFilters(w http.ResponseWriter, r *http.Request) {
	id, err := pageIDParam(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	active, err := h.getActiveUC.Execute(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, ActiveFiltersResponse{
		PageID:      id.String(),
		ActiveCount: len(active),
		Active:      toActiveResponse(active),
	})
}

func (h *PageHandler) ClosePage(w http.ResponseWriter, r *http.Request) {
	id, err := pageIDParam(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.closePageUC.Execute(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PageHandler) SaveFilters(w http.ResponseWriter, r *http.Request) {
	id, err := pageIDParam(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req SaveFiltersRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && err != io.EOF {
			WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	saved, err := h.saveFiltersUC.Execute(r.Context(), id, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, toSavedFilterResponse(*saved))
}
