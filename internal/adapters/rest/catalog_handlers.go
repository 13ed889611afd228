package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"catalog-service/internal/contracts"
	"catalog-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	listCategoriesUC   usecases_port.ListCategoriesUseCase
	getFilterSchemaUC  usecases_port.GetFilterSchemaUseCase
	getFilterOptionsUC usecases_port.GetFilterOptionsUseCase
	listSavedUC        usecases_port.ListSavedFiltersUseCase
	ingestUC           usecases_port.IngestListingUseCase
}

func NewCatalogHandler(
	listCategoriesUC usecases_port.ListCategoriesUseCase,
	getFilterSchemaUC usecases_port.GetFilterSchemaUseCase,
	getFilterOptionsUC usecases_port.GetFilterOptionsUseCase,
	listSavedUC usecases_port.ListSavedFiltersUseCase,
	ingestUC usecases_port.IngestListingUseCase,
) *CatalogHandler {
	return &CatalogHandler{
		listCategoriesUC:   listCategoriesUC,
		getFilterSchemaUC:  getFilterSchemaUC,
		getFilterOptionsUC: getFilterOptionsUC,
		listSavedUC:        listSavedUC,
		ingestUC:           ingestUC,
	}
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.listCategoriesUC.Execute(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, CategoryResponse{Category: c.Category, Title: c.Title, FacetCount: c.FacetCount})
	}
	RespondWithJSON(w, http.StatusOK, response)
}

func (h *CatalogHandler) GetFilterSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.getFilterSchemaUC.Execute(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, schema)
}

func (h *CatalogHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	schema, err := h.getFilterOptionsUC.Execute(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, schema)
}

func (h *CatalogHandler) ListSavedFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.listSavedUC.Execute(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response := make([]SavedFilterResponse, 0, len(filters))
	for _, f := range filters {
		response = append(response, toSavedFilterResponse(f))
	}
	RespondWithJSON(w, http.StatusOK, response)
}

// IngestListing accepts a listing-published document over HTTP.
func (h *CatalogHandler) IngestListing(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if err := contracts.Validate(contracts.ListingPublished, "1.0.0", body); err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req IngestListingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid listing body")
		return
	}

	stored, err := h.ingestUC.Execute(r.Context(), req.toDomain())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, toListingResponse(*stored))
}
