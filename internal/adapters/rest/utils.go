package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"catalog-service/internal/core/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// WriteJSONError sends {"error": message} with statusCode.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RespondWithJSON sends payload as JSON.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// GetLimitOrDefault reads ?limit=. Negative values are rejected.
func GetLimitOrDefault(r *http.Request, defaultLimit int) (int, error) {
	return intQueryParam(r, "limit", defaultLimit)
}

// GetOffsetOrDefault reads ?offset=.
func GetOffsetOrDefault(r *http.Request) (int, error) {
	return intQueryParam(r, "offset", 0)
}

func intQueryParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func pageIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "pageID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid page id")
	}
	return id, nil
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrPageNotFound),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, domain.ErrSavedFilterNotFound),
		errors.Is(err, domain.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownFacet), errors.Is(err, domain.ErrFacetKindMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMalformedFilterValue), errors.Is(err, domain.ErrInvalidListing):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeDomainError hides the details of unexpected errors.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		WriteJSONError(w, status, "Internal server error")
		return
	}
	WriteJSONError(w, status, err.Error())
}
