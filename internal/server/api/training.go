package api

import (
	"encoding/json"
	"log"
	"mime"
	"net/http"
	"strings"

	"github.com/ayusman/irplan/internal/gesture"
	"github.com/ayusman/irplan/internal/store"
)

// TrainingHandler serves the stored training corpus.
//
//	GET    /api/training             per-category counts
//	GET    /api/training/{category}  values in order
//	POST   /api/training/{category}  append JSON {"values": [...]} or a CSV body
//	DELETE /api/training/{category}  remove all values
//
// Changes take effect the next time the classifier is trained.
type TrainingHandler struct {
	store *store.Store
}

// NewTrainingHandler creates a TrainingHandler over s.
func NewTrainingHandler(s *store.Store) *TrainingHandler {
	return &TrainingHandler{store: s}
}

type valuesRequest struct {
	Values []float64 `json:"values"`
}

type valuesResponse struct {
	Category string    `json:"category"`
	Values   []float64 `json:"values"`
}

type countsResponse struct {
	Categories map[string]int `json:"categories"`
}

type appendResponse struct {
	Category string `json:"category"`
	Added    int    `json:"added"`
	Total    int    `json:"total"`
}

func (h *TrainingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	category := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/training"), "/")

	if category == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.counts(w)
		return
	}

	if _, err := gesture.ParseCategory(category); err != nil {
		writeError(w, http.StatusNotFound, "Unknown category")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.values(w, category)
	case http.MethodPost:
		h.append(w, r, category)
	case http.MethodDelete:
		h.delete(w, category)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TrainingHandler) counts(w http.ResponseWriter) {
	resp := countsResponse{Categories: make(map[string]int, len(gesture.Categories))}
	for _, c := range gesture.Categories {
		n, err := h.store.Training().Count(string(c))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count samples")
			return
		}
		resp.Categories[string(c)] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrainingHandler) values(w http.ResponseWriter, category string) {
	values, err := h.store.Training().Values(category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	if values == nil {
		values = []float64{}
	}
	writeJSON(w, http.StatusOK, valuesResponse{Category: category, Values: values})
}

func (h *TrainingHandler) append(w http.ResponseWriter, r *http.Request, category string) {
	repo := h.store.Training()

	var added int
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		n, err := repo.ImportCSV(category, r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		added = n
	} else {
		var req valuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if len(req.Values) == 0 {
			writeError(w, http.StatusBadRequest, "At least one value is required")
			return
		}
		if err := repo.Append(category, req.Values); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save samples")
			return
		}
		added = len(req.Values)
	}

	total, err := repo.Count(category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count samples")
		return
	}

	log.Printf("api: added %d %s samples (%d total)", added, category, total)
	writeJSON(w, http.StatusCreated, appendResponse{Category: category, Added: added, Total: total})
}

func (h *TrainingHandler) delete(w http.ResponseWriter, category string) {
	if err := h.store.Training().Delete(category); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
