package api

import (
	"net/http"

	"github.com/ayusman/irplan/internal/geometry"
)

// PointerSource reports the last smoothed pointer position.
type PointerSource interface {
	Position() (geometry.Point2D, bool)
}

// PointerHandler serves GET /api/pointer. It answers 204 until the first
// frame has been mapped.
type PointerHandler struct {
	source PointerSource
}

// NewPointerHandler creates a PointerHandler over src.
func NewPointerHandler(src PointerSource) *PointerHandler {
	return &PointerHandler{source: src}
}

func (h *PointerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p, ok := h.source.Position()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
