package handlers

import (
	"net/http"

	"github.com/kevinaaaquil/bookreviews/middleware"
	"github.com/kevinaaaquil/bookreviews/service"
)

type ReviewsHandler struct {
	responder
	Reviews *service.Reviews
}

func (h *ReviewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := objectIDParam(w, r, "review not found")
	if !ok {
		return
	}
	var patch service.ReviewPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	review, err := h.Reviews.Update(r.Context(), id, userID, patch)
	if err != nil {
		h.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	id, ok := objectIDParam(w, r, "review not found")
	if !ok {
		return
	}
	if err := h.Reviews.Delete(r.Context(), id, userID); err != nil {
		h.error(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Review deleted successfully")
}
