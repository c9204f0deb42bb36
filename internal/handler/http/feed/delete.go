package feed

import (
	"net/http"

	"rssnews/internal/handler/http/pathutil"
	"rssnews/internal/handler/http/respond"
	feedUC "rssnews/internal/usecase/feed"
)

type DeleteHandler struct{ Svc feedUC.Service }

// ServeHTTP removes a feed from the poller's rotation.
// @Summary      Delete feed
// @Tags         feeds
// @Security     BearerAuth
// @Param        id path int true "feed ID"
// @Success      204 "No Content"
// @Failure      400 {string} string "invalid ID"
// @Failure      401 {string} string "unauthorized"
// @Failure      500 {string} string "server error"
// @Router       /feeds/{id} [delete]
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/feeds/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
