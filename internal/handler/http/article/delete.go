package article

import (
	"net/http"

	"rssnews/internal/handler/http/pathutil"
	"rssnews/internal/handler/http/respond"
	artUC "rssnews/internal/usecase/article"
)

type DeleteHandler struct{ Svc artUC.Service }

// ServeHTTP deletes an article.
// @Summary      Delete article
// @Tags         articles
// @Security     BearerAuth
// @Param        id path int true "article ID"
// @Success      204 "No Content"
// @Failure      400 {string} string "invalid ID"
// @Failure      401 {string} string "unauthorized"
// @Failure      500 {string} string "server error"
// @Router       /articles/{id} [delete]
func (h DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/articles/")
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
