package article

import (
	"errors"
	"net/http"

	"rssnews/internal/handler/http/pathutil"
	"rssnews/internal/handler/http/respond"
	artUC "rssnews/internal/usecase/article"
)

type GetHandler struct{ Svc artUC.Service }

// ServeHTTP returns a single article by ID.
// @Summary      Get article
// @Description  Returns a single canonical article.
// @Tags         articles
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "article ID"
// @Success      200 {object} DTO
// @Failure      400 {string} string "invalid article ID"
// @Failure      401 {string} string "unauthorized"
// @Failure      404 {string} string "article not found"
// @Router       /articles/{id} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/articles/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, artUC.ErrInvalidArticleID):
			code = http.StatusBadRequest
		case errors.Is(err, artUC.ErrArticleNotFound):
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}

	respond.JSON(w, http.StatusOK, toDTO(a))
}
