package article

import (
	"encoding/json"
	"errors"
	"net/http"

	"rssnews/internal/handler/http/pathutil"
	"rssnews/internal/handler/http/respond"
	artUC "rssnews/internal/usecase/article"
)

type UpdateHandler struct{ Svc artUC.Service }

// ServeHTTP updates the operator-editable fields of an article.
// @Summary      Update article
// @Description  Edits title, category, and tags on an existing article.
// @Tags         articles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "article ID"
// @Success      204 "No Content"
// @Failure      400 {string} string "invalid input"
// @Failure      401 {string} string "unauthorized"
// @Failure      404 {string} string "article not found"
// @Router       /articles/{id} [put]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/articles/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Title    *string  `json:"title"`
		Category *string  `json:"category"`
		Tags     []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	err = h.Svc.Update(r.Context(), artUC.UpdateInput{
		ID:       id,
		Title:    req.Title,
		Category: req.Category,
		Tags:     req.Tags,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, artUC.ErrArticleNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
