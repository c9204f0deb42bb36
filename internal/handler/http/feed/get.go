package feed

import (
	"errors"
	"net/http"

	"rssnews/internal/handler/http/pathutil"
	"rssnews/internal/handler/http/respond"
	feedUC "rssnews/internal/usecase/feed"
)

type GetHandler struct{ Svc feedUC.Service }

// ServeHTTP returns a single feed by ID.
// @Summary      Get feed
// @Tags         feeds
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "feed ID"
// @Success      200 {object} DTO
// @Failure      400 {string} string "invalid feed ID"
// @Failure      401 {string} string "unauthorized"
// @Failure      404 {string} string "feed not found"
// @Router       /feeds/{id} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/feeds/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	f, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, feedUC.ErrFeedNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(f))
}
