package feed

import (
	"net/http"

	"rssnews/internal/handler/http/respond"
	feedUC "rssnews/internal/usecase/feed"
)

type ListHandler struct{ Svc feedUC.Service }

// ServeHTTP lists all registered feeds.
// @Summary      List feeds
// @Tags         feeds
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} DTO
// @Failure      401 {string} string "unauthorized"
// @Failure      500 {string} string "server error"
// @Router       /feeds [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]DTO, 0, len(list))
	for _, f := range list {
		out = append(out, toDTO(f))
	}
	respond.JSON(w, http.StatusOK, out)
}
