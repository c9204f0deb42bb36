package feed

import (
	"encoding/json"
	"errors"
	"net/http"

	"rssnews/internal/domain/entity"
	"rssnews/internal/handler/http/pathutil"
	"rssnews/internal/handler/http/respond"
	feedUC "rssnews/internal/usecase/feed"
)

type UpdateHandler struct{ Svc feedUC.Service }

// ServeHTTP updates a feed's priority, trust score, quota, or status
// (e.g. to pause a feed that is producing mostly duplicates).
// @Summary      Update feed
// @Tags         feeds
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "feed ID"
// @Success      204 "No Content"
// @Failure      400 {string} string "invalid input"
// @Failure      401 {string} string "unauthorized"
// @Failure      404 {string} string "feed not found"
// @Router       /feeds/{id} [put]
func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/feeds/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Priority   *int               `json:"priority"`
		TrustScore *int               `json:"trust_score"`
		DailyQuota *int               `json:"daily_quota"`
		Status     *entity.FeedStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	err = h.Svc.Update(r.Context(), feedUC.UpdateInput{
		ID:         id,
		Priority:   req.Priority,
		TrustScore: req.TrustScore,
		DailyQuota: req.DailyQuota,
		Status:     req.Status,
	})
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, feedUC.ErrFeedNotFound) {
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
