package feed

import (
	"encoding/json"
	"net/http"

	"rssnews/internal/handler/http/respond"
	feedUC "rssnews/internal/usecase/feed"
)

type CreateHandler struct{ Svc feedUC.Service }

// ServeHTTP registers a new feed for the poller to crawl.
// @Summary      Register feed
// @Tags         feeds
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      201 "Created"
// @Failure      400 {string} string "invalid input"
// @Failure      401 {string} string "unauthorized"
// @Router       /feeds [post]
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL        string `json:"url"`
		Language   string `json:"language"`
		Priority   int    `json:"priority"`
		TrustScore int    `json:"trust_score"`
		DailyQuota int    `json:"daily_quota"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Svc.Create(r.Context(), feedUC.CreateInput{
		URL:        req.URL,
		Language:   req.Language,
		Priority:   req.Priority,
		TrustScore: req.TrustScore,
		DailyQuota: req.DailyQuota,
	}); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
