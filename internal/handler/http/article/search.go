package article

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"rssnews/internal/handler/http/respond"
	"rssnews/internal/repository"
	artUC "rssnews/internal/usecase/article"
)

const (
	maxKeywordCount  = 8
	maxKeywordLength = 64
)

type SearchHandler struct{ Svc artUC.Service }

// ServeHTTP searches articles by keyword (AND logic across space-separated
// terms) with optional source domain and publication window filters.
// @Summary      Search articles
// @Description  Multi-keyword AND search over canonical article titles and text.
// @Tags         articles
// @Security     BearerAuth
// @Produce      json
// @Param        keyword query string false "space-separated keywords"
// @Param        source_domain query string false "filter by source domain"
// @Param        from query string false "publication window start (RFC3339)"
// @Param        to query string false "publication window end (RFC3339)"
// @Success      200 {array} DTO
// @Failure      400 {string} string "bad request"
// @Failure      401 {string} string "unauthorized"
// @Failure      500 {string} string "server error"
// @Router       /articles/search [get]
func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	keywords, err := parseKeywords(r.URL.Query().Get("keyword"))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	var filters repository.ArticleSearchFilters
	if domain := r.URL.Query().Get("source_domain"); domain != "" {
		filters.SourceDomain = &domain
	}

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest, errors.New("from must be RFC3339"))
			return
		}
		filters.From = &from
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest, errors.New("to must be RFC3339"))
			return
		}
		filters.To = &to
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		respond.SafeError(w, http.StatusBadRequest, errors.New("from must not be after to"))
		return
	}

	list, err := h.Svc.Search(r.Context(), keywords, filters)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]DTO, 0, len(list))
	for _, a := range list {
		out = append(out, toDTO(a))
	}
	respond.JSON(w, http.StatusOK, out)
}

func parseKeywords(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	fields := strings.Fields(raw)
	if len(fields) > maxKeywordCount {
		return nil, errors.New("too many keywords")
	}
	for _, f := range fields {
		if len(f) > maxKeywordLength {
			return nil, errors.New("keyword too long")
		}
	}
	return fields, nil
}
