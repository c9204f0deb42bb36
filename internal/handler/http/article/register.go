package article

import (
	"log/slog"
	"net/http"

	"rssnews/internal/common/pagination"
	"rssnews/internal/handler/http/middleware"
	artUC "rssnews/internal/usecase/article"
)

// Register registers the article admin/read endpoints with the given mux.
// The mux this is registered on already sits behind the shared-secret bearer
// check (see cmd/api), so handlers here don't wrap themselves individually;
// search carries its own per-IP rate limit since it's the most expensive
// read path.
func Register(mux *http.ServeMux, svc artUC.Service, paginationCfg pagination.Config, logger *slog.Logger, searchRateLimiter *middleware.RateLimiter) {
	mux.Handle("GET    /articles", ListHandler{
		Svc:           svc,
		PaginationCfg: paginationCfg,
		Logger:        logger,
	})
	mux.Handle("GET    /articles/search", searchRateLimiter.Middleware(SearchHandler{Svc: svc}))
	mux.Handle("GET    /articles/", GetHandler{svc})

	mux.Handle("PUT    /articles/", UpdateHandler{svc})
	mux.Handle("DELETE /articles/", DeleteHandler{svc})
}
