package feed

import (
	"net/http"

	feedUC "rssnews/internal/usecase/feed"
)

// Register registers the feed administration endpoints with the given mux.
// The mux this is registered on already sits behind the shared-secret bearer
// check (see cmd/api): feed management is an operator surface, not something
// exposed to the conversational frontend.
func Register(mux *http.ServeMux, svc feedUC.Service) {
	mux.Handle("GET    /feeds", ListHandler{svc})
	mux.Handle("GET    /feeds/", GetHandler{svc})

	mux.Handle("POST   /feeds", CreateHandler{svc})
	mux.Handle("PUT    /feeds/", UpdateHandler{svc})
	mux.Handle("DELETE /feeds/", DeleteHandler{svc})
}
