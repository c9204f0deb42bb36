package article

import (
	"log/slog"
	"net/http"
	"time"

	"rssnews/internal/common/pagination"
	"rssnews/internal/handler/http/requestid"
	"rssnews/internal/handler/http/respond"
	"rssnews/internal/observability/logging"
	artUC "rssnews/internal/usecase/article"
)

type ListHandler struct {
	Svc           artUC.Service
	PaginationCfg pagination.Config
	Logger        *slog.Logger
}

// ServeHTTP lists canonical articles with pagination.
// @Summary      List articles
// @Description  Returns canonical articles, paginated.
// @Tags         articles
// @Security     BearerAuth
// @Produce      json
// @Param        page   query    int  false  "page number (1-based)" default(1) minimum(1)
// @Param        limit  query    int  false  "items per page" default(20) minimum(1) maximum(100)
// @Success      200 {object} pagination.Response[DTO]
// @Failure      400 {string} string "invalid query parameters"
// @Failure      401 {string} string "unauthorized"
// @Failure      500 {string} string "server error"
// @Router       /articles [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	reqID := requestid.FromContext(ctx)
	logger := logging.WithRequestID(ctx, h.Logger)

	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		logger.Warn("invalid pagination parameters", "error", err.Error(), "request_id", reqID)
		pagination.RecordError("validation")
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Svc.ListPaginated(ctx, params)
	if err != nil {
		logger.Error("failed to list articles", "error", err.Error(), "request_id", reqID)
		pagination.RecordError("database")
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(result.Data))
	for _, a := range result.Data {
		dtos = append(dtos, toDTO(a))
	}

	response := pagination.NewResponse(dtos, result.Pagination)

	duration := time.Since(startTime)
	pagination.RecordRequest(http.StatusOK, params.Page)
	pagination.RecordDuration("handler", duration.Seconds())
	pagination.UpdateTotalCount(result.Pagination.Total)

	respond.JSON(w, http.StatusOK, response)
}
