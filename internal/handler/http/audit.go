package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/audit"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
)

type AuditHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

type auditHandlerImpl struct {
	auditService audit.Service
}

func NewAuditHandler(auditService audit.Service) AuditHandler {
	return &auditHandlerImpl{auditService: auditService}
}

func (h *auditHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	query := r.URL.Query()
	var req audit.ListRequest
	if v := query.Get("entity_type"); v != "" {
		req.EntityType = &v
	}
	if v := query.Get("entity_id"); v != "" {
		req.EntityID = &v
	}
	if v := query.Get("action"); v != "" {
		req.Action = &v
	}
	if v := query.Get("actor_id"); v != "" {
		req.ActorID = &v
	}
	req.Page, _ = strconv.Atoi(query.Get("page"))
	req.Limit, _ = strconv.Atoi(query.Get("limit"))

	result, err := h.auditService.List(r.Context(), viewer, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: int(math.Ceil(float64(result.TotalCount) / float64(result.Limit))),
	})
}
