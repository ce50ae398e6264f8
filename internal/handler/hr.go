package handler

import (
	"errors"
	"net/http"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/model"
	"staffhub-api/internal/repository"
	"staffhub-api/internal/service"
	"staffhub-api/pkg/apierror"
	"staffhub-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// HRHandler serves the tenant-scoped HR reads and the status mutation.
type HRHandler struct {
	hr     *service.HRService
	logger *zap.Logger
}

// NewHRHandler creates a new HR handler.
func NewHRHandler(hr *service.HRService, logger *zap.Logger) *HRHandler {
	return &HRHandler{
		hr:     hr,
		logger: logger.Named("handler"),
	}
}

// pathParam reads a URL parameter that ends up as a cache key segment.
func pathParam(r *http.Request, name string) (string, *apierror.Error) {
	v := chi.URLParam(r, name)
	if err := cache.CheckSegment(v); err != nil {
		return "", apierror.ValidationError("invalid path parameter",
			apierror.FieldError{Field: name, Message: err.Error()})
	}
	return v, nil
}

// fail maps service errors to API errors. Anything unrecognized is a 500.
func (h *HRHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.Error(w, apierror.NotFound(""))
	case errors.Is(err, service.ErrUnknownMetric):
		response.Error(w, apierror.NotFound(err.Error()))
	case errors.Is(err, service.ErrInvalidStatus):
		response.Error(w, apierror.ValidationError("invalid status",
			apierror.FieldError{Field: "status", Message: err.Error()}))
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		response.Error(w, err)
	}
}

// GetEmployee handles GET /api/v1/employees/{employeeID}
func (h *HRHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID, perr := pathParam(r, "employeeID")
	if perr != nil {
		response.Error(w, perr)
		return
	}

	e, err := h.hr.GetEmployee(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, e)
}

// ListEmployees handles GET /api/v1/tenants/{tenantID}/employees
//
// Query parameters: department, status. status defaults to active;
// status=all lists every status.
func (h *HRHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	tenantID, perr := pathParam(r, "tenantID")
	if perr != nil {
		response.Error(w, perr)
		return
	}

	q := r.URL.Query()
	filter := repository.EmployeeFilter{
		DepartmentID: q.Get("department"),
		Status:       q.Get("status"),
	}
	switch filter.Status {
	case "":
		filter.Status = model.EmployeeActive
	case "all":
		filter.Status = ""
	default:
		if !model.ValidEmployeeStatus(filter.Status) {
			h.fail(w, r, service.ErrInvalidStatus)
			return
		}
	}

	employees, err := h.hr.ListEmployees(r.Context(), tenantID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, employees)
}

type statusRequest struct {
	Status string `json:"status"`
}

// StatusUpdateResponse reports the write and the cache fan-out it triggered.
type StatusUpdateResponse struct {
	TenantID     string                     `json:"tenant_id"`
	EmployeeID   string                     `json:"employee_id"`
	Status       string                     `json:"status"`
	Invalidation service.InvalidationResult `json:"invalidation"`
}

// UpdateEmployeeStatus handles PUT /api/v1/tenants/{tenantID}/employees/{employeeID}/status
func (h *HRHandler) UpdateEmployeeStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, perr := pathParam(r, "tenantID")
	if perr != nil {
		response.Error(w, perr)
		return
	}
	employeeID, perr := pathParam(r, "employeeID")
	if perr != nil {
		response.Error(w, perr)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	result, err := h.hr.UpdateEmployeeStatus(r.Context(), tenantID, employeeID, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.OK(w, StatusUpdateResponse{
		TenantID:     tenantID,
		EmployeeID:   employeeID,
		Status:       req.Status,
		Invalidation: result,
	})
}

// GetMetric handles GET /api/v1/tenants/{tenantID}/analytics/{metric}
func (h *HRHandler) GetMetric(w http.ResponseWriter, r *http.Request) {
	tenantID, perr := pathParam(r, "tenantID")
	if perr != nil {
		response.Error(w, perr)
		return
	}

	v, err := h.hr.Metric(r.Context(), tenantID, chi.URLParam(r, "metric"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, v)
}

// GetSettings handles GET /api/v1/tenants/{tenantID}/settings
func (h *HRHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, perr := pathParam(r, "tenantID")
	if perr != nil {
		response.Error(w, perr)
		return
	}

	s, err := h.hr.Settings(r.Context(), tenantID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.OK(w, s)
}
