package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/internal/models"
	"github.com/aidrelay/aidrelay-api/internal/service"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
	"github.com/aidrelay/aidrelay-api/pkg/response"
)

type auditService interface {
	ListAggregates(ctx context.Context, from, to *time.Time) ([]dto.TombstoneAggregateResponse, error)
	CreateJob(ctx context.Context, req dto.CreateExportRequest, actorID string) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id, actorID string) (*dto.ExportJobResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// AuditHandler exposes the deletion ledger to coordinators and auditors.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler builds a new handler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// ListTombstones godoc
// @Summary Aggregate deletion counts by day, type, and category
// @Tags Audit
// @Produce json
// @Param from query string false "Start of period (RFC 3339)"
// @Param to query string false "End of period (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Router /audit/tombstones [get]
func (h *AuditHandler) ListTombstones(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := requireAuditAccess(claims); err != nil {
		response.Error(c, err)
		return
	}
	from, err := parsePeriod(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parsePeriod(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	aggregates, err := h.service.ListAggregates(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, aggregates, nil)
}

// CreateExport godoc
// @Summary Queue an asynchronous tombstone export
// @Tags Audit
// @Accept json
// @Produce json
// @Param payload body dto.CreateExportRequest true "Export parameters"
// @Success 201 {object} response.Envelope
// @Router /audit/exports [post]
func (h *AuditHandler) CreateExport(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := requireAuditAccess(claims); err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	job, err := h.service.CreateJob(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// ExportStatus godoc
// @Summary Get the status of an export job
// @Tags Audit
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /audit/exports/{jobId} [get]
func (h *AuditHandler) ExportStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := requireAuditAccess(claims); err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.service.GetStatus(c.Request.Context(), c.Param("jobId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export via its signed token
// @Tags Audit
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /audit/downloads/{token} [get]
func (h *AuditHandler) Download(c *gin.Context) {
	token := c.Param("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.File(result.File.Name())
}

func requireAuditAccess(claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleAuditor && claims.Role != models.RoleCoordinator {
		return appErrors.ErrForbidden
	}
	return nil
}

func parsePeriod(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be RFC 3339")
	}
	return &ts, nil
}
