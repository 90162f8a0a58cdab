package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/internal/models"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
	"github.com/aidrelay/aidrelay-api/pkg/response"
)

type directoryService interface {
	Lookup(ctx context.Context, region string, categories []string) ([]dto.DirectoryEntryResponse, error)
	InvalidateCache(ctx context.Context) error
}

// DirectoryHandler exposes the public group directory. No authentication:
// senders stay anonymous.
type DirectoryHandler struct {
	service directoryService
}

// NewDirectoryHandler builds a new handler.
func NewDirectoryHandler(service directoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

// Lookup godoc
// @Summary List verified groups eligible to receive broadcasts
// @Tags Directory
// @Produce json
// @Param region query string false "Region filter (substring match)"
// @Param categories query string false "Comma-separated category filter"
// @Success 200 {object} response.Envelope
// @Router /directory [get]
func (h *DirectoryHandler) Lookup(c *gin.Context) {
	var categories []string
	if raw := c.Query("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				categories = append(categories, trimmed)
			}
		}
	}
	entries, err := h.service.Lookup(c.Request.Context(), c.Query("region"), categories)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// InvalidateCache godoc
// @Summary Drop cached directory lookups after a listing change
// @Tags Directory
// @Security BearerAuth
// @Success 204
// @Router /directory/cache [delete]
func (h *DirectoryHandler) InvalidateCache(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.Role != models.RoleCoordinator {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	if err := h.service.InvalidateCache(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
