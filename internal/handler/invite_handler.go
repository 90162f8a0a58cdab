package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
	"github.com/aidrelay/aidrelay-api/pkg/response"
)

type inviteService interface {
	List(ctx context.Context, groupID string) ([]dto.InviteListItem, error)
	Get(ctx context.Context, groupID, inviteID string) (*dto.InviteDetailResponse, error)
	GetCiphertext(ctx context.Context, groupID, inviteID string) (*dto.CiphertextResponse, error)
	MarkDecrypted(ctx context.Context, groupID, inviteID string) (*dto.InviteListItem, error)
	Delete(ctx context.Context, groupID, inviteID string) error
}

// InviteHandler exposes a group's invite inbox. All routes sit behind JWT
// middleware; the group scope comes from the token, never from the request.
type InviteHandler struct {
	service inviteService
}

// NewInviteHandler builds a new handler.
func NewInviteHandler(service inviteService) *InviteHandler {
	return &InviteHandler{service: service}
}

// List godoc
// @Summary List live invites for the caller's group
// @Tags Invites
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /invites [get]
func (h *InviteHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.List(c.Request.Context(), claims.GroupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get one invite including its wrapped key
// @Tags Invites
// @Produce json
// @Param inviteId path string true "Invite ID"
// @Success 200 {object} response.Envelope
// @Router /invites/{inviteId} [get]
func (h *InviteHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), claims.GroupID, c.Param("inviteId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// GetCiphertext godoc
// @Summary Get the sealed broadcast payload for an invite
// @Tags Invites
// @Produce json
// @Param inviteId path string true "Invite ID"
// @Success 200 {object} response.Envelope
// @Router /invites/{inviteId}/ciphertext [get]
func (h *InviteHandler) GetCiphertext(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.service.GetCiphertext(c.Request.Context(), claims.GroupID, c.Param("inviteId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// MarkDecrypted godoc
// @Summary Acknowledge the first successful local decryption
// @Tags Invites
// @Produce json
// @Param inviteId path string true "Invite ID"
// @Success 200 {object} response.Envelope
// @Router /invites/{inviteId}/decrypted [post]
func (h *InviteHandler) MarkDecrypted(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.MarkDecrypted(c.Request.Context(), claims.GroupID, c.Param("inviteId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete an invite and record a tombstone
// @Tags Invites
// @Param inviteId path string true "Invite ID"
// @Success 204
// @Router /invites/{inviteId} [delete]
func (h *InviteHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.GroupID, c.Param("inviteId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
