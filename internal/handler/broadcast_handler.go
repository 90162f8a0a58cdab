package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
	"github.com/aidrelay/aidrelay-api/pkg/response"
)

type broadcastService interface {
	Submit(ctx context.Context, req dto.SubmitBroadcastRequest) (*dto.SubmitBroadcastResponse, error)
}

// BroadcastHandler accepts anonymous broadcast submissions. There is no
// authentication on this endpoint and no IP or user agent is recorded.
type BroadcastHandler struct {
	service broadcastService
}

// NewBroadcastHandler builds a new handler.
func NewBroadcastHandler(service broadcastService) *BroadcastHandler {
	return &BroadcastHandler{service: service}
}

// Submit godoc
// @Summary Submit an encrypted broadcast with its invite fan-out
// @Tags Broadcasts
// @Accept json
// @Produce json
// @Param payload body dto.SubmitBroadcastRequest true "Broadcast payload"
// @Success 201 {object} response.Envelope
// @Router /broadcasts [post]
func (h *BroadcastHandler) Submit(c *gin.Context) {
	var req dto.SubmitBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid broadcast payload"))
		return
	}
	resp, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}
