package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
)

type broadcastServiceMock struct {
	resp *dto.SubmitBroadcastResponse
	err  error
	got  *dto.SubmitBroadcastRequest
}

func (m *broadcastServiceMock) Submit(ctx context.Context, req dto.SubmitBroadcastRequest) (*dto.SubmitBroadcastResponse, error) {
	m.got = &req
	return m.resp, m.err
}

func submissionBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(dto.SubmitBroadcastRequest{
		SubmissionID: "0b5bfc0e-92a4-4aae-8e59-6c04f0c54f2e",
		Ciphertext:   "c2VhbGVk",
		Nonce:        "bm9uY2U=",
		Region:       "Berlin",
		Categories:   []string{"FOOD"},
		Invites: []dto.InvitePayload{{
			GroupID:    "7cf2c77b-4f3f-4d62-a64f-7e0c86f7b6aa",
			WrappedKey: "d3JhcHBlZA==",
		}},
		ElapsedMs: 8000,
	})
	require.NoError(t, err)
	return body
}

func TestBroadcastHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &broadcastServiceMock{resp: &dto.SubmitBroadcastResponse{BroadcastID: "bc-1"}}
	h := NewBroadcastHandler(mock)

	c, w := newGinContext(http.MethodPost, "/broadcasts", submissionBody(t))
	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data dto.SubmitBroadcastResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "bc-1", envelope.Data.BroadcastID)
	require.NotNil(t, mock.got)
	assert.Equal(t, "Berlin", mock.got.Region)
}

func TestBroadcastHandlerSubmitMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &broadcastServiceMock{}
	h := NewBroadcastHandler(mock)

	c, w := newGinContext(http.MethodPost, "/broadcasts", []byte("{not json"))
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mock.got)
}

func TestBroadcastHandlerSubmitMissingInvites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &broadcastServiceMock{}
	h := NewBroadcastHandler(mock)

	body, err := json.Marshal(map[string]interface{}{
		"submissionId":      "0b5bfc0e-92a4-4aae-8e59-6c04f0c54f2e",
		"ciphertextPayload": "c2VhbGVk",
		"nonce":             "bm9uY2U=",
		"region":            "Berlin",
		"categories":        []string{"FOOD"},
	})
	require.NoError(t, err)

	c, w := newGinContext(http.MethodPost, "/broadcasts", body)
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, mock.got)
}

func TestBroadcastHandlerSubmitRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &broadcastServiceMock{err: appErrors.ErrSubmissionRejected}
	h := NewBroadcastHandler(mock)

	c, w := newGinContext(http.MethodPost, "/broadcasts", submissionBody(t))
	h.Submit(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBroadcastHandlerSubmitNoRecipients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &broadcastServiceMock{err: appErrors.ErrNoRecipients}
	h := NewBroadcastHandler(mock)

	c, w := newGinContext(http.MethodPost, "/broadcasts", submissionBody(t))
	h.Submit(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NO_RECIPIENTS", envelope.Error.Code)
}
