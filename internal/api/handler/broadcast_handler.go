package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-pageflow/pageflow/internal/pkg/response"
	broadcastSvc "github.com/open-pageflow/pageflow/internal/service/broadcast"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type BroadcastHandler struct {
	service *broadcastSvc.Service
}

func NewBroadcastHandler(service *broadcastSvc.Service) *BroadcastHandler {
	return &BroadcastHandler{service: service}
}

func (h *BroadcastHandler) Register(r *gin.RouterGroup) {
	r.POST("/broadcasts", h.create)
	r.GET("/broadcasts", h.list)
	r.GET("/broadcasts/:id", h.get)
	r.POST("/broadcasts/:id/send", h.send)
	r.DELETE("/broadcasts/:id", h.delete)
}

type broadcastRequest struct {
	PageID     string                 `json:"pageId" binding:"required"`
	Name       string                 `json:"name" binding:"required"`
	Message    model.BroadcastMessage `json:"message" binding:"required"`
	Targeting  string                 `json:"targetAudience"`
	TargetTags []string               `json:"targetTags"`
}

func (h *BroadcastHandler) create(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	broadcast, err := h.service.Create(c.Request.Context(), broadcastSvc.CreateInput{
		AccountID:  c.GetString("accountID"),
		PageID:     req.PageID,
		Name:       req.Name,
		Message:    req.Message,
		Targeting:  model.Targeting(req.Targeting),
		TargetTags: req.TargetTags,
	})
	if err != nil {
		if errors.Is(err, broadcastSvc.ErrInvalidTargeting) {
			response.Error(c, http.StatusBadRequest, err)
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, broadcast)
}

func (h *BroadcastHandler) list(c *gin.Context) {
	broadcasts, err := h.service.List(c.Request.Context(), c.GetString("accountID"), c.Query("pageId"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	if broadcasts == nil {
		broadcasts = []model.Broadcast{}
	}
	response.Success(c, http.StatusOK, broadcasts)
}

func (h *BroadcastHandler) get(c *gin.Context) {
	broadcast, err := h.service.Get(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "broadcast não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, broadcast)
}

func (h *BroadcastHandler) send(c *gin.Context) {
	result, err := h.service.Send(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			response.ErrorWithMessage(c, http.StatusNotFound, "broadcast não encontrado")
		case errors.Is(err, broadcastSvc.ErrPageWithoutToken):
			response.Error(c, http.StatusPreconditionFailed, err)
		case errors.Is(err, broadcastSvc.ErrSendInProgress):
			response.Error(c, http.StatusConflict, err)
		default:
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *BroadcastHandler) delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "broadcast não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
