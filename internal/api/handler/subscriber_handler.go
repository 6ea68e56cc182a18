package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-pageflow/pageflow/internal/pkg/response"
	messageSvc "github.com/open-pageflow/pageflow/internal/service/message"
	subscriberSvc "github.com/open-pageflow/pageflow/internal/service/subscriber"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type SubscriberHandler struct {
	service  *subscriberSvc.Service
	messages *messageSvc.Service
}

func NewSubscriberHandler(service *subscriberSvc.Service, messages *messageSvc.Service) *SubscriberHandler {
	return &SubscriberHandler{service: service, messages: messages}
}

func (h *SubscriberHandler) Register(r *gin.RouterGroup) {
	r.GET("/subscribers", h.list)
	r.GET("/subscribers/:id", h.get)
	r.PATCH("/subscribers/:id/tags", h.updateTags)
	r.GET("/subscribers/:id/messages", h.history)
}

func (h *SubscriberHandler) list(c *gin.Context) {
	subs, err := h.service.List(c.Request.Context(), c.GetString("accountID"), c.Query("pageId"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	if subs == nil {
		subs = []model.Subscriber{}
	}
	response.Success(c, http.StatusOK, subs)
}

func (h *SubscriberHandler) get(c *gin.Context) {
	sub, err := h.service.Get(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "assinante não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, sub)
}

type updateTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

func (h *SubscriberHandler) updateTags(c *gin.Context) {
	var req updateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	sub, err := h.service.UpdateTags(c.Request.Context(), c.GetString("accountID"), c.Param("id"), req.Tags)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "assinante não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, sub)
}

func (h *SubscriberHandler) history(c *gin.Context) {
	messages, err := h.messages.History(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "assinante não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, messages)
}
