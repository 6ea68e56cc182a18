package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-pageflow/pageflow/internal/pkg/response"
	flowSvc "github.com/open-pageflow/pageflow/internal/service/flow"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type FlowHandler struct {
	service *flowSvc.Service
}

func NewFlowHandler(service *flowSvc.Service) *FlowHandler {
	return &FlowHandler{service: service}
}

func (h *FlowHandler) Register(r *gin.RouterGroup) {
	r.POST("/flows", h.create)
	r.GET("/flows", h.list)
	r.GET("/flows/:id", h.get)
	r.PUT("/flows/:id", h.update)
	r.DELETE("/flows/:id", h.delete)
}

type flowRequest struct {
	PageID      string           `json:"pageId"`
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Steps       []model.FlowStep `json:"steps"`
	IsActive    bool             `json:"isActive"`
}

func (h *FlowHandler) create(c *gin.Context) {
	var req flowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	flow, err := h.service.Create(c.Request.Context(), c.GetString("accountID"), flowSvc.Input{
		PageID:      req.PageID,
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		IsActive:    req.IsActive,
	})
	if err != nil {
		status := flowErrorStatus(err)
		response.Error(c, status, err)
		return
	}

	response.Success(c, http.StatusCreated, flow)
}

func (h *FlowHandler) list(c *gin.Context) {
	flows, err := h.service.List(c.Request.Context(), c.GetString("accountID"), c.Query("pageId"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	if flows == nil {
		flows = []model.Flow{}
	}
	response.Success(c, http.StatusOK, flows)
}

func (h *FlowHandler) get(c *gin.Context) {
	flow, err := h.service.Get(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "fluxo não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, flow)
}

func (h *FlowHandler) update(c *gin.Context) {
	var req flowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	flow, err := h.service.Update(c.Request.Context(), c.GetString("accountID"), c.Param("id"), flowSvc.Input{
		PageID:      req.PageID,
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
		IsActive:    req.IsActive,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "fluxo não encontrado")
		} else {
			response.Error(c, flowErrorStatus(err), err)
		}
		return
	}
	response.Success(c, http.StatusOK, flow)
}

func (h *FlowHandler) delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "fluxo não encontrado")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func flowErrorStatus(err error) int {
	switch {
	case errors.Is(err, flowSvc.ErrNameRequired),
		errors.Is(err, flowSvc.ErrDuplicateStepID),
		errors.Is(err, flowSvc.ErrUnknownStepType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
