package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-pageflow/pageflow/internal/pkg/response"
	automationSvc "github.com/open-pageflow/pageflow/internal/service/automation"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type AutomationHandler struct {
	service *automationSvc.Service
}

func NewAutomationHandler(service *automationSvc.Service) *AutomationHandler {
	return &AutomationHandler{service: service}
}

func (h *AutomationHandler) Register(r *gin.RouterGroup) {
	r.POST("/automations", h.create)
	r.GET("/automations", h.list)
	r.GET("/automations/:id", h.get)
	r.POST("/automations/:id/toggle", h.toggle)
	r.DELETE("/automations/:id", h.delete)
}

type automationRequest struct {
	PageID   string `json:"pageId"`
	Name     string `json:"name" binding:"required"`
	Kind     string `json:"type" binding:"required"`
	Keyword  string `json:"keyword"`
	FlowID   string `json:"flowId"`
	IsActive bool   `json:"isActive"`
}

func (h *AutomationHandler) create(c *gin.Context) {
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	automation, err := h.service.Create(c.Request.Context(), c.GetString("accountID"), automationSvc.Input{
		PageID:   req.PageID,
		Name:     req.Name,
		Kind:     model.AutomationKind(req.Kind),
		Keyword:  req.Keyword,
		FlowID:   req.FlowID,
		IsActive: req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, automationSvc.ErrUnknownKind), errors.Is(err, automationSvc.ErrKeywordRequired):
			response.Error(c, http.StatusBadRequest, err)
		case errors.Is(err, storage.ErrNotFound):
			response.ErrorWithMessage(c, http.StatusBadRequest, "fluxo não encontrado")
		default:
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, automation)
}

func (h *AutomationHandler) list(c *gin.Context) {
	automations, err := h.service.List(c.Request.Context(), c.GetString("accountID"), c.Query("pageId"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	if automations == nil {
		automations = []model.Automation{}
	}
	response.Success(c, http.StatusOK, automations)
}

func (h *AutomationHandler) get(c *gin.Context) {
	automation, err := h.service.Get(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "automação não encontrada")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, automation)
}

func (h *AutomationHandler) toggle(c *gin.Context) {
	automation, err := h.service.Toggle(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "automação não encontrada")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, automation)
}

func (h *AutomationHandler) delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "automação não encontrada")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
