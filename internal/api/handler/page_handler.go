package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-pageflow/pageflow/internal/pkg/response"
	pageSvc "github.com/open-pageflow/pageflow/internal/service/page"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

type PageHandler struct {
	service *pageSvc.Service
}

func NewPageHandler(service *pageSvc.Service) *PageHandler {
	return &PageHandler{service: service}
}

func (h *PageHandler) Register(r *gin.RouterGroup) {
	r.POST("/pages", h.connect)
	r.GET("/pages", h.list)
	r.GET("/pages/:id", h.get)
	r.DELETE("/pages/:id", h.disconnect)
}

type connectPageRequest struct {
	PageID      string `json:"pageId" binding:"required"`
	PageName    string `json:"pageName" binding:"required"`
	PageAvatar  string `json:"pageAvatar"`
	AccessToken string `json:"accessToken" binding:"required"`
}

func (h *PageHandler) connect(c *gin.Context) {
	var req connectPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	page, err := h.service.Connect(c.Request.Context(), c.GetString("accountID"), pageSvc.ConnectInput{
		PlatformID:  req.PageID,
		Name:        req.PageName,
		Avatar:      req.PageAvatar,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		if errors.Is(err, pageSvc.ErrAlreadyConnected) {
			response.Error(c, http.StatusConflict, err)
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, page)
}

func (h *PageHandler) list(c *gin.Context) {
	pages, err := h.service.List(c.Request.Context(), c.GetString("accountID"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	if pages == nil {
		pages = []model.Page{}
	}
	response.Success(c, http.StatusOK, pages)
}

func (h *PageHandler) get(c *gin.Context) {
	page, err := h.service.Get(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "página não encontrada")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, page)
}

func (h *PageHandler) disconnect(c *gin.Context) {
	err := h.service.Disconnect(c.Request.Context(), c.GetString("accountID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "página não encontrada")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
