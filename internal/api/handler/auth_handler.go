package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-pageflow/pageflow/internal/api/middleware"
	"github.com/open-pageflow/pageflow/internal/pkg/response"
	authSvc "github.com/open-pageflow/pageflow/internal/service/auth"
	"github.com/open-pageflow/pageflow/internal/storage"
)

type AuthHandler struct {
	service   *authSvc.Service
	jwtSecret string
}

func NewAuthHandler(service *authSvc.Service, jwtSecret string) *AuthHandler {
	return &AuthHandler{service: service, jwtSecret: jwtSecret}
}

func (h *AuthHandler) Register(r *gin.RouterGroup) {
	r.POST("/auth/register", h.register)
	r.POST("/auth/login", h.login)
	r.GET("/auth/facebook/login", h.facebookLogin)
	r.GET("/auth/facebook/callback", h.facebookCallback)

	me := r.Group("")
	me.Use(middleware.Auth(h.jwtSecret))
	me.GET("/auth/me", h.me)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	account, token, err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, authSvc.ErrEmailTaken) {
			response.Error(c, http.StatusConflict, err)
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"account": account, "token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	account, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authSvc.ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, err)
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"account": account, "token": token})
}

func (h *AuthHandler) facebookLogin(c *gin.Context) {
	url, err := h.service.FacebookLoginURL(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url})
}

func (h *AuthHandler) facebookCallback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		response.ErrorWithMessage(c, http.StatusBadRequest, "state e code são obrigatórios")
		return
	}

	account, token, err := h.service.FacebookCallback(c.Request.Context(), state, code)
	if err != nil {
		if errors.Is(err, authSvc.ErrInvalidState) {
			response.Error(c, http.StatusUnauthorized, err)
		} else {
			response.Error(c, http.StatusBadGateway, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"account": account, "token": token})
}

func (h *AuthHandler) me(c *gin.Context) {
	account, err := h.service.Me(c.Request.Context(), c.GetString("accountID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "conta não encontrada")
		} else {
			response.Error(c, http.StatusInternalServerError, err)
		}
		return
	}
	response.Success(c, http.StatusOK, account)
}
