package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/service"
	pkgerrors "remidi/backend/pkg/errors"
	"remidi/backend/pkg/response"
)

// 认证模块错误码
const (
	codeInvalidCredentials  = 11001
	codeEmailTaken          = 11002
	codeInvalidRefreshToken = 11003
	codeUserNotFound        = 11004
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register 注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.Created(c, user)
}

// Login 用户登录，成功后开始提醒调度
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// RefreshToken 刷新 Token
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 用户登出：吊销当前 access token 并停止提醒调度
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	jti, exp := tokenMeta(c)

	if err := h.authSvc.Logout(c.Request.Context(), userID, jti, exp); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetCurrentUser 获取当前用户
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, codeInvalidCredentials, "邮箱或密码错误")
	case errors.Is(err, service.ErrEmailTaken):
		response.Conflict(c, codeEmailTaken, "该邮箱已注册")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Error(c, http.StatusUnauthorized, codeInvalidRefreshToken, "refresh token 无效或已吊销")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, codeUserNotFound, "用户不存在")
	case errors.Is(err, pkgerrors.ErrUnauthenticated):
		response.Unauthorized(c, response.CodeUnauthenticated, "未认证")
	default:
		response.InternalError(c)
	}
}
