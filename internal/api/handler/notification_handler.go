package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/service"
	"remidi/backend/pkg/response"
)

// 通知模块错误码
const codeNotificationInvalid = 13001

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// ListNotifications 通知列表（最新的在前）
// GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeNotificationInvalid, "参数校验失败")
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// CreateNotification 客户端追加通知（如 "New task created"）
// POST /api/v1/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeNotificationInvalid, "参数校验失败")
		return
	}

	n, err := h.notificationSvc.Append(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.Created(c, n)
}

// UnreadCount 未读通知数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: count})
}

// MarkRead 标记单条已读；不存在的 id 同样返回成功
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// MarkAllRead 全部标记已读
// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	updated, err := h.notificationSvc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, dto.MarkAllReadResponse{Updated: updated})
}

// ClearNotifications 清空通知
// DELETE /api/v1/notifications
func (h *NotificationHandler) ClearNotifications(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	deleted, err := h.notificationSvc.ClearAll(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, dto.ClearNotificationsResponse{Deleted: deleted})
}

func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidNotificationType),
		errors.Is(err, service.ErrNotificationTitleEmpty):
		response.BadRequest(c, codeNotificationInvalid, err.Error())
	default:
		response.InternalError(c)
	}
}
