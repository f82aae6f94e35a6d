package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/service"
	"remidi/backend/pkg/response"
)

// 提醒模块错误码
const (
	codeReminderInvalid  = 12001
	codeReminderNotFound = 12004
)

// ReminderHandler 提醒模块 HTTP 处理器
type ReminderHandler struct {
	reminderSvc service.ReminderService
	calendarSvc service.CalendarService
}

// NewReminderHandler 创建 ReminderHandler
func NewReminderHandler(reminderSvc service.ReminderService, calendarSvc service.CalendarService) *ReminderHandler {
	return &ReminderHandler{reminderSvc: reminderSvc, calendarSvc: calendarSvc}
}

// ListReminders 提醒列表，每次都重新读取存储
// GET /api/v1/reminders
func (h *ReminderHandler) ListReminders(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.reminderSvc.List(c.Request.Context(), userID)
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, list)
}

// CreateReminder 创建提醒
// POST /api/v1/reminders
func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeReminderInvalid, "参数校验失败")
		return
	}

	reminder, err := h.reminderSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.Created(c, reminder)
}

// GetReminder 获取提醒详情
// GET /api/v1/reminders/:id
func (h *ReminderHandler) GetReminder(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	reminder, err := h.reminderSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, reminder)
}

// UpdateReminder 更新提醒（部分字段）
// PUT /api/v1/reminders/:id
func (h *ReminderHandler) UpdateReminder(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeReminderInvalid, "参数校验失败")
		return
	}

	reminder, err := h.reminderSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, reminder)
}

// DeleteReminder 删除提醒
// DELETE /api/v1/reminders/:id
func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.reminderSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, nil)
}

// ToggleReminder 切换启用状态
// POST /api/v1/reminders/:id/toggle
func (h *ReminderHandler) ToggleReminder(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	reminder, err := h.reminderSvc.Toggle(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	response.OK(c, reminder)
}

// ExportCalendar 导出启用中的提醒为 iCalendar
// GET /api/v1/reminders/calendar.ics
func (h *ReminderHandler) ExportCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.calendarSvc.ExportReminders(c.Request.Context(), userID)
	if err != nil {
		h.handleReminderError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reminders.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

func (h *ReminderHandler) handleReminderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReminderNotFound):
		response.NotFound(c, codeReminderNotFound, "提醒不存在")
	case errors.Is(err, service.ErrInvalidReminderTime),
		errors.Is(err, service.ErrInvalidReminderType),
		errors.Is(err, service.ErrReminderTitleEmpty):
		response.BadRequest(c, codeReminderInvalid, err.Error())
	default:
		response.InternalError(c)
	}
}
