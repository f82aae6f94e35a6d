package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"remidi/backend/internal/dto"
	"remidi/backend/internal/service"
	"remidi/backend/pkg/response"
)

// 活动模块错误码
const codeActivityInvalid = 14001

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ActivityHandler 活动记录 HTTP 处理器
type ActivityHandler struct {
	activitySvc service.ActivityService
	exportSvc   service.HistoryExportService
}

// NewActivityHandler 创建 ActivityHandler
func NewActivityHandler(activitySvc service.ActivityService, exportSvc service.HistoryExportService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc, exportSvc: exportSvc}
}

// ListActivities 活动记录（最近 days 天，缺省为全部）
// GET /api/v1/activities?days=7
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeActivityInvalid, "参数校验失败")
		return
	}

	list, err := h.activitySvc.List(c.Request.Context(), userID, req.Days)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, list)
}

// CreateActivity 记录一条活动
// POST /api/v1/activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, codeActivityInvalid, "参数校验失败")
		return
	}

	a, err := h.activitySvc.Add(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.Created(c, a)
}

// Summary 最近 7 天完成率与积分合计
// GET /api/v1/activities/summary
func (h *ActivityHandler) Summary(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	summary, err := h.activitySvc.Summary(c.Request.Context(), userID)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	response.OK(c, summary)
}

// ExportActivities 导出活动记录为 Excel
// GET /api/v1/activities/export?days=30
func (h *ActivityHandler) ExportActivities(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ActivityListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, codeActivityInvalid, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportActivities(c.Request.Context(), userID, req.Days)
	if err != nil {
		h.handleActivityError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ActivityHandler) handleActivityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidActivityType),
		errors.Is(err, service.ErrInvalidActivityStatus),
		errors.Is(err, service.ErrInvalidActivityDate):
		response.BadRequest(c, codeActivityInvalid, err.Error())
	default:
		response.InternalError(c)
	}
}
