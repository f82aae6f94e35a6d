package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"remidi/backend/internal/model"
	"remidi/backend/internal/repository"
	pkgerrors "remidi/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// HistoryExportService 活动历史导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Sheet "活动记录"：每行一条活动，按发生时间倒序
//   - Sheet "统计"：最近 7 天完成率与积分合计
type HistoryExportService interface {
	// ExportActivities days 为 0 时导出全部记录
	ExportActivities(ctx context.Context, userID string, days int) (*bytes.Buffer, string, error)
}

type historyExportService struct {
	repo   *repository.Repository
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewHistoryExportService 创建 HistoryExportService 实例
func NewHistoryExportService(repo *repository.Repository, clk clockwork.Clock, logger *zap.Logger) HistoryExportService {
	return &historyExportService{repo: repo, clock: clk, logger: logger}
}

var activityStatusNames = map[model.ActivityStatus]string{
	model.ActivityStatusCompleted: "已完成",
	model.ActivityStatusMissed:    "已错过",
	model.ActivityStatusPending:   "待完成",
}

// ═══════════════════════════════════════════════════════════
// ExportActivities 导出活动历史为 Excel
// ═══════════════════════════════════════════════════════════

func (s *historyExportService) ExportActivities(ctx context.Context, userID string, days int) (*bytes.Buffer, string, error) {
	if userID == "" {
		return nil, "", pkgerrors.ErrUnauthenticated
	}

	// 1. 查询活动
	var all []model.Activity
	var err error
	if days > 0 {
		since := s.clock.Now().AddDate(0, 0, -days)
		all, err = s.repo.Activity.ListByUser(ctx, userID, &since)
	} else {
		all, err = s.repo.Activity.ListByUser(ctx, userID, nil)
	}
	if err != nil {
		s.logger.Error("列出活动失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", pkgerrors.Persistence("列出活动", err)
	}

	// 2. 统计口径与 ActivityService.Summary 一致
	weekSince := s.clock.Now().AddDate(0, 0, -SummaryWindowDays)
	recent, err := s.repo.Activity.ListByUser(ctx, userID, &weekSince)
	if err != nil {
		s.logger.Error("列出活动失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", pkgerrors.Persistence("列出活动", err)
	}
	points, err := s.repo.Activity.SumPoints(ctx, userID)
	if err != nil {
		s.logger.Error("统计积分失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", pkgerrors.Persistence("统计积分", err)
	}
	summary := summarize(recent)

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "活动记录"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 28)
	f.SetColWidth(sheetName, "D", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 8)
	f.SetColWidth(sheetName, "F", "F", 40)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#C4B5FD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"时间", "类别", "标题", "状态", "积分", "说明"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	row := 2
	for _, a := range all {
		f.SetCellValue(sheetName, cell("A", row), a.OccurredAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheetName, cell("B", row), string(a.Type))
		f.SetCellValue(sheetName, cell("C", row), a.Title)
		f.SetCellValue(sheetName, cell("D", row), activityStatusNames[a.Status])
		f.SetCellValue(sheetName, cell("E", row), a.Points)
		if a.Description != nil {
			f.SetCellValue(sheetName, cell("F", row), *a.Description)
		}
		row++
	}

	statSheet := "统计"
	f.NewSheet(statSheet)
	f.SetColWidth(statSheet, "A", "A", 18)
	stats := [][2]interface{}{
		{"统计窗口（天）", summary.WindowDays},
		{"完成率（%）", summary.CompletionRate},
		{"已完成", summary.Completed},
		{"已错过", summary.Missed},
		{"待完成", summary.Pending},
		{"积分合计", points},
	}
	for i, kv := range stats {
		f.SetCellValue(statSheet, cell("A", i+1), kv[0])
		f.SetCellValue(statSheet, cell("B", i+1), kv[1])
	}

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("activity_history_%s.xlsx", s.clock.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
