package dto

// ── 活动记录模块 DTO ──

// CreateActivityRequest 记录活动请求
// Date 为 RFC 3339 时间戳，缺省为当前时间
type CreateActivityRequest struct {
	Type        string  `json:"type"        binding:"required,oneof=medicine goal task reward"`
	Title       string  `json:"title"       binding:"required,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      string  `json:"status"      binding:"required,oneof=completed missed pending"`
	Date        string  `json:"date"        binding:"omitempty"`
	Points      int     `json:"points"      binding:"omitempty,min=0,max=100000"`
}

// ActivityListRequest 活动列表查询参数
// Days 为 0 时返回全部记录
type ActivityListRequest struct {
	Days int `form:"days" binding:"omitempty,min=0,max=3650"`
}

// ActivityResponse 活动记录响应
type ActivityResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status"`
	Date        string  `json:"date"`
	Points      int     `json:"points"`
}

// ActivitySummaryResponse 活动统计响应
type ActivitySummaryResponse struct {
	CompletionRate int   `json:"completion_rate"` // 百分比，0-100
	TotalPoints    int64 `json:"total_points"`
	Completed      int   `json:"completed"`
	Missed         int   `json:"missed"`
	Pending        int   `json:"pending"`
	WindowDays     int   `json:"window_days"`
}
