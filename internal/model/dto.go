package model

// SessionDetailDTO 是会话详情接口的响应体：会话本身加上嵌套的计划。
// learningPlans 保持数组形态以兼容既有前端，当前设计下至多一个元素。
type SessionDetailDTO struct {
	ChatSession
	LearningPlans []LearningPlan `json:"learningPlans"`
}

// PlanSummaryDTO 是面板场景下的计划摘要。
type PlanSummaryDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	TotalProgress int    `json:"totalProgress"`
	ModuleCount   int    `json:"moduleCount"`
}

// SessionOverviewDTO 把会话与其计划摘要拼在一起，供面板的列表页使用。
type SessionOverviewDTO struct {
	SessionID string          `json:"sessionId"`
	Title     string          `json:"title"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
	Plan      *PlanSummaryDTO `json:"plan,omitempty"`
}
