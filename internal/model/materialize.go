package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanPayload 对应围栏 JSON 块的顶层结构 {"learningPlan": {...}}。
type PlanPayload struct {
	LearningPlan *PlanDocument `json:"learningPlan"`
}

// PlanDocument 是模型产出的原始计划文档，字段均不可信，
// 物化时统一补默认值并清零进度。
type PlanDocument struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Duration      string             `json:"duration"`
	SkillLevel    string             `json:"skillLevel"`
	TotalProgress int                `json:"totalProgress"`
	Modules       []ModuleDocument   `json:"modules"`
	Resources     []ResourceDocument `json:"resources"`
}

type ModuleDocument struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Duration    string           `json:"duration"`
	Completed   bool             `json:"completed"`
	Progress    int              `json:"progress"`
	Lessons     []LessonDocument `json:"lessons"`
}

type LessonDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Duration  string `json:"duration"`
	Content   string `json:"content"`
}

type ResourceDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// NewPlanFromDocument 把解析出的计划文档物化为归属于指定会话的全新计划。
// 无论来源 JSON 里带什么完成标志，课时一律重置为未完成、进度清零；
// 缺失的 id 统一补发。
func NewPlanFromDocument(sessionID string, doc *PlanDocument) *LearningPlan {
	now := time.Now()
	plan := &LearningPlan{
		ID:            "plan_" + uuid.NewString(),
		SessionID:     sessionID,
		Title:         orDefault(doc.Title, "New Learning Plan"),
		Description:   doc.Description,
		Duration:      orDefault(doc.Duration, "8 weeks"),
		SkillLevel:    SkillLevel(orDefault(doc.SkillLevel, string(SkillLevelIntermediate))),
		TotalProgress: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for mi, md := range doc.Modules {
		module := LearningModule{
			ID:          orDefault(md.ID, uuid.NewString()),
			PlanID:      plan.ID,
			Title:       md.Title,
			Description: md.Description,
			Duration:    md.Duration,
			Completed:   false,
			Progress:    0,
			SortOrder:   mi,
		}
		for li, ld := range md.Lessons {
			module.Lessons = append(module.Lessons, LearningLesson{
				ID:        orDefault(ld.ID, uuid.NewString()),
				ModuleID:  module.ID,
				Title:     ld.Title,
				Duration:  ld.Duration,
				Completed: false,
				Content:   ld.Content,
				SortOrder: li,
			})
		}
		plan.Modules = append(plan.Modules, module)
	}

	for ri, rd := range doc.Resources {
		plan.Resources = append(plan.Resources, LearningResource{
			ID:          orDefault(rd.ID, uuid.NewString()),
			PlanID:      plan.ID,
			Title:       rd.Title,
			Type:        ResourceType(rd.Type),
			URL:         rd.URL,
			Description: rd.Description,
			Duration:    rd.Duration,
			SortOrder:   ri,
		})
	}

	return plan
}
