package model

import (
	"math"
	"time"
)

// SkillLevel 表示学习计划面向的技能层级。
type SkillLevel string

const (
	SkillLevelBeginner     SkillLevel = "Beginner"
	SkillLevelIntermediate SkillLevel = "Intermediate"
	SkillLevelAdvanced     SkillLevel = "Advanced"
)

// ResourceType 表示学习资源的类型。
type ResourceType string

const (
	ResourceTypeVideo   ResourceType = "video"
	ResourceTypeArticle ResourceType = "article"
	ResourceTypeBook    ResourceType = "book"
	ResourceTypeCourse  ResourceType = "course"
	ResourceTypeTool    ResourceType = "tool"
)

// LearningLesson 是计划中唯一可独立置位的叶子状态（completed 标志）。
type LearningLesson struct {
	ID        string `gorm:"primaryKey;size:64" json:"id"`
	ModuleID  string `gorm:"index;not null;size:64" json:"-"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Duration  string `gorm:"size:64" json:"duration"`
	Completed bool   `gorm:"not null;default:false" json:"completed"`
	Content   string `gorm:"type:text" json:"content,omitempty"`
	SortOrder int    `gorm:"not null;default:0" json:"-"`
}

func (LearningLesson) TableName() string {
	return "learning_lessons"
}

// LearningModule 的 progress/completed 均为派生字段，由课时完成度实时重算。
type LearningModule struct {
	ID          string           `gorm:"primaryKey;size:64" json:"id"`
	PlanID      string           `gorm:"index;not null;size:64" json:"-"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Duration    string           `gorm:"size:64" json:"duration"`
	Completed   bool             `gorm:"not null;default:false" json:"completed"`
	Progress    int              `gorm:"not null;default:0" json:"progress"`
	Lessons     []LearningLesson `gorm:"foreignKey:ModuleID;references:ID;constraint:OnDelete:CASCADE" json:"lessons"`
	SortOrder   int              `gorm:"not null;default:0" json:"-"`
}

func (LearningModule) TableName() string {
	return "learning_modules"
}

// LearningResource 不参与进度计算。
type LearningResource struct {
	ID          string       `gorm:"primaryKey;size:64" json:"id"`
	PlanID      string       `gorm:"index;not null;size:64" json:"-"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Type        ResourceType `gorm:"size:32;not null" json:"type"`
	URL         string       `gorm:"size:2048" json:"url"`
	Description string       `gorm:"type:text" json:"description"`
	Duration    string       `gorm:"size:64" json:"duration,omitempty"`
	SortOrder   int          `gorm:"not null;default:0" json:"-"`
}

func (LearningResource) TableName() string {
	return "learning_resources"
}

// LearningPlan 是由结构化数据物化出的学习计划。
// 一个会话最多拥有一个计划，session_id 上带唯一索引，
// 重新生成时按会话替换而不是追加新行。
type LearningPlan struct {
	ID            string             `gorm:"primaryKey;size:64" json:"id"`
	SessionID     string             `gorm:"uniqueIndex;not null;size:64" json:"sessionId"`
	Title         string             `gorm:"size:255;not null" json:"title"`
	Description   string             `gorm:"type:text" json:"description"`
	Duration      string             `gorm:"size:64" json:"duration"`
	SkillLevel    SkillLevel         `gorm:"size:32;not null" json:"skillLevel"`
	TotalProgress int                `gorm:"not null;default:0" json:"totalProgress"`
	Revision      int64              `gorm:"not null;default:0" json:"revision"`
	Modules       []LearningModule   `gorm:"foreignKey:PlanID;references:ID;constraint:OnDelete:CASCADE" json:"modules"`
	Resources     []LearningResource `gorm:"foreignKey:PlanID;references:ID;constraint:OnDelete:CASCADE" json:"resources"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (LearningPlan) TableName() string {
	return "learning_plans"
}

// progressPercent 按完成数/总数折算整数百分比，空集合视为 0。
func progressPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// RecalculateProgress 同步重算每个模块及整体的进度。
// 这些派生值从不作为独立事实存储，任何课时翻转后都必须调用。
func (p *LearningPlan) RecalculateProgress() {
	totalLessons := 0
	totalCompleted := 0
	for i := range p.Modules {
		m := &p.Modules[i]
		completed := 0
		for _, l := range m.Lessons {
			if l.Completed {
				completed++
			}
		}
		m.Progress = progressPercent(completed, len(m.Lessons))
		m.Completed = len(m.Lessons) > 0 && m.Progress == 100
		totalLessons += len(m.Lessons)
		totalCompleted += completed
	}
	p.TotalProgress = progressPercent(totalCompleted, totalLessons)
}

// ToggleLesson 翻转指定课时的完成标志并重算进度。
// 返回 false 表示模块或课时不存在，计划保持不变。
func (p *LearningPlan) ToggleLesson(moduleID, lessonID string) bool {
	for i := range p.Modules {
		if p.Modules[i].ID != moduleID {
			continue
		}
		for j := range p.Modules[i].Lessons {
			if p.Modules[i].Lessons[j].ID == lessonID {
				p.Modules[i].Lessons[j].Completed = !p.Modules[i].Lessons[j].Completed
				p.RecalculateProgress()
				return true
			}
		}
		return false
	}
	return false
}
