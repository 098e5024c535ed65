package service

import (
	"context"
	"time"

	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/internal/repository"
)

// LearningPlanService 定义了学习计划 CRUD 与面板聚合的业务接口。
type LearningPlanService interface {
	List(ctx context.Context) ([]model.LearningPlan, error)
	Get(ctx context.Context, id string) (*model.LearningPlan, error)
	Save(ctx context.Context, plan *model.LearningPlan) error
	Delete(ctx context.Context, id string) error
	// Overview 返回面板用的会话+计划摘要列表，按会话最近更新倒序。
	Overview(ctx context.Context) ([]model.SessionOverviewDTO, error)
}

type learningPlanService struct {
	planRepo    repository.LearningPlanRepository
	sessionRepo repository.SessionRepository
}

// NewLearningPlanService 创建一个新的 LearningPlanService 实例。
func NewLearningPlanService(planRepo repository.LearningPlanRepository, sessionRepo repository.SessionRepository) LearningPlanService {
	return &learningPlanService{planRepo: planRepo, sessionRepo: sessionRepo}
}

func (s *learningPlanService) List(ctx context.Context) ([]model.LearningPlan, error) {
	return s.planRepo.List(ctx)
}

func (s *learningPlanService) Get(ctx context.Context, id string) (*model.LearningPlan, error) {
	return s.planRepo.Get(ctx, id)
}

// Save 落库前统一重算派生进度，进度字段从不信任客户端快照。
func (s *learningPlanService) Save(ctx context.Context, plan *model.LearningPlan) error {
	plan.RecalculateProgress()
	return s.planRepo.Save(ctx, plan)
}

func (s *learningPlanService) Delete(ctx context.Context, id string) error {
	return s.planRepo.Delete(ctx, id)
}

func (s *learningPlanService) Overview(ctx context.Context) ([]model.SessionOverviewDTO, error) {
	sessions, err := s.sessionRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	plansBySession := make(map[string]*model.LearningPlan, len(plans))
	for i := range plans {
		plansBySession[plans[i].SessionID] = &plans[i]
	}

	overview := make([]model.SessionOverviewDTO, 0, len(sessions))
	for _, sess := range sessions {
		dto := model.SessionOverviewDTO{
			SessionID: sess.ID,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
			UpdatedAt: sess.UpdatedAt.Format(time.RFC3339),
		}
		if plan, ok := plansBySession[sess.ID]; ok {
			dto.Plan = &model.PlanSummaryDTO{
				ID:            plan.ID,
				Title:         plan.Title,
				TotalProgress: plan.TotalProgress,
				ModuleCount:   len(plan.Modules),
			}
		}
		overview = append(overview, dto)
	}
	return overview, nil
}
