package service

import (
	"context"
	"errors"

	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/internal/repository"
)

// SessionService 定义了会话 CRUD 的业务接口。
type SessionService interface {
	List(ctx context.Context) ([]model.ChatSession, error)
	// Get 返回会话详情，计划（若有）嵌套其中。
	Get(ctx context.Context, id string) (*model.SessionDetailDTO, error)
	Save(ctx context.Context, session *model.ChatSession) error
	Delete(ctx context.Context, id string) error
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	planRepo    repository.LearningPlanRepository
}

// NewSessionService 创建一个新的 SessionService 实例。
func NewSessionService(sessionRepo repository.SessionRepository, planRepo repository.LearningPlanRepository) SessionService {
	return &sessionService{sessionRepo: sessionRepo, planRepo: planRepo}
}

func (s *sessionService) List(ctx context.Context) ([]model.ChatSession, error) {
	return s.sessionRepo.List(ctx)
}

func (s *sessionService) Get(ctx context.Context, id string) (*model.SessionDetailDTO, error) {
	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &model.SessionDetailDTO{
		ChatSession:   *session,
		LearningPlans: []model.LearningPlan{},
	}
	plan, err := s.planRepo.GetBySession(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if plan != nil {
		detail.LearningPlans = append(detail.LearningPlans, *plan)
	}
	return detail, nil
}

func (s *sessionService) Save(ctx context.Context, session *model.ChatSession) error {
	if session.Title == "" {
		session.Title = model.SessionTitleFromPrompt(session.InitialPrompt)
	}
	return s.sessionRepo.Save(ctx, session)
}

// Delete 删除会话及其归属的计划（消息由会话级联清理）。
func (s *sessionService) Delete(ctx context.Context, id string) error {
	plan, err := s.planRepo.GetBySession(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if plan != nil {
		if err := s.planRepo.Delete(ctx, plan.ID); err != nil {
			return err
		}
	}
	return s.sessionRepo.Delete(ctx, id)
}
