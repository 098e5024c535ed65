package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const planCacheKeyFormat = "plan:%s"

// LearningPlanRepository 定义了学习计划的操作接口。
type LearningPlanRepository interface {
	List(ctx context.Context) ([]model.LearningPlan, error)
	Get(ctx context.Context, id string) (*model.LearningPlan, error)
	// GetBySession 返回会话当前的计划，不存在时返回 ErrNotFound。
	GetBySession(ctx context.Context, sessionID string) (*model.LearningPlan, error)
	// Save 执行全量 upsert：计划行按主键插入或更新，模块/课时/资源整体重建。
	// 同一会话下旧的、主键不同的计划行会被先行清除（一个会话至多一个计划）。
	// 携带过期 revision 的写入返回 ErrStaleWrite。
	Save(ctx context.Context, plan *model.LearningPlan) error
	Delete(ctx context.Context, id string) error
}

type learningPlanRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewLearningPlanRepository 创建一个新的 LearningPlanRepository 实例。
// redisClient 传 nil 时读缓存关闭。
func NewLearningPlanRepository(db *gorm.DB, redisClient *redis.Client) LearningPlanRepository {
	return &learningPlanRepository{db: db, redisClient: redisClient}
}

// 统一的嵌套加载：模块与课时、资源均按 sort_order 升序。
func planQuery(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Resources", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		})
}

// List 按最近更新倒序返回全部计划。
func (r *learningPlanRepository) List(ctx context.Context) ([]model.LearningPlan, error) {
	var plans []model.LearningPlan
	err := planQuery(r.db.WithContext(ctx)).
		Order("updated_at DESC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list learning plans: %w", err)
	}
	return plans, nil
}

// Get 返回单个计划，优先命中 Redis 缓存。
func (r *learningPlanRepository) Get(ctx context.Context, id string) (*model.LearningPlan, error) {
	if cached := r.getFromCache(ctx, id); cached != nil {
		return cached, nil
	}

	var plan model.LearningPlan
	err := planQuery(r.db.WithContext(ctx)).First(&plan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learning plan: %w", err)
	}

	r.setCache(ctx, &plan)
	return &plan, nil
}

// GetBySession 按会话查找当前计划（不经缓存，会话详情页直接取最新）。
func (r *learningPlanRepository) GetBySession(ctx context.Context, sessionID string) (*model.LearningPlan, error) {
	var plan model.LearningPlan
	err := planQuery(r.db.WithContext(ctx)).First(&plan, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learning plan by session: %w", err)
	}
	return &plan, nil
}

// Save 在单个事务内完成计划 upsert 与子集合重建。
func (r *learningPlanRepository) Save(ctx context.Context, plan *model.LearningPlan) error {
	var replacedIDs []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.LearningPlan
		err := tx.Select("revision").First(&existing, "id = ?", plan.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check plan revision: %w", err)
		}
		if err == nil && plan.Revision < existing.Revision {
			return ErrStaleWrite
		}

		// 同一会话重新生成计划时替换旧行，避免产生孤儿计划
		var stale []model.LearningPlan
		if err := tx.Select("id").
			Where("session_id = ? AND id <> ?", plan.SessionID, plan.ID).
			Find(&stale).Error; err != nil {
			return fmt.Errorf("failed to find superseded plans: %w", err)
		}
		for _, s := range stale {
			if err := deletePlanRows(tx, s.ID); err != nil {
				return err
			}
			replacedIDs = append(replacedIDs, s.ID)
		}

		if err := tx.Omit("Modules", "Resources").
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(plan).Error; err != nil {
			return fmt.Errorf("failed to upsert learning plan: %w", err)
		}

		// 模块（连同课时）与资源整体替换，sort_order 由切片下标决定
		if err := clearPlanChildren(tx, plan.ID); err != nil {
			return err
		}
		for mi := range plan.Modules {
			module := &plan.Modules[mi]
			module.PlanID = plan.ID
			module.SortOrder = mi
			lessons := module.Lessons
			module.Lessons = nil
			if err := tx.Create(module).Error; err != nil {
				return fmt.Errorf("failed to insert plan module: %w", err)
			}
			for li := range lessons {
				lessons[li].ModuleID = module.ID
				lessons[li].SortOrder = li
			}
			if len(lessons) > 0 {
				if err := tx.Create(&lessons).Error; err != nil {
					return fmt.Errorf("failed to insert module lessons: %w", err)
				}
			}
			module.Lessons = lessons
		}
		for ri := range plan.Resources {
			plan.Resources[ri].PlanID = plan.ID
			plan.Resources[ri].SortOrder = ri
		}
		if len(plan.Resources) > 0 {
			if err := tx.Create(&plan.Resources).Error; err != nil {
				return fmt.Errorf("failed to insert plan resources: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, plan.ID)
	for _, id := range replacedIDs {
		r.invalidateCache(ctx, id)
	}
	return nil
}

// Delete 删除计划及其全部子记录。
func (r *learningPlanRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deletePlanRows(tx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete learning plan: %w", err)
	}
	r.invalidateCache(ctx, id)
	return nil
}

// clearPlanChildren 删除计划的全部模块、课时与资源。
func clearPlanChildren(tx *gorm.DB, planID string) error {
	var moduleIDs []string
	if err := tx.Model(&model.LearningModule{}).
		Where("plan_id = ?", planID).
		Pluck("id", &moduleIDs).Error; err != nil {
		return fmt.Errorf("failed to collect plan modules: %w", err)
	}
	if len(moduleIDs) > 0 {
		if err := tx.Where("module_id IN ?", moduleIDs).
			Delete(&model.LearningLesson{}).Error; err != nil {
			return fmt.Errorf("failed to clear module lessons: %w", err)
		}
	}
	if err := tx.Where("plan_id = ?", planID).
		Delete(&model.LearningModule{}).Error; err != nil {
		return fmt.Errorf("failed to clear plan modules: %w", err)
	}
	if err := tx.Where("plan_id = ?", planID).
		Delete(&model.LearningResource{}).Error; err != nil {
		return fmt.Errorf("failed to clear plan resources: %w", err)
	}
	return nil
}

// deletePlanRows 删除计划行本身及其子记录。
func deletePlanRows(tx *gorm.DB, planID string) error {
	if err := clearPlanChildren(tx, planID); err != nil {
		return err
	}
	if err := tx.Delete(&model.LearningPlan{ID: planID}).Error; err != nil {
		return fmt.Errorf("failed to delete plan row: %w", err)
	}
	return nil
}

func (r *learningPlanRepository) getFromCache(ctx context.Context, id string) *model.LearningPlan {
	if r.redisClient == nil {
		return nil
	}
	key := fmt.Sprintf(planCacheKeyFormat, id)
	jsonData, err := r.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Warnf("plan cache read failed: %v", err)
		return nil
	}
	var plan model.LearningPlan
	if err := json.Unmarshal([]byte(jsonData), &plan); err != nil {
		log.Warnf("plan cache entry unmarshal failed: %v", err)
		return nil
	}
	return &plan
}

func (r *learningPlanRepository) setCache(ctx context.Context, plan *model.LearningPlan) {
	if r.redisClient == nil {
		return
	}
	jsonData, err := json.Marshal(plan)
	if err != nil {
		return
	}
	key := fmt.Sprintf(planCacheKeyFormat, plan.ID)
	if err := r.redisClient.Set(ctx, key, jsonData, cacheTTL).Err(); err != nil {
		log.Warnf("plan cache write failed: %v", err)
	}
}

func (r *learningPlanRepository) invalidateCache(ctx context.Context, id string) {
	if r.redisClient == nil {
		return
	}
	key := fmt.Sprintf(planCacheKeyFormat, id)
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		log.Warnf("plan cache invalidation failed: %v", err)
	}
}
