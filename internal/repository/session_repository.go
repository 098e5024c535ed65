package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 缓存键与过期时间，沿用 7 天 TTL。
const (
	sessionCacheKeyFormat = "session:%s"
	cacheTTL              = 7 * 24 * time.Hour
)

// SessionRepository 定义了会话记录的操作接口。
type SessionRepository interface {
	List(ctx context.Context) ([]model.ChatSession, error)
	Get(ctx context.Context, id string) (*model.ChatSession, error)
	// Save 执行全量 upsert：会话行按主键插入或更新，消息整体删除后重建。
	// 携带过期 revision 的写入返回 ErrStaleWrite。
	Save(ctx context.Context, session *model.ChatSession) error
	Delete(ctx context.Context, id string) error
}

type sessionRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
// redisClient 传 nil 时读缓存关闭，所有读写直达数据库。
func NewSessionRepository(db *gorm.DB, redisClient *redis.Client) SessionRepository {
	return &sessionRepository{db: db, redisClient: redisClient}
}

// List 按最近更新倒序返回全部会话，消息按时间升序嵌套。
func (r *sessionRepository) List(ctx context.Context) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Get 返回单个会话，优先命中 Redis 缓存。
func (r *sessionRepository) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	if cached := r.getFromCache(ctx, id); cached != nil {
		return cached, nil
	}

	var session model.ChatSession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC")
		}).
		First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	r.setCache(ctx, &session)
	return &session, nil
}

// Save 在单个事务内完成会话 upsert 与消息重建。
func (r *sessionRepository) Save(ctx context.Context, session *model.ChatSession) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ChatSession
		err := tx.Select("revision").First(&existing, "id = ?", session.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check session revision: %w", err)
		}
		if err == nil && session.Revision < existing.Revision {
			return ErrStaleWrite
		}

		if err := tx.Omit("Messages").
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(session).Error; err != nil {
			return fmt.Errorf("failed to upsert session: %w", err)
		}

		// 消息整体替换，插入顺序即不变序
		if err := tx.Where("session_id = ?", session.ID).
			Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("failed to clear session messages: %w", err)
		}
		if len(session.Messages) > 0 {
			for i := range session.Messages {
				session.Messages[i].SessionID = session.ID
			}
			if err := tx.Create(&session.Messages).Error; err != nil {
				return fmt.Errorf("failed to insert session messages: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidateCache(ctx, session.ID)
	return nil
}

// Delete 删除会话，关联消息由外键级联清理。
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).
		Select(clause.Associations).
		Delete(&model.ChatSession{ID: id}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	r.invalidateCache(ctx, id)
	return nil
}

func (r *sessionRepository) getFromCache(ctx context.Context, id string) *model.ChatSession {
	if r.redisClient == nil {
		return nil
	}
	key := fmt.Sprintf(sessionCacheKeyFormat, id)
	jsonData, err := r.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		log.Warnf("session cache read failed: %v", err)
		return nil
	}
	var session model.ChatSession
	if err := json.Unmarshal([]byte(jsonData), &session); err != nil {
		log.Warnf("session cache entry unmarshal failed: %v", err)
		return nil
	}
	return &session
}

func (r *sessionRepository) setCache(ctx context.Context, session *model.ChatSession) {
	if r.redisClient == nil {
		return
	}
	jsonData, err := json.Marshal(session)
	if err != nil {
		return
	}
	key := fmt.Sprintf(sessionCacheKeyFormat, session.ID)
	if err := r.redisClient.Set(ctx, key, jsonData, cacheTTL).Err(); err != nil {
		log.Warnf("session cache write failed: %v", err)
	}
}

func (r *sessionRepository) invalidateCache(ctx context.Context, id string) {
	if r.redisClient == nil {
		return
	}
	key := fmt.Sprintf(sessionCacheKeyFormat, id)
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		log.Warnf("session cache invalidation failed: %v", err)
	}
}
