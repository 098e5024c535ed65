package database

import (
	"time"

	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitPostgres 初始化 Postgres 数据库连接并迁移表结构
func InitPostgres(dsn string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		// 可以在这里添加 GORM 的配置
	})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	// 自动迁移会话与学习计划相关的表
	if err := DB.AutoMigrate(
		&model.ChatSession{},
		&model.Message{},
		&model.LearningPlan{},
		&model.LearningModule{},
		&model.LearningLesson{},
		&model.LearningResource{},
	); err != nil {
		log.Fatal("failed to migrate database schema", err)
	}

	log.Info("Postgres database connected successfully")
}
