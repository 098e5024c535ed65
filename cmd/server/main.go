// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jordanskizash/mindbase/internal/config"
	"github.com/jordanskizash/mindbase/internal/handler"
	"github.com/jordanskizash/mindbase/internal/middleware"
	"github.com/jordanskizash/mindbase/internal/repository"
	"github.com/jordanskizash/mindbase/internal/service"
	"github.com/jordanskizash/mindbase/pkg/database"
	"github.com/jordanskizash/mindbase/pkg/llm"
	"github.com/jordanskizash/mindbase/pkg/log"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库与可选的 Redis 读缓存
	database.InitPostgres(cfg.Database.Postgres.DSN)
	var redisClient *redis.Client
	if cfg.Database.Redis.Enabled {
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		redisClient = database.RDB
	}

	// 4. 初始化 Repository
	sessionRepo := repository.NewSessionRepository(database.DB, redisClient)
	planRepo := repository.NewLearningPlanRepository(database.DB, redisClient)

	// 5. 初始化 Service (依赖注入)
	llmClient := llm.NewClient(cfg.LLM)
	chatService := service.NewChatService(llmClient)
	sessionService := service.NewSessionService(sessionRepo, planRepo)
	planService := service.NewLearningPlanService(planRepo, sessionRepo)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())
	// 前端独立部署，放开跨域
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	// 7. 注册路由
	api := r.Group("/api")
	{
		// 补全流中继
		api.POST("/chat", handler.NewChatHandler(chatService).Stream)

		// 会话 CRUD
		sessionHandler := handler.NewSessionHandler(sessionService)
		sessions := api.Group("/sessions")
		{
			sessions.GET("", sessionHandler.List)
			sessions.POST("", sessionHandler.Save)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.DELETE("/:id", sessionHandler.Delete)
		}

		// 学习计划 CRUD
		planHandler := handler.NewLearningPlanHandler(planService)
		plans := api.Group("/learning-plans")
		{
			plans.GET("", planHandler.List)
			plans.POST("", planHandler.Save)
			plans.GET("/:id", planHandler.Get)
			plans.DELETE("/:id", planHandler.Delete)
		}

		// 面板聚合
		api.GET("/user/learning-plans", planHandler.Overview)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
