package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/localmind/localmind/internal/config"
	"github.com/localmind/localmind/internal/database"
	"github.com/localmind/localmind/internal/handler"
	"github.com/localmind/localmind/internal/repository"
	"github.com/localmind/localmind/internal/router"
	"github.com/localmind/localmind/internal/service/dataset"
	"github.com/localmind/localmind/internal/service/embedding"
	"github.com/localmind/localmind/internal/service/sample"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connected: %s", cfg.Database.DBName)

	// 初始化 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// 初始化向量化客户端
	embedder, err := embedding.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to init embedding client: %v", err)
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	datasetSvc := dataset.NewService(repos, cfg, embedder)
	sampleSvc := sample.NewService(repos, cfg, embedder, redisClient)
	handlers := handler.NewHandlers(datasetSvc, sampleSvc)

	// 初始化路由
	r := router.SetupRouter(handlers)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
