// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jacl-coder/RPS-Server/config"
	"github.com/jacl-coder/RPS-Server/internal/game"
	"github.com/jacl-coder/RPS-Server/internal/gateway"
	"github.com/jacl-coder/RPS-Server/internal/leaderboard"
	"github.com/jacl-coder/RPS-Server/internal/stats"
	"github.com/jacl-coder/RPS-Server/internal/store"
	"github.com/jacl-coder/RPS-Server/pkg/db"
)

func main() {
	// 读取 .env，不存在时直接使用系统环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到.env文件，使用系统环境变量")
	}

	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	cfg := &config.GlobalConfig

	if cfg.Server.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// 按需初始化数据库连接
	if usesBackend(cfg, "postgres") {
		if err := db.InitPostgres(); err != nil {
			log.Fatalf("初始化PostgreSQL失败: %v", err)
		}
		defer db.Close()
	}
	if usesBackend(cfg, "redis") {
		if err := db.InitRedis(); err != nil {
			log.Fatalf("初始化Redis失败: %v", err)
		}
		defer db.CloseRedis()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scoreStore, err := newScoreStore(cfg)
	if err != nil {
		log.Fatalf("创建最高分存储失败: %v", err)
	}
	statsStorage, err := newStatsStorage(cfg)
	if err != nil {
		log.Fatalf("创建战绩存储失败: %v", err)
	}

	// 战绩读取失败不影响启动，按空表处理
	aggregator := stats.NewAggregator(statsStorage)
	if err := aggregator.Load(ctx); err != nil {
		log.Printf("加载战绩失败，使用空表: %v", err)
	}

	sessions := game.NewSessionManager(scoreStore, game.Options{
		HistoryLimit: cfg.Game.HistoryLimit,
		NoticeTTL:    cfg.Game.NoticeTTL,
		StoreTimeout: cfg.Game.StoreTimeout,
	}, cfg.Game.SessionIdleTimeout)
	if err := sessions.Start(); err != nil {
		log.Fatalf("启动会话管理器失败: %v", err)
	}

	service := game.NewService(game.RandomMoveGenerator{}, aggregator)

	board := leaderboard.NewBoard(scoreStore, cfg.Game.LeaderboardLimit)
	if err := board.Start(ctx); err != nil {
		log.Fatalf("启动排行榜失败: %v", err)
	}

	gatewayServer := gateway.NewGateway(cfg, sessions, service, board)
	if err := gatewayServer.Start(); err != nil {
		log.Fatalf("启动网关服务失败: %v", err)
	}

	log.Printf("所有服务已启动（最高分: %s，战绩: %s）", cfg.Store.Backend, cfg.Stats.Backend)

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("接收到关闭信号，正在关闭服务器...")

	if err := gatewayServer.Stop(); err != nil {
		log.Printf("关闭网关失败: %v", err)
	}
	sessions.Stop()
	board.Stop()

	log.Println("服务器已安全关闭")
}

// usesBackend 最高分或战绩是否使用指定后端
func usesBackend(cfg *config.Config, backend string) bool {
	return cfg.Store.Backend == backend || cfg.Stats.Backend == backend
}

// newScoreStore 按配置创建最高分存储
func newScoreStore(cfg *config.Config) (store.ScoreStore, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return store.NewMemoryScoreStore(), nil
	case "redis":
		return store.NewRedisScoreStore(db.RedisClient, cfg.Store.RedisKey, cfg.Store.Channel), nil
	case "postgres":
		return store.NewPostgresScoreStore(db.DB, cfg.Database.GetDSN(), cfg.Store.Channel), nil
	default:
		return nil, fmt.Errorf("未知的最高分存储类型: %s", cfg.Store.Backend)
	}
}

// newStatsStorage 按配置创建战绩存储
func newStatsStorage(cfg *config.Config) (stats.Storage, error) {
	switch cfg.Stats.Backend {
	case "", "file":
		return stats.NewFileStorage(nil, cfg.Stats.Path), nil
	case "redis":
		return stats.NewRedisStorage(db.RedisClient, cfg.Stats.RedisKey), nil
	case "postgres":
		return stats.NewPostgresStorage(db.DB), nil
	default:
		return nil, fmt.Errorf("未知的战绩存储类型: %s", cfg.Stats.Backend)
	}
}
