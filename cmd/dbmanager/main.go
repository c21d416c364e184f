// main.go

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/jacl-coder/RPS-Server/config"
	"github.com/jacl-coder/RPS-Server/internal/store"
	"github.com/jacl-coder/RPS-Server/pkg/db"
)

// demoScores 演示用最高分
var demoScores = map[string]int{
	"alice": 12,
	"bob":   9,
	"carol": 9,
	"dave":  4,
	"erin":  1,
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("未找到.env文件，使用系统环境变量")
	}

	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	action := flag.String("action", "help", "操作类型: init, reset, seed, help")
	flag.Parse()

	// 显示帮助信息
	if *action == "help" {
		showHelp()
		return
	}

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库连接
	if err := db.InitPostgres(); err != nil {
		log.Fatalf("初始化PostgreSQL失败: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 执行操作
	switch *action {
	case "init":
		initDatabase(ctx)
	case "reset":
		resetDatabase(ctx)
	case "seed":
		seedDatabase(ctx)
	default:
		log.Fatalf("未知操作: %s", *action)
	}
}

// showHelp 显示帮助信息
func showHelp() {
	log.Println("RPS-Server 数据库管理工具")
	log.Println("")
	log.Println("用法:")
	log.Println("  dbmanager -action=<操作> [-config=<配置文件>]")
	log.Println("")
	log.Println("操作:")
	log.Println("  init   - 初始化数据库（创建表结构）")
	log.Println("  reset  - 重置数据库（删除表后重新创建）")
	log.Println("  seed   - 写入演示最高分")
	log.Println("  help   - 显示此帮助信息")
}

// initDatabase 初始化数据库
func initDatabase(ctx context.Context) {
	log.Println("正在初始化数据库...")

	if err := db.InitAllTables(ctx, db.DB); err != nil {
		log.Fatalf("初始化数据库表失败: %v", err)
	}

	log.Println("数据库初始化完成，已创建的表:")
	for _, table := range db.Tables {
		log.Printf("  - %s", table)
	}
}

// resetDatabase 重置数据库
func resetDatabase(ctx context.Context) {
	log.Println("正在重置数据库，这将删除所有最高分和战绩！")

	if err := db.DropAllTables(ctx, db.DB); err != nil {
		log.Fatalf("重置数据库失败: %v", err)
	}
	initDatabase(ctx)
}

// seedDatabase 通过最高分存储写入演示数据，在线的排行榜会收到通知
func seedDatabase(ctx context.Context) {
	if err := db.InitAllTables(ctx, db.DB); err != nil {
		log.Fatalf("初始化数据库表失败: %v", err)
	}

	cfg := config.GlobalConfig
	scores := store.NewPostgresScoreStore(db.DB, cfg.Database.GetDSN(), cfg.Store.Channel)
	for username, score := range demoScores {
		if err := scores.WriteBest(ctx, username, score); err != nil {
			log.Fatalf("写入 %s 的最高分失败: %v", username, err)
		}
		log.Printf("  %s: %d", username, score)
	}

	log.Printf("已写入 %d 条演示最高分", len(demoScores))
}
