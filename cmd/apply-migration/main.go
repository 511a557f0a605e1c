package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/database"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/common/logger"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/config"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"go.uber.org/zap"
)

// 用法: apply-migration [migration_file.sql]
// 不带参数时执行内置建表语句
func main() {
	log, err := logger.NewLogger("info", "console", "apply-migration")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	sqlContent := repository.Schema
	source := "embedded schema"
	if len(os.Args) > 1 {
		b, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatal("Failed to read migration file", zap.String("file", os.Args[1]), zap.Error(err))
		}
		sqlContent = string(b)
		source = os.Args[1]
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to database", zap.String("database", cfg.Database.Database), zap.String("source", source))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	statements := splitStatements(sqlContent)
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatal("Failed to execute statement",
				zap.Int("index", i+1),
				zap.String("statement", stmt[:min(100, len(stmt))]),
				zap.Error(err),
			)
		}
		log.Info("Statement executed", zap.Int("index", i+1), zap.Int("total", len(statements)))
	}

	fmt.Println("Migration completed successfully")
}

// splitStatements 按分号切分，去掉空语句和整行注释
func splitStatements(content string) []string {
	out := make([]string, 0)
	for _, stmt := range strings.Split(content, ";") {
		lines := make([]string, 0)
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}
