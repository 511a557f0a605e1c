// Package scheduler 定时任务：按 cron 周期计算启用的虚拟表公式并写入输出数据点
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// FormulaRunner 公式计算（service.FormulaService 实现）
type FormulaRunner interface {
	ListEnabled(ctx context.Context) ([]*domain.VirtualMeterFormula, error)
	EvaluateAndStore(ctx context.Context, formulaID string) (*service.IngestResult, error)
}

// FormulaScheduler 公式定时计算
type FormulaScheduler struct {
	runner  FormulaRunner
	cron    *cron.Cron
	spec    string
	logger  *zap.Logger
	running sync.Mutex // 上一轮未结束时跳过本轮
}

// NewFormulaScheduler spec 为带秒的 cron 表达式，如 "0 * * * * *"
func NewFormulaScheduler(runner FormulaRunner, spec string, logger *zap.Logger) *FormulaScheduler {
	return &FormulaScheduler{
		runner: runner,
		cron:   cron.New(cron.WithSeconds()),
		spec:   spec,
		logger: logger,
	}
}

// Start 注册任务并启动 cron；ctx 取消后任务内的计算随之取消
func (s *FormulaScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid formula schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Formula scheduler started", zap.String("schedule", s.spec))
	return nil
}

// Stop 停止 cron 并等待正在执行的一轮结束
func (s *FormulaScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Formula scheduler stopped")
}

// RunOnce 计算全部启用公式，返回成功写入的数量
// 单个公式失败不影响其他公式
func (s *FormulaScheduler) RunOnce(ctx context.Context) int {
	if !s.running.TryLock() {
		s.logger.Warn("Previous formula run still in progress, skipped")
		return 0
	}
	defer s.running.Unlock()

	formulas, err := s.runner.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("Failed to list enabled formulas", zap.Error(err))
		return 0
	}

	stored := 0
	for _, f := range formulas {
		if ctx.Err() != nil {
			break
		}
		res, err := s.runner.EvaluateAndStore(ctx, f.ID)
		switch {
		case errors.Is(err, domain.ErrIncompleteInput):
			// 输入点尚无当前值，输出点保持旧值
			s.logger.Debug("Formula inputs incomplete",
				zap.String("formula_code", f.FormulaCode),
				zap.Error(err),
			)
		case err != nil:
			s.logger.Warn("Formula evaluation failed",
				zap.String("formula_code", f.FormulaCode),
				zap.String("error_kind", string(domain.KindOf(err))),
				zap.Error(err),
			)
		default:
			stored++
			s.logger.Debug("Formula evaluated",
				zap.String("formula_code", f.FormulaCode),
				zap.Float64("value", res.Sample.Value),
			)
		}
	}
	return stored
}
