package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/metrics"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxFormulaPrecision 公式结果最多保留的小数位
const maxFormulaPrecision = 10

// FormulaService 虚拟表公式：配置管理与计算
type FormulaService struct {
	formulas  repository.FormulasRepository
	points    repository.DataPointsRepository
	telemetry *TelemetryService
	logger    *zap.Logger
}

// NewFormulaService 创建公式服务
func NewFormulaService(
	formulas repository.FormulasRepository,
	points repository.DataPointsRepository,
	telemetry *TelemetryService,
	logger *zap.Logger,
) *FormulaService {
	return &FormulaService{formulas: formulas, points: points, telemetry: telemetry, logger: logger}
}

// ============================================
// 计算
// ============================================

// Evaluate 计算公式结果，不落库
// 参数按 sort_order 依次参与运算，累加器初始为 0：
// 项 = 当前值 × 系数，再按运算符与累加器合并。结果按精度四舍五入（远离零）
func (s *FormulaService) Evaluate(ctx context.Context, formulaID string) (float64, error) {
	f, err := s.formulas.GetFormula(ctx, formulaID)
	if err != nil {
		return 0, err
	}
	params, err := s.formulas.ListParameters(ctx, formulaID)
	if err != nil {
		return 0, fmt.Errorf("failed to list formula parameters: %w", err)
	}
	v, err := s.compute(ctx, f, params)
	if err != nil {
		metrics.FormulaEvaluations.WithLabelValues(string(domain.KindOf(err))).Inc()
		return 0, err
	}
	metrics.FormulaEvaluations.WithLabelValues("ok").Inc()
	return v, nil
}

func (s *FormulaService) compute(ctx context.Context, f *domain.VirtualMeterFormula, params []*domain.FormulaParameter) (float64, error) {
	ordered := make([]*domain.FormulaParameter, len(params))
	copy(ordered, params)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })

	acc := decimal.Zero
	for _, p := range ordered {
		cv, err := s.telemetry.CurrentValue(ctx, p.DataPointID)
		if err != nil {
			return 0, fmt.Errorf("formula %s parameter %s: %w", f.FormulaCode, p.ParameterName, err)
		}
		term := decimal.NewFromFloat(cv.Value).Mul(decimal.NewFromFloat(p.Coefficient))

		switch p.Operator {
		case domain.OperatorAdd, "":
			acc = acc.Add(term)
		case domain.OperatorSubtract:
			acc = acc.Sub(term)
		case domain.OperatorMultiply:
			acc = acc.Mul(term)
		case domain.OperatorDivide:
			if term.IsZero() {
				return 0, fmt.Errorf("formula %s parameter %s divides by zero: %w", f.FormulaCode, p.ParameterName, domain.ErrInvalidArgument)
			}
			acc = acc.Div(term)
		default:
			return 0, fmt.Errorf("formula %s parameter %s has unknown operator %q: %w", f.FormulaCode, p.ParameterName, p.Operator, domain.ErrInvalidArgument)
		}
	}

	precision := f.Precision
	if precision < 0 {
		precision = 0
	}
	result, _ := acc.Round(int32(precision)).Float64()
	return result, nil
}

// EvaluateAndStore 计算并写入输出数据点（来源 CALCULATED），结果会进入报警判断
func (s *FormulaService) EvaluateAndStore(ctx context.Context, formulaID string) (*IngestResult, error) {
	f, err := s.formulas.GetFormula(ctx, formulaID)
	if err != nil {
		return nil, err
	}
	v, err := s.Evaluate(ctx, formulaID)
	if err != nil {
		return nil, err
	}
	return s.telemetry.RecordSample(ctx, RecordSampleRequest{
		PointID: f.OutputPointID,
		Value:   v,
		Source:  domain.SourceCalculated,
		Remark:  "formula " + f.FormulaCode,
	})
}

// ============================================
// 配置管理
// ============================================

// FormulaParameterRequest 公式参数
type FormulaParameterRequest struct {
	ParameterName string                 `json:"parameter_name"`
	DataPointID   string                 `json:"data_point_id"`
	Coefficient   *float64               `json:"coefficient"` // 默认 1
	Operator      domain.FormulaOperator `json:"operator"`    // 默认 ADD
	SortOrder     int                    `json:"sort_order"`
	Remark        string                 `json:"remark"`
}

// FormulaRequest 创建/更新公式请求，参数整体替换
type FormulaRequest struct {
	FormulaCode   string                    `json:"formula_code"`
	FormulaName   string                    `json:"formula_name"`
	OutputPointID string                    `json:"output_point_id"`
	Expression    string                    `json:"expression"` // 为空时按参数生成
	Description   string                    `json:"description"`
	Precision     *int                      `json:"precision"` // 默认 2
	Enabled       *bool                     `json:"enabled"`   // 默认 true
	Remark        string                    `json:"remark"`
	Parameters    []FormulaParameterRequest `json:"parameters"`
}

func (s *FormulaService) build(ctx context.Context, f *domain.VirtualMeterFormula, req FormulaRequest) ([]*domain.FormulaParameter, error) {
	f.FormulaCode = strings.TrimSpace(req.FormulaCode)
	f.FormulaName = strings.TrimSpace(req.FormulaName)
	f.OutputPointID = strings.TrimSpace(req.OutputPointID)
	if f.FormulaCode == "" || f.FormulaName == "" || f.OutputPointID == "" {
		return nil, fmt.Errorf("formula_code, formula_name and output_point_id are required: %w", domain.ErrInvalidArgument)
	}
	if req.Precision != nil {
		f.Precision = *req.Precision
	} else if f.ID == "" {
		f.Precision = 2
	}
	if f.Precision < 0 || f.Precision > maxFormulaPrecision {
		return nil, fmt.Errorf("precision must be between 0 and %d: %w", maxFormulaPrecision, domain.ErrInvalidArgument)
	}
	if req.Enabled != nil {
		f.Enabled = *req.Enabled
	} else if f.ID == "" {
		f.Enabled = true
	}
	f.Description = req.Description
	f.Remark = req.Remark

	if _, err := s.points.GetDataPoint(ctx, f.OutputPointID); err != nil {
		return nil, fmt.Errorf("output point: %w", err)
	}

	params := make([]*domain.FormulaParameter, 0, len(req.Parameters))
	for i, pr := range req.Parameters {
		p := &domain.FormulaParameter{
			ParameterName: strings.TrimSpace(pr.ParameterName),
			DataPointID:   strings.TrimSpace(pr.DataPointID),
			Coefficient:   1,
			Operator:      pr.Operator,
			SortOrder:     pr.SortOrder,
			Remark:        pr.Remark,
		}
		if pr.Coefficient != nil {
			p.Coefficient = *pr.Coefficient
		}
		if p.Operator == "" {
			p.Operator = domain.OperatorAdd
		}
		if !p.Operator.Valid() {
			return nil, fmt.Errorf("parameter %d: invalid operator %q: %w", i+1, p.Operator, domain.ErrInvalidArgument)
		}
		if p.DataPointID == "" {
			return nil, fmt.Errorf("parameter %d: data_point_id is required: %w", i+1, domain.ErrInvalidArgument)
		}
		if p.DataPointID == f.OutputPointID {
			return nil, fmt.Errorf("parameter %d references the output point: %w", i+1, domain.ErrInvalidArgument)
		}
		if _, err := s.points.GetDataPoint(ctx, p.DataPointID); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
		if p.ParameterName == "" {
			p.ParameterName = "P" + strconv.Itoa(i+1)
		}
		params = append(params, p)
	}

	f.Expression = strings.TrimSpace(req.Expression)
	if f.Expression == "" {
		f.Expression = renderExpression(params)
	}
	return params, nil
}

// renderExpression 由参数生成展示用表达式，如 "P1*2 - P2*1"
func renderExpression(params []*domain.FormulaParameter) string {
	ordered := make([]*domain.FormulaParameter, len(params))
	copy(ordered, params)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })

	var b strings.Builder
	for i, p := range ordered {
		term := p.ParameterName + "*" + strconv.FormatFloat(p.Coefficient, 'f', -1, 64)
		switch {
		case i == 0 && p.Operator == domain.OperatorAdd:
			b.WriteString(term)
		case i == 0:
			b.WriteString("0 " + p.Operator.Symbol() + " " + term)
		default:
			b.WriteString(" " + p.Operator.Symbol() + " " + term)
		}
	}
	return b.String()
}

func (s *FormulaService) withParameters(ctx context.Context, f *domain.VirtualMeterFormula) (*domain.VirtualMeterFormula, error) {
	params, err := s.formulas.ListParameters(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list formula parameters: %w", err)
	}
	f.Parameters = params
	return f, nil
}

func (s *FormulaService) List(ctx context.Context) ([]*domain.VirtualMeterFormula, error) {
	return s.formulas.ListFormulas(ctx, repository.FormulaFilter{})
}

func (s *FormulaService) ListEnabled(ctx context.Context) ([]*domain.VirtualMeterFormula, error) {
	return s.formulas.ListFormulas(ctx, repository.FormulaFilter{EnabledOnly: true})
}

func (s *FormulaService) Search(ctx context.Context, keyword string) ([]*domain.VirtualMeterFormula, error) {
	return s.formulas.ListFormulas(ctx, repository.FormulaFilter{Keyword: strings.TrimSpace(keyword)})
}

// Get 公式详情（含参数）
func (s *FormulaService) Get(ctx context.Context, id string) (*domain.VirtualMeterFormula, error) {
	f, err := s.formulas.GetFormula(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withParameters(ctx, f)
}

func (s *FormulaService) Create(ctx context.Context, req FormulaRequest) (*domain.VirtualMeterFormula, error) {
	f := &domain.VirtualMeterFormula{}
	params, err := s.build(ctx, f, req)
	if err != nil {
		return nil, err
	}
	if err := s.formulas.CreateFormula(ctx, f); err != nil {
		return nil, err
	}
	if err := s.formulas.ReplaceParameters(ctx, f.ID, params); err != nil {
		return nil, fmt.Errorf("failed to save formula parameters: %w", err)
	}
	f.Parameters = params
	s.logger.Info("Formula created", zap.String("formula_id", f.ID), zap.String("formula_code", f.FormulaCode))
	return f, nil
}

// Update 更新公式，参数先删后插
func (s *FormulaService) Update(ctx context.Context, id string, req FormulaRequest) (*domain.VirtualMeterFormula, error) {
	f, err := s.formulas.GetFormula(ctx, id)
	if err != nil {
		return nil, err
	}
	params, err := s.build(ctx, f, req)
	if err != nil {
		return nil, err
	}
	if err := s.formulas.UpdateFormula(ctx, f); err != nil {
		return nil, err
	}
	if err := s.formulas.ReplaceParameters(ctx, f.ID, params); err != nil {
		return nil, fmt.Errorf("failed to save formula parameters: %w", err)
	}
	f.Parameters = params
	return f, nil
}

// Delete 删除公式及其参数
func (s *FormulaService) Delete(ctx context.Context, id string) error {
	return s.formulas.DeleteFormula(ctx, id)
}
