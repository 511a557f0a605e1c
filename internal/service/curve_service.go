package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// curveFanOut 原始数据查询的并发上限
const curveFanOut = 8

// CurveService 曲线分析与报表
// RAW 读原始采样，其余粒度读对应周期的统计数据
type CurveService struct {
	points  repository.DataPointsRepository
	samples repository.SamplesRepository
	stats   repository.StatisticsRepository
	models  repository.AnalysisModelsRepository
	logger  *zap.Logger
}

// NewCurveService 创建曲线服务
func NewCurveService(
	points repository.DataPointsRepository,
	samples repository.SamplesRepository,
	stats repository.StatisticsRepository,
	models repository.AnalysisModelsRepository,
	logger *zap.Logger,
) *CurveService {
	return &CurveService{points: points, samples: samples, stats: stats, models: models, logger: logger}
}

// CurveRequest 曲线查询请求
// AnalysisModelID 非空时忽略 PointIDs，按模型成员顺序取点（可按 CurveGroup 过滤）
type CurveRequest struct {
	PointIDs        []string           `json:"data_point_ids"`
	AnalysisModelID string             `json:"analysis_model_id,omitempty"`
	CurveGroup      string             `json:"curve_group,omitempty"`
	StartTime       time.Time          `json:"start_time"`
	EndTime         time.Time          `json:"end_time"`
	Granularity     domain.Granularity `json:"granularity"` // 默认 RAW
}

// CurveValue 曲线上的一个点；统计粒度下 Value 为均值
type CurveValue struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	Min   *float64  `json:"min_value,omitempty"`
	Max   *float64  `json:"max_value,omitempty"`
}

// CurveSeries 单个数据点的曲线
type CurveSeries struct {
	DataPointID string       `json:"data_point_id"`
	PointCode   string       `json:"point_code"`
	PointName   string       `json:"point_name"`
	Unit        string       `json:"unit,omitempty"`
	CurveGroup  string       `json:"curve_group,omitempty"`
	CurveColor  string       `json:"curve_color,omitempty"`
	YAxisMin    *float64     `json:"y_axis_min,omitempty"`
	YAxisMax    *float64     `json:"y_axis_max,omitempty"`
	Values      []CurveValue `json:"values"`
}

// curveTarget 已解析的曲线目标点
type curveTarget struct {
	point  *domain.DataPoint
	member *domain.AnalysisModelPoint // 非模型请求为 nil
}

// Curve 曲线查询
// 未解析到的数据点跳过；解析到但没有数据的点返回空序列
func (s *CurveService) Curve(ctx context.Context, req CurveRequest) ([]*CurveSeries, error) {
	if req.StartTime.After(req.EndTime) {
		return nil, fmt.Errorf("start time after end time: %w", domain.ErrInvalidArgument)
	}
	if req.Granularity == "" {
		req.Granularity = domain.GranularityRaw
	}
	period, isStats := req.Granularity.Period()
	if !isStats && req.Granularity != domain.GranularityRaw {
		return nil, fmt.Errorf("unknown granularity %q: %w", req.Granularity, domain.ErrInvalidArgument)
	}

	targets, err := s.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return []*CurveSeries{}, nil
	}

	out := make([]*CurveSeries, len(targets))
	for i, t := range targets {
		out[i] = newSeries(t)
	}

	if isStats {
		err = s.fillFromStatistics(ctx, out, period, req.StartTime, req.EndTime)
	} else {
		err = s.fillFromSamples(ctx, out, req.StartTime, req.EndTime)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func newSeries(t curveTarget) *CurveSeries {
	cs := &CurveSeries{
		DataPointID: t.point.ID,
		PointCode:   t.point.PointCode,
		PointName:   t.point.PointName,
		Unit:        t.point.Unit,
		Values:      []CurveValue{},
	}
	if m := t.member; m != nil {
		if m.DisplayName != "" {
			cs.PointName = m.DisplayName
		}
		cs.CurveGroup = m.CurveGroup
		cs.CurveColor = m.CurveColor
		cs.YAxisMin = m.YAxisMin
		cs.YAxisMax = m.YAxisMax
	}
	return cs
}

func (s *CurveService) resolveTargets(ctx context.Context, req CurveRequest) ([]curveTarget, error) {
	ids := req.PointIDs
	var members map[string]*domain.AnalysisModelPoint
	if req.AnalysisModelID != "" {
		if _, err := s.models.GetAnalysisModel(ctx, req.AnalysisModelID); err != nil {
			return nil, err
		}
		list, err := s.models.ListModelPoints(ctx, req.AnalysisModelID)
		if err != nil {
			return nil, fmt.Errorf("failed to list model points: %w", err)
		}
		ids = make([]string, 0, len(list))
		members = make(map[string]*domain.AnalysisModelPoint, len(list))
		for _, m := range list {
			if req.CurveGroup != "" && m.CurveGroup != req.CurveGroup {
				continue
			}
			if _, dup := members[m.DataPointID]; dup {
				continue
			}
			ids = append(ids, m.DataPointID)
			members[m.DataPointID] = m
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := s.points.ListDataPoints(ctx, repository.DataPointFilter{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load data points: %w", err)
	}
	byID := make(map[string]*domain.DataPoint, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}

	targets := make([]curveTarget, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || seen[id] {
			if !ok {
				s.logger.Debug("Curve point not found, skipped", zap.String("point_id", id))
			}
			continue
		}
		seen[id] = true
		targets = append(targets, curveTarget{point: p, member: members[id]})
	}
	return targets, nil
}

// fillFromSamples 每个点独立查询，结果按请求顺序写回
func (s *CurveService) fillFromSamples(ctx context.Context, series []*CurveSeries, from, to time.Time) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(curveFanOut)
	for _, cs := range series {
		cs := cs
		g.Go(func() error {
			samples, err := s.samples.ListSamples(gctx, cs.DataPointID, from, to)
			if err != nil {
				return fmt.Errorf("failed to list samples of %s: %w", cs.DataPointID, err)
			}
			values := make([]CurveValue, 0, len(samples))
			for _, smp := range samples {
				values = append(values, CurveValue{Time: smp.CollectionTime, Value: smp.Value})
			}
			cs.Values = values
			return nil
		})
	}
	return g.Wait()
}

// fillFromStatistics 一次查询全部点的统计数据，按桶时间排序
func (s *CurveService) fillFromStatistics(ctx context.Context, series []*CurveSeries, period domain.StatisticsPeriod, from, to time.Time) error {
	ids := make([]string, len(series))
	for i, cs := range series {
		ids[i] = cs.DataPointID
	}
	stats, err := s.stats.FindStatistics(ctx, ids, period, from, to)
	if err != nil {
		return fmt.Errorf("failed to find statistics: %w", err)
	}

	byPoint := make(map[string][]*domain.DataStatistics, len(series))
	for _, st := range stats {
		byPoint[st.DataPointID] = append(byPoint[st.DataPointID], st)
	}
	for _, cs := range series {
		list := byPoint[cs.DataPointID]
		sortStatistics(list)
		values := make([]CurveValue, 0, len(list))
		for _, st := range list {
			minV, maxV := st.MinValue, st.MaxValue
			values = append(values, CurveValue{Time: st.BucketTime(), Value: st.AvgValue, Min: &minV, Max: &maxV})
		}
		cs.Values = values
	}
	return nil
}

// HourlyCurve 某一天的小时曲线
func (s *CurveService) HourlyCurve(ctx context.Context, pointIDs []string, date time.Time) ([]*CurveSeries, error) {
	return s.Curve(ctx, CurveRequest{
		PointIDs:    pointIDs,
		StartTime:   startOfDay(date),
		EndTime:     endOfDay(date),
		Granularity: domain.GranularityHourly,
	})
}

// DailyCurve 日期区间的日曲线
func (s *CurveService) DailyCurve(ctx context.Context, pointIDs []string, startDate, endDate time.Time) ([]*CurveSeries, error) {
	return s.Curve(ctx, CurveRequest{
		PointIDs:    pointIDs,
		StartTime:   startOfDay(startDate),
		EndTime:     endOfDay(endDate),
		Granularity: domain.GranularityDaily,
	})
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Second)
}
