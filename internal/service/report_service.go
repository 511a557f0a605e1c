package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"github.com/xuri/excelize/v2"
)

// ReportKind 报表类型
type ReportKind string

const (
	ReportDaily   ReportKind = "daily"   // 一天的小时统计
	ReportWeekly  ReportKind = "weekly"  // 区间内的日统计
	ReportMonthly ReportKind = "monthly" // 区间内的日统计
)

// Report 报表数据
type Report struct {
	Kind      ReportKind               `json:"kind"`
	StartDate time.Time                `json:"start_date"`
	EndDate   time.Time                `json:"end_date"`
	Rows      []*domain.DataStatistics `json:"rows"`
}

// DailyReport 日报：指定日期的小时统计
func (s *CurveService) DailyReport(ctx context.Context, pointIDs []string, date time.Time) (*Report, error) {
	return s.report(ctx, ReportDaily, pointIDs, domain.PeriodHourly, date, date)
}

// WeeklyReport 周报：区间内的日统计
func (s *CurveService) WeeklyReport(ctx context.Context, pointIDs []string, startDate, endDate time.Time) (*Report, error) {
	return s.report(ctx, ReportWeekly, pointIDs, domain.PeriodDaily, startDate, endDate)
}

// MonthlyReport 月报：区间内的日统计
func (s *CurveService) MonthlyReport(ctx context.Context, pointIDs []string, startDate, endDate time.Time) (*Report, error) {
	return s.report(ctx, ReportMonthly, pointIDs, domain.PeriodDaily, startDate, endDate)
}

// BuildReport 按类型生成报表（daily 只用 startDate）
func (s *CurveService) BuildReport(ctx context.Context, kind ReportKind, pointIDs []string, startDate, endDate time.Time) (*Report, error) {
	switch kind {
	case ReportDaily:
		return s.DailyReport(ctx, pointIDs, startDate)
	case ReportWeekly:
		return s.WeeklyReport(ctx, pointIDs, startDate, endDate)
	case ReportMonthly:
		return s.MonthlyReport(ctx, pointIDs, startDate, endDate)
	}
	return nil, fmt.Errorf("unknown report kind %q: %w", kind, domain.ErrInvalidArgument)
}

func (s *CurveService) report(ctx context.Context, kind ReportKind, pointIDs []string, period domain.StatisticsPeriod, startDate, endDate time.Time) (*Report, error) {
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date after end date: %w", domain.ErrInvalidArgument)
	}
	rep := &Report{Kind: kind, StartDate: startOfDay(startDate), EndDate: startOfDay(endDate), Rows: []*domain.DataStatistics{}}
	if len(pointIDs) == 0 {
		return rep, nil
	}
	rows, err := s.stats.FindStatistics(ctx, pointIDs, period, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to find statistics: %w", err)
	}
	rep.Rows = rows
	return rep, nil
}

// reportHeader 导出表头
var reportHeader = []string{
	"Point Code",
	"Point Name",
	"Unit",
	"Period",
	"Date",
	"Hour",
	"Avg",
	"Max",
	"Min",
	"Sum",
	"Count",
}

// ExportReport 导出报表为 xlsx
func (s *CurveService) ExportReport(ctx context.Context, rep *Report) ([]byte, error) {
	ids := make([]string, 0)
	seen := map[string]bool{}
	for _, r := range rep.Rows {
		if !seen[r.DataPointID] {
			seen[r.DataPointID] = true
			ids = append(ids, r.DataPointID)
		}
	}
	pointByID := map[string]*domain.DataPoint{}
	if len(ids) > 0 {
		points, err := s.points.ListDataPoints(ctx, repository.DataPointFilter{IDs: ids})
		if err != nil {
			return nil, fmt.Errorf("failed to load data points: %w", err)
		}
		for _, p := range points {
			pointByID[p.ID] = p
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("%s report", rep.Kind)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(reportHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	rows := make([]*domain.DataStatistics, len(rep.Rows))
	copy(rows, rep.Rows)
	sortStatistics(rows)

	for i, st := range rows {
		code, name, unit := st.DataPointID, "", ""
		if p, ok := pointByID[st.DataPointID]; ok {
			code, name, unit = p.PointCode, p.PointName, p.Unit
		}
		var hour any = ""
		if st.HourOfDay != nil {
			hour = *st.HourOfDay
		}
		var sum any = ""
		if st.SumValue != nil {
			sum = *st.SumValue
		}
		values := []any{
			code, name, unit, string(st.StatisticsPeriod), st.StatisticsDate.Format("2006-01-02"), hour,
			st.AvgValue, st.MaxValue, st.MinValue, sum, st.DataCount,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sortStatistics 按数据点、桶时间排序（稳定）
func sortStatistics(list []*domain.DataStatistics) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].DataPointID != list[j].DataPointID {
			return list[i].DataPointID < list[j].DataPointID
		}
		return list[i].BucketTime().Before(list[j].BucketTime())
	})
}
