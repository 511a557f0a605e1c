// Package evaluator 阈值判断与报警信息渲染
package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
)

// Breach 一次越限判断结果
type Breach struct {
	Breached  bool
	Threshold *float64 // 被突破的限值
	Direction string   // "upper" / "lower"
}

// predicate 每种报警类型一个判断函数
type predicate func(value float64, upper, lower *float64) Breach

var predicates = map[domain.AlarmType]predicate{
	domain.AlarmTypeHigh:  checkHigh,
	domain.AlarmTypeLow:   checkLow,
	domain.AlarmTypeRange: checkRange,
}

// 限值为 nil 时该侧永不越限
func checkHigh(value float64, upper, _ *float64) Breach {
	if upper != nil && value > *upper {
		return Breach{Breached: true, Threshold: upper, Direction: "upper"}
	}
	return Breach{}
}

func checkLow(value float64, _, lower *float64) Breach {
	if lower != nil && value < *lower {
		return Breach{Breached: true, Threshold: lower, Direction: "lower"}
	}
	return Breach{}
}

func checkRange(value float64, upper, lower *float64) Breach {
	if b := checkHigh(value, upper, nil); b.Breached {
		return b
	}
	return checkLow(value, nil, lower)
}

// Check 判断 value 是否违反配置
// 未知报警类型返回 InvalidArgument
func Check(cfg *domain.AlarmConfig, value float64) (Breach, error) {
	p, ok := predicates[cfg.AlarmType]
	if !ok {
		return Breach{}, fmt.Errorf("unknown alarm type %q: %w", cfg.AlarmType, domain.ErrInvalidArgument)
	}
	return p(value, cfg.UpperLimit, cfg.LowerLimit), nil
}

// MessageContext 渲染报警信息所需的上下文
type MessageContext struct {
	Config    *domain.AlarmConfig
	PointName string
	Value     float64
	Breach    Breach
}

// RenderMessage 有模板用模板，没有模板用内置描述
// 模板占位符：{value} {threshold} {upper} {lower} {alarm_name} {point_name}
func RenderMessage(mc MessageContext) string {
	tpl := strings.TrimSpace(mc.Config.AlarmMessageTemplate)
	if tpl == "" {
		return defaultMessage(mc)
	}
	r := strings.NewReplacer(
		"{value}", formatFloat(&mc.Value),
		"{threshold}", formatFloat(mc.Breach.Threshold),
		"{upper}", formatFloat(mc.Config.UpperLimit),
		"{lower}", formatFloat(mc.Config.LowerLimit),
		"{alarm_name}", mc.Config.AlarmName,
		"{point_name}", mc.PointName,
	)
	return r.Replace(tpl)
}

func defaultMessage(mc MessageContext) string {
	cfg := mc.Config
	switch cfg.AlarmType {
	case domain.AlarmTypeHigh:
		return fmt.Sprintf("数值 %.2f 超过上限 %s", mc.Value, formatFloat(cfg.UpperLimit))
	case domain.AlarmTypeLow:
		return fmt.Sprintf("数值 %.2f 低于下限 %s", mc.Value, formatFloat(cfg.LowerLimit))
	case domain.AlarmTypeRange:
		return fmt.Sprintf("数值 %.2f 超出范围 [%s, %s]", mc.Value, formatFloat(cfg.LowerLimit), formatFloat(cfg.UpperLimit))
	}
	return fmt.Sprintf("数值 %.2f 触发报警", mc.Value)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
