package domain

// PointType 数据点类型
type PointType string

const (
	PointTypeReal    PointType = "REAL"    // 实体点
	PointTypeVirtual PointType = "VIRTUAL" // 虚拟点（公式计算）
)

func (t PointType) Valid() bool {
	return t == PointTypeReal || t == PointTypeVirtual
}

// MeasurementType 计量类型
type MeasurementType string

const (
	MeasurementAnalog     MeasurementType = "ANALOG"
	MeasurementDigital    MeasurementType = "DIGITAL"
	MeasurementCumulative MeasurementType = "CUMULATIVE"
)

func (t MeasurementType) Valid() bool {
	switch t {
	case MeasurementAnalog, MeasurementDigital, MeasurementCumulative:
		return true
	}
	return false
}

// CollectionMode 采集方式
type CollectionMode string

const (
	CollectionRealtime CollectionMode = "REALTIME"
	CollectionPolling  CollectionMode = "POLLING"
	CollectionManual   CollectionMode = "MANUAL"
)

func (m CollectionMode) Valid() bool {
	switch m {
	case CollectionRealtime, CollectionPolling, CollectionManual:
		return true
	}
	return false
}

// DataQuality 数据质量
type DataQuality string

const (
	QualityGood      DataQuality = "GOOD"
	QualityBad       DataQuality = "BAD"
	QualityUncertain DataQuality = "UNCERTAIN"
)

// DataSource 数据来源
type DataSource string

const (
	SourceAuto       DataSource = "AUTO"       // 自动采集
	SourceManual     DataSource = "MANUAL"     // 人工录入
	SourceCalculated DataSource = "CALCULATED" // 公式计算
)

func (s DataSource) Valid() bool {
	switch s {
	case SourceAuto, SourceManual, SourceCalculated:
		return true
	}
	return false
}

// AlarmType 报警类型
type AlarmType string

const (
	AlarmTypeHigh  AlarmType = "HIGH"  // 超上限
	AlarmTypeLow   AlarmType = "LOW"   // 低于下限
	AlarmTypeRange AlarmType = "RANGE" // 超出范围
)

func (t AlarmType) Valid() bool {
	switch t {
	case AlarmTypeHigh, AlarmTypeLow, AlarmTypeRange:
		return true
	}
	return false
}

// AlarmLevel 报警级别
type AlarmLevel string

const (
	AlarmLevelInfo     AlarmLevel = "INFO"
	AlarmLevelWarning  AlarmLevel = "WARNING"
	AlarmLevelError    AlarmLevel = "ERROR"
	AlarmLevelCritical AlarmLevel = "CRITICAL"
)

func (l AlarmLevel) Valid() bool {
	switch l {
	case AlarmLevelInfo, AlarmLevelWarning, AlarmLevelError, AlarmLevelCritical:
		return true
	}
	return false
}

// Severity 数值越大越严重
func (l AlarmLevel) Severity() int {
	switch l {
	case AlarmLevelInfo:
		return 1
	case AlarmLevelWarning:
		return 2
	case AlarmLevelError:
		return 3
	case AlarmLevelCritical:
		return 4
	}
	return 0
}

// AlarmStatus 报警记录状态
// ACTIVE -> ACKNOWLEDGED -> RECOVERED, ACTIVE -> RECOVERED
type AlarmStatus string

const (
	AlarmStatusActive       AlarmStatus = "ACTIVE"
	AlarmStatusAcknowledged AlarmStatus = "ACKNOWLEDGED"
	AlarmStatusRecovered    AlarmStatus = "RECOVERED"
)

func (s AlarmStatus) Valid() bool {
	switch s {
	case AlarmStatusActive, AlarmStatusAcknowledged, AlarmStatusRecovered:
		return true
	}
	return false
}

// StatisticsPeriod 统计周期
type StatisticsPeriod string

const (
	PeriodHourly  StatisticsPeriod = "HOURLY"
	PeriodDaily   StatisticsPeriod = "DAILY"
	PeriodWeekly  StatisticsPeriod = "WEEKLY"
	PeriodMonthly StatisticsPeriod = "MONTHLY"
)

func (p StatisticsPeriod) Valid() bool {
	switch p {
	case PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// Granularity 曲线粒度：RAW 为原始采样，其余对应统计周期
type Granularity string

const (
	GranularityRaw     Granularity = "RAW"
	GranularityHourly  Granularity = Granularity(PeriodHourly)
	GranularityDaily   Granularity = Granularity(PeriodDaily)
	GranularityWeekly  Granularity = Granularity(PeriodWeekly)
	GranularityMonthly Granularity = Granularity(PeriodMonthly)
)

// Period 返回对应的统计周期；RAW 返回 false
func (g Granularity) Period() (StatisticsPeriod, bool) {
	p := StatisticsPeriod(g)
	if g == GranularityRaw || !p.Valid() {
		return "", false
	}
	return p, true
}

// FormulaOperator 公式运算符
type FormulaOperator string

const (
	OperatorAdd      FormulaOperator = "ADD"
	OperatorSubtract FormulaOperator = "SUBTRACT"
	OperatorMultiply FormulaOperator = "MULTIPLY"
	OperatorDivide   FormulaOperator = "DIVIDE"
)

func (o FormulaOperator) Valid() bool {
	switch o {
	case OperatorAdd, OperatorSubtract, OperatorMultiply, OperatorDivide:
		return true
	}
	return false
}

// Symbol 显示用符号
func (o FormulaOperator) Symbol() string {
	switch o {
	case OperatorAdd:
		return "+"
	case OperatorSubtract:
		return "-"
	case OperatorMultiply:
		return "*"
	case OperatorDivide:
		return "/"
	}
	return "?"
}

// SpaceNodeType 空间节点类型
type SpaceNodeType string

const (
	SpaceNodeCompany  SpaceNodeType = "COMPANY"
	SpaceNodeRegion   SpaceNodeType = "REGION"
	SpaceNodeBuilding SpaceNodeType = "BUILDING"
	SpaceNodeFloor    SpaceNodeType = "FLOOR"
	SpaceNodeRoom     SpaceNodeType = "ROOM"
	SpaceNodeOther    SpaceNodeType = "OTHER"
)

func (t SpaceNodeType) Valid() bool {
	switch t {
	case SpaceNodeCompany, SpaceNodeRegion, SpaceNodeBuilding, SpaceNodeFloor, SpaceNodeRoom, SpaceNodeOther:
		return true
	}
	return false
}

// AnalysisModelType 分析模型类型
type AnalysisModelType string

const (
	ModelTypeDevice        AnalysisModelType = "DEVICE"
	ModelTypeCustomer      AnalysisModelType = "CUSTOMER"
	ModelTypeRegion        AnalysisModelType = "REGION"
	ModelTypeDeviceType    AnalysisModelType = "DEVICE_TYPE"
	ModelTypeComprehensive AnalysisModelType = "COMPREHENSIVE"
)

func (t AnalysisModelType) Valid() bool {
	switch t {
	case ModelTypeDevice, ModelTypeCustomer, ModelTypeRegion, ModelTypeDeviceType, ModelTypeComprehensive:
		return true
	}
	return false
}

// MeterType 表计类型
type MeterType string

const (
	MeterWater       MeterType = "WATER"
	MeterElectric    MeterType = "ELECTRIC"
	MeterPressure    MeterType = "PRESSURE"
	MeterFlow        MeterType = "FLOW"
	MeterTemperature MeterType = "TEMPERATURE"
	MeterVibration   MeterType = "VIBRATION"
	MeterLevel       MeterType = "LEVEL"
	MeterSpeed       MeterType = "SPEED"
	MeterPower       MeterType = "POWER"
	MeterOther       MeterType = "OTHER"
)

func (t MeterType) Valid() bool {
	switch t {
	case MeterWater, MeterElectric, MeterPressure, MeterFlow, MeterTemperature,
		MeterVibration, MeterLevel, MeterSpeed, MeterPower, MeterOther:
		return true
	}
	return false
}

// AttributeValueType 静态属性值类型
type AttributeValueType string

const (
	AttributeString  AttributeValueType = "STRING"
	AttributeNumber  AttributeValueType = "NUMBER"
	AttributeDate    AttributeValueType = "DATE"
	AttributeBoolean AttributeValueType = "BOOLEAN"
)

func (t AttributeValueType) Valid() bool {
	switch t {
	case AttributeString, AttributeNumber, AttributeDate, AttributeBoolean:
		return true
	}
	return false
}
