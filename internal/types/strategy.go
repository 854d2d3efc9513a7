package types

// EntryRuleType 入场规则类别。
type EntryRuleType string

const (
	EntrySMC         EntryRuleType = "smc"
	EntryICT         EntryRuleType = "ict"
	EntryIndicator   EntryRuleType = "indicator"
	EntryPriceAction EntryRuleType = "price_action"
	EntryLiquidity   EntryRuleType = "liquidity"
	EntryStructure   EntryRuleType = "structure"
	EntryTime        EntryRuleType = "time"
	EntryConfluence  EntryRuleType = "confluence"
)

// ExitRuleType 出场规则类别。
type ExitRuleType string

const (
	ExitTakeProfit   ExitRuleType = "take_profit"
	ExitStopLoss     ExitRuleType = "stop_loss"
	ExitTrailingStop ExitRuleType = "trailing_stop"
	ExitTimeBased    ExitRuleType = "time_based"
	ExitFixedTarget  ExitRuleType = "fixed_target"
	ExitRiskReward   ExitRuleType = "risk_reward"
	ExitStructure    ExitRuleType = "structure"
	ExitIndicator    ExitRuleType = "indicator"
	ExitTrailing     ExitRuleType = "trailing"
)

// IsTakeProfit 报告该类别是否等价于止盈。
func (t ExitRuleType) IsTakeProfit() bool {
	switch t {
	case ExitTakeProfit, ExitFixedTarget, ExitRiskReward, ExitTrailingStop, ExitTrailing:
		return true
	default:
		return false
	}
}

// IsStopLoss 报告该类别是否等价于止损。
func (t ExitRuleType) IsStopLoss() bool {
	return t == ExitStopLoss
}

// ExitUnit 出场数值的单位，空串表示无单位。
type ExitUnit string

const (
	UnitNone    ExitUnit = ""
	UnitPercent ExitUnit = "percent"
	UnitATR     ExitUnit = "atr"
	UnitRR      ExitUnit = "rr"
	UnitPips    ExitUnit = "pips"
)

// EntryRule 描述一条可观察、可验证的入场条件。
type EntryRule struct {
	ID          string         `json:"id"`
	Type        EntryRuleType  `json:"type"`
	Concept     string         `json:"concept"`
	Condition   string         `json:"condition"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	SourceQuote string         `json:"sourceQuote,omitempty"`
	// IsMandatory 在解码阶段可能缺省（nil），归一化后总有值。
	IsMandatory *bool `json:"isMandatory,omitempty"`
}

// Mandatory 返回归一化后的 isMandatory，缺省视为 false。
func (r EntryRule) Mandatory() bool {
	return r.IsMandatory != nil && *r.IsMandatory
}

// ExitRule 描述一条出场条件。
type ExitRule struct {
	ID          string         `json:"id"`
	Type        ExitRuleType   `json:"type"`
	Value       *float64       `json:"value,omitempty"`
	Unit        ExitUnit       `json:"unit,omitempty"`
	Description string         `json:"description"`
	SourceQuote string         `json:"sourceQuote,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type StopLoss struct {
	Type        string   `json:"type"`
	Value       *float64 `json:"value,omitempty"`
	Placement   string   `json:"placement,omitempty"`
	SourceQuote string   `json:"sourceQuote,omitempty"`
}

type PositionSizing struct {
	Method      string   `json:"method"`
	Value       *float64 `json:"value,omitempty"`
	SourceQuote string   `json:"sourceQuote,omitempty"`
}

// RiskManagement 风控参数。RiskRewardRatio 在归一化之后才是最终数值；
// 模型给出的原始值（"1:2"、"3R"……）保存在 RawRiskReward 中。
type RiskManagement struct {
	StopLoss        *StopLoss       `json:"stopLoss,omitempty"`
	PositionSizing  *PositionSizing `json:"positionSizing,omitempty"`
	RiskRewardRatio *float64        `json:"riskRewardRatio"`

	RawRiskReward any `json:"-"`
}

// ExtractionConfidence 由抽取阶段自报的置信度，各项 0-100。
type ExtractionConfidence struct {
	Overall      float64 `json:"overall"`
	EntryClarity float64 `json:"entryClarity"`
	ExitClarity  float64 `json:"exitClarity"`
	RiskClarity  float64 `json:"riskClarity"`
}

// HasClarity 报告是否给出了任一清晰度分项。
func (c ExtractionConfidence) HasClarity() bool {
	return c.EntryClarity != 0 || c.ExitClarity != 0 || c.RiskClarity != 0
}

// AverageClarity 返回三项清晰度的平均值；没有分项时退回 Overall。
func (c ExtractionConfidence) AverageClarity() float64 {
	if !c.HasClarity() {
		return c.Overall
	}
	return (c.EntryClarity + c.ExitClarity + c.RiskClarity) / 3
}

type TimeframeContext struct {
	Primary  string `json:"primary"`
	HigherTF string `json:"higherTF,omitempty"`
	LowerTF  string `json:"lowerTF,omitempty"`
}

// LegacyMetadata 兼容旧版输出形态，归一化时合并进规范字段。
type LegacyMetadata struct {
	Timeframes          []string `json:"timeframes,omitempty"`
	Pairs               []string `json:"pairs,omitempty"`
	StopLossDescription string   `json:"stopLossDescription,omitempty"`
}

// ExtractedStrategy 是一次抽取的聚合根。
type ExtractedStrategy struct {
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	Methodology          Methodology           `json:"methodology"`
	ConceptsUsed         []string              `json:"conceptsUsed"`
	IndicatorsUsed       []string              `json:"indicatorsUsed"`
	PatternsUsed         []string              `json:"patternsUsed"`
	EntryRules           []EntryRule           `json:"entryRules"`
	ExitRules            []ExitRule            `json:"exitRules"`
	RiskManagement       RiskManagement        `json:"riskManagement"`
	TimeframeContext     TimeframeContext      `json:"timeframeContext"`
	SuitablePairs        []string              `json:"suitablePairs"`
	Difficulty           string                `json:"difficulty,omitempty"`
	RiskLevel            string                `json:"riskLevel,omitempty"`
	Notes                string                `json:"notes,omitempty"`
	ExtractionConfidence *ExtractionConfidence `json:"extractionConfidence,omitempty"`
	Metadata             *LegacyMetadata       `json:"metadata,omitempty"`
}

// ActionabilityResult 是校验的派生结果，不落库。
type ActionabilityResult struct {
	IsActionable      bool     `json:"isActionable"`
	HasEntry          bool     `json:"hasEntry"`
	HasExit           bool     `json:"hasExit"`
	HasRiskManagement bool     `json:"hasRiskManagement"`
	Warnings          []string `json:"warnings"`
	MissingElements   []string `json:"missingElements"`
	Score             int      `json:"score"`
}
