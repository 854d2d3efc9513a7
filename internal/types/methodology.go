package types

import "strings"

// Methodology 是封闭的方法论分类。
type Methodology string

const (
	MethodologyIndicatorBased Methodology = "indicator_based"
	MethodologyPriceAction    Methodology = "price_action"
	MethodologySMC            Methodology = "smc"
	MethodologyICT            Methodology = "ict"
	MethodologyWyckoff        Methodology = "wyckoff"
	MethodologyElliottWave    Methodology = "elliott_wave"
	MethodologyHybrid         Methodology = "hybrid"
)

// Methodologies lists the taxonomy in prompt order.
var Methodologies = []Methodology{
	MethodologyIndicatorBased,
	MethodologyPriceAction,
	MethodologySMC,
	MethodologyICT,
	MethodologyWyckoff,
	MethodologyElliottWave,
	MethodologyHybrid,
}

// ParseMethodology 将模型输出的标签映射到分类，未知标签返回 false。
func ParseMethodology(raw string) (Methodology, bool) {
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	s := replacer.Replace(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "indicator_based", "indicator", "indicators":
		return MethodologyIndicatorBased, true
	case "price_action", "priceaction":
		return MethodologyPriceAction, true
	case "smc", "smart_money", "smart_money_concepts":
		return MethodologySMC, true
	case "ict", "inner_circle_trader":
		return MethodologyICT, true
	case "wyckoff":
		return MethodologyWyckoff, true
	case "elliott_wave", "elliott", "elliottwave":
		return MethodologyElliottWave, true
	case "hybrid", "mixed":
		return MethodologyHybrid, true
	default:
		return "", false
	}
}

// IsSmartMoney 报告是否为 SMC/ICT 类方法论。
func (m Methodology) IsSmartMoney() bool {
	return m == MethodologySMC || m == MethodologyICT
}
