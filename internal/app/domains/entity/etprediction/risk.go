package etprediction

import (
	"fmt"
	"strconv"
	"strings"
)

// RiskTier 风险等级
type RiskTier string

const (
	TierHigh   RiskTier = "High"
	TierMedium RiskTier = "Medium"
	TierLow    RiskTier = "Low"
)

// 阈值均为严格不等式：恰好 0.01 为 Medium，恰好 0.001 为 Low
const (
	highThreshold   = 0.01
	mediumThreshold = 0.001
	scientificBelow = 0.0001
)

var conditionLabels = map[string]string{
	"1dAVb": "1st Degree AV Block",
	"RBBB":  "Right Bundle Branch Block",
	"LBBB":  "Left Bundle Branch Block",
	"SB":    "Sinus Bradycardia",
	"AF":    "Atrial Fibrillation",
	"ST":    "ST Elevation",
}

// TierOf 根据概率计算风险等级
func TierOf(probability float64) RiskTier {
	switch {
	case probability > highThreshold:
		return TierHigh
	case probability > mediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// FormatProbability 格式化概率
// 小于 0.0001 使用科学计数法（如 5.00e-5），否则显示为百分比（如 50.0000%）
func FormatProbability(probability float64) string {
	if probability < scientificBelow {
		return formatExponential(probability)
	}
	return fmt.Sprintf("%.4f%%", probability*100)
}

// formatExponential 两位小数的科学计数法，指数不补零且非负指数带 + 号
func formatExponential(v float64) string {
	s := strconv.FormatFloat(v, 'e', 2, 64)
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}

	n, err := strconv.Atoi(exp)
	if err != nil {
		return s
	}

	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}
	return mantissa + "e" + sign + strconv.Itoa(n)
}

// FullName 病症全称，未知代码原样返回
func FullName(condition string) string {
	if name, ok := conditionLabels[condition]; ok {
		return name
	}
	return condition
}

// RiskAnnotation 单个病症的展示行
type RiskAnnotation struct {
	Condition   string   `json:"condition"`
	FullName    string   `json:"full_name"`
	Probability float64  `json:"probability"`
	Display     string   `json:"display"`
	Tier        RiskTier `json:"tier"`
}

// Annotate 为记录中的每个病症生成展示行，保持记录顺序
func Annotate(record PredictionRecord) []RiskAnnotation {
	rows := make([]RiskAnnotation, 0, len(record))
	for _, p := range record {
		rows = append(rows, RiskAnnotation{
			Condition:   p.Condition,
			FullName:    FullName(p.Condition),
			Probability: p.Probability,
			Display:     FormatProbability(p.Probability),
			Tier:        TierOf(p.Probability),
		})
	}
	return rows
}
