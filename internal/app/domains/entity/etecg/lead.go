package etecg

import "math"

// LeadLabels 标准导联顺序
var LeadLabels = [LeadCount]string{"I", "II", "III", "aVR", "aVL", "aVF", "V1", "V2", "V3", "V4", "V5", "V6"}

const hueStep = 30

// Lead 单个导联的时间序列（渲染用）
type Lead struct {
	Index   int       `json:"index"`
	Label   string    `json:"label"`
	Hue     int       `json:"hue"` // 建议的色相（度），仅作渲染提示
	Samples []float64 `json:"samples"`
}

// LeadSeries 按导联组织的 12 条序列（SampleMatrix 的转置）
type LeadSeries [LeadCount]Lead

// Transpose 将时间优先的矩阵转换为导联优先的序列
// 每条序列是独立副本，保持时间顺序
func Transpose(m SampleMatrix) LeadSeries {
	var series LeadSeries
	for j := 0; j < LeadCount; j++ {
		var samples []float64
		if !m.IsZero() {
			samples = make([]float64, SampleCount)
			for i := 0; i < SampleCount; i++ {
				samples[i] = m.data[i*LeadCount+j]
			}
		}
		series[j] = Lead{
			Index:   j,
			Label:   LeadLabels[j],
			Hue:     j * hueStep,
			Samples: samples,
		}
	}
	return series
}

// LeadStats 导联统计摘要
type LeadStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Stats 计算导联的最小值、最大值、均值与样本标准差
func (l Lead) Stats() LeadStats {
	n := len(l.Samples)
	if n == 0 {
		return LeadStats{}
	}

	stats := LeadStats{Min: l.Samples[0], Max: l.Samples[0]}
	sum := 0.0
	for _, v := range l.Samples {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		sum += v
	}
	stats.Mean = sum / float64(n)

	if n > 1 {
		sumSquares := 0.0
		for _, v := range l.Samples {
			diff := v - stats.Mean
			sumSquares += diff * diff
		}
		stats.Std = math.Sqrt(sumSquares / float64(n-1))
	}

	return stats
}
