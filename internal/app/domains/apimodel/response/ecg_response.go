package response

import (
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
)

// LeadResponse 单个导联
type LeadResponse struct {
	Index   int             `json:"index" example:"1"`
	Label   string          `json:"label" example:"II"`
	Hue     int             `json:"hue" example:"30"`
	Samples []float64       `json:"samples"`
	Stats   etecg.LeadStats `json:"stats"`
}

// LeadsResponse 导联序列响应
type LeadsResponse struct {
	Shape [2]int         `json:"shape"`
	Leads []LeadResponse `json:"leads"`
}

// SampleResponse 合成数据响应
type SampleResponse struct {
	Seed  int64       `json:"seed"`
	Shape [2]int      `json:"shape"`
	Data  [][]float64 `json:"data"`
}

// FromLeadSeries 矩阵 → 导联响应
func FromLeadSeries(m etecg.SampleMatrix) *LeadsResponse {
	series := etecg.Transpose(m)
	rows, cols := m.Shape()

	resp := &LeadsResponse{
		Shape: [2]int{rows, cols},
		Leads: make([]LeadResponse, 0, len(series)),
	}
	for _, lead := range series {
		resp.Leads = append(resp.Leads, LeadResponse{
			Index:   lead.Index,
			Label:   lead.Label,
			Hue:     lead.Hue,
			Samples: lead.Samples,
			Stats:   lead.Stats(),
		})
	}
	return resp
}

// FromSample 合成矩阵 → 响应
func FromSample(seed int64, m etecg.SampleMatrix) *SampleResponse {
	rows, cols := m.Shape()
	return &SampleResponse{
		Seed:  seed,
		Shape: [2]int{rows, cols},
		Data:  m.Rows(),
	}
}
