package request

// ParseECGRequest 原始 ECG 文本（CSV 或数组字面量）
type ParseECGRequest struct {
	Data string `json:"data" binding:"required" example:"0.1,0.2,0.3,0.4,0.5,0.6,0.7,0.8,0.9,1.0,1.1,1.2"`
}

// SubmitAnalysisRequest 提交分析请求
type SubmitAnalysisRequest struct {
	Data      string `json:"data" binding:"required"`
	SessionID string `json:"session_id" binding:"omitempty,max=128" example:"browser-tab-1"`
}

// SampleQuery 合成数据查询参数
type SampleQuery struct {
	Seed   *int64 `form:"seed"`
	Format string `form:"format" binding:"omitempty,oneof=json csv"`
}

// WaitQuery Smart Wait 参数（秒）
type WaitQuery struct {
	Wait int `form:"wait" binding:"min=0"`
}
