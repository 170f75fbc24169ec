package model

// ActionTypeECGClassify 分类任务的路由键
const ActionTypeECGClassify = "ecg_classify"

// ClassifyJob ECG 分类任务消息（标准化）
// 用于 apiserver → worker 的消息传递
type ClassifyJob struct {
	Payload ClassifyPayload `json:"payload"`
}

// ClassifyPayload Job 负载
type ClassifyPayload struct {
	Data ClassifyData `json:"data"`
}

// ClassifyData Job 数据层
type ClassifyData struct {
	// 元信息
	RequestID  string `json:"request_id"`  // 请求 ID（全链路追踪）
	ActionType string `json:"action_type"` // 动作类型，固定值 "ecg_classify"
	ID         string `json:"id"`          // 分析 ID

	// 业务数据
	Data ClassifyBusinessData `json:"data"`
}

// ClassifyBusinessData 分类业务数据
// 携带完整矩阵，worker 无需访问 apiserver 的存储
type ClassifyBusinessData struct {
	AnalysisID string      `json:"analysis_id"`
	ECGData    [][]float64 `json:"ecg_data"`
}

// NewClassifyJob 构造分类任务
func NewClassifyJob(requestID, analysisID string, ecgData [][]float64) ClassifyJob {
	return ClassifyJob{
		Payload: ClassifyPayload{
			Data: ClassifyData{
				RequestID:  requestID,
				ActionType: ActionTypeECGClassify,
				ID:         analysisID,
				Data: ClassifyBusinessData{
					AnalysisID: analysisID,
					ECGData:    ecgData,
				},
			},
		},
	}
}
