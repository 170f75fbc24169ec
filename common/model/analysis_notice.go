package model

import "fmt"

// AnalysisNotice 分析完成通知（Redis PubSub）
type AnalysisNotice struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"` // SUCCEEDED / FAILED
	Timestamp  int64  `json:"timestamp"`
}

// AnalysisResultChannel 分析结果频道：ecg:analysis:result:{id}
func AnalysisResultChannel(analysisID string) string {
	return fmt.Sprintf("ecg:analysis:result:%s", analysisID)
}
