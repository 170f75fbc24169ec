package ecg

import (
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/modules/mdingest"
)

// ECGHandler ECG 数据 HTTP 处理器（解析、导联转换、合成数据）
type ECGHandler struct {
	parser      *mdingest.Parser
	defaultSeed int64 // 0 表示按时间取种子
}

// NewECGHandler 创建 ECG 处理器实例
func NewECGHandler(parser *mdingest.Parser, defaultSeed int64) *ECGHandler {
	return &ECGHandler{
		parser:      parser,
		defaultSeed: defaultSeed,
	}
}
