package handlers

import (
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/model"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/framework"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/worker/handlers/classify"
)

// HandlerMap 路由表（ActionType → Handler 构造函数）
type HandlerMap map[string]framework.HandlerFactory

// NewHandlerMap 创建路由表
func NewHandlerMap(classifyDeps classify.Deps) HandlerMap {
	return HandlerMap{
		model.ActionTypeECGClassify: classify.NewFactory(classifyDeps),
	}
}
