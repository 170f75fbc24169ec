package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// ErrClassifierUnavailable 分类器不可达、返回非 2xx 或响应无法解析
var ErrClassifierUnavailable = errors.New("classifier unavailable")

const (
	predictPath   = "/api/predict"
	modelInfoPath = "/api/model-info"

	maxErrorBody = 4 << 10
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PredictRequest 预测请求体
type PredictRequest struct {
	ECGData [][]float64 `json:"ecg_data"`
}

// PredictResponse 预测响应，predictions 保留原始 JSON 交由 Normalize 处理
type PredictResponse struct {
	Predictions jsoniter.RawMessage `json:"predictions"`
	Message     string              `json:"message,omitempty"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Status           string   `json:"status"`
	InputShape       string   `json:"input_shape,omitempty"` // 如 "(1, 4096, 12)"
	OutputConditions []string `json:"output_conditions,omitempty"`
	ModelSummary     string   `json:"model_summary,omitempty"`
	Message          string   `json:"message,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Client 远程分类器 HTTP 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient 创建分类器客户端
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// Predict 提交采样矩阵进行分类
func (c *Client) Predict(ctx context.Context, m etecg.SampleMatrix) (*PredictResponse, error) {
	if m.IsZero() {
		return nil, fmt.Errorf("predict: empty sample matrix")
	}

	// 1. 序列化请求
	body, err := json.Marshal(PredictRequest{ECGData: m.Rows()})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request failed: %w", err)
	}

	// 2. 发送请求
	start := time.Now()
	respBody, err := c.do(ctx, http.MethodPost, predictPath, body)
	if err != nil {
		c.logger.Warnf(ctx, "[Classifier] predict failed: %v", err)
		return nil, err
	}

	// 3. 解析响应
	var resp PredictResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode predict response: %v", ErrClassifierUnavailable, err)
	}

	c.logger.Infof(ctx, "[Classifier] predict done in %s", time.Since(start).Round(time.Millisecond))
	return &resp, nil
}

// ModelInfo 查询模型信息
func (c *Client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	respBody, err := c.do(ctx, http.MethodGet, modelInfoPath, nil)
	if err != nil {
		return nil, err
	}

	var info ModelInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("%w: decode model info: %v", ErrClassifierUnavailable, err)
	}
	return &info, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if traceID := logger.TraceIDFrom(ctx); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", ErrClassifierUnavailable, resp.StatusCode, errorMessage(raw))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrClassifierUnavailable, err)
	}
	return respBody, nil
}

// errorMessage 优先使用响应中的 error 字段
func errorMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "empty response"
	}
	return msg
}
