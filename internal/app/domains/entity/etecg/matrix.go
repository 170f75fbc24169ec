package etecg

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	SampleCount = 4096 // 每条记录的采样点数
	LeadCount   = 12   // 标准 12 导联
)

// 错误定义
var (
	ErrFormat = errors.New("invalid ECG data format")
	ErrShape  = errors.New("invalid ECG data shape")
)

// FormatError 输入无法解析为任何已知的数值矩阵编码
type FormatError struct {
	Reason string
	Line   int // 出错的行号（从 1 开始），0 表示不适用
	Err    error
}

// Error 实现 error 接口
func (e *FormatError) Error() string {
	msg := ErrFormat.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ShapeError 矩阵维度与 (4096, 12) 不符，携带实际观测到的行列数
type ShapeError struct {
	Rows   int
	Cols   int
	Ragged bool // 首行之后出现宽度不一致的行
	Row    int  // Ragged 时为出错行索引
}

// Error 实现 error 接口
func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("expected data shape (%d, %d), got (%d, %d)", SampleCount, LeadCount, e.Rows, e.Cols)
	if e.Ragged {
		msg += fmt.Sprintf(" at row %d", e.Row)
	}
	return msg
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// SampleMatrix 经过校验的 4096×12 采样矩阵（值对象，不可变）
// 行为时间步，列为导联，按行优先顺序存储
type SampleMatrix struct {
	data []float64
}

// NewSampleMatrix 校验并创建采样矩阵，逐行检查宽度
func NewSampleMatrix(rows [][]float64) (SampleMatrix, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	if len(rows) != SampleCount || cols != LeadCount {
		return SampleMatrix{}, &ShapeError{Rows: len(rows), Cols: cols}
	}

	data := make([]float64, SampleCount*LeadCount)
	for i, row := range rows {
		if len(row) != LeadCount {
			return SampleMatrix{}, &ShapeError{Rows: len(rows), Cols: len(row), Ragged: true, Row: i}
		}
		copy(data[i*LeadCount:(i+1)*LeadCount], row)
	}

	return SampleMatrix{data: data}, nil
}

// IsZero 是否为未初始化的矩阵
func (m SampleMatrix) IsZero() bool {
	return m.data == nil
}

// Shape 返回 (行数, 列数)
func (m SampleMatrix) Shape() (int, int) {
	if m.IsZero() {
		return 0, 0
	}
	return SampleCount, LeadCount
}

// At 返回第 i 个采样点第 j 导联的幅值
func (m SampleMatrix) At(i, j int) float64 {
	return m.data[i*LeadCount+j]
}

// Row 返回第 i 行的副本
func (m SampleMatrix) Row(i int) []float64 {
	row := make([]float64, LeadCount)
	copy(row, m.data[i*LeadCount:(i+1)*LeadCount])
	return row
}

// Rows 返回完整的二维副本
func (m SampleMatrix) Rows() [][]float64 {
	if m.IsZero() {
		return nil
	}
	rows := make([][]float64, SampleCount)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

// MarshalJSON 序列化为嵌套数组
func (m SampleMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Rows())
}

// UnmarshalJSON 反序列化并重新校验维度
func (m *SampleMatrix) UnmarshalJSON(b []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return &FormatError{Reason: "ecg_data must be a numeric matrix", Err: err}
	}

	matrix, err := NewSampleMatrix(rows)
	if err != nil {
		return err
	}
	*m = matrix
	return nil
}
