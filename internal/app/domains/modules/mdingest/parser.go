package mdingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/logger"
)

// DefaultMaxBytes 上传文件的默认大小上限
const DefaultMaxBytes int64 = 8 << 20

const (
	wrapperPrefix     = "array("
	wrapperSuffix     = ")"
	placeholderMarker = "..."
	utf8BOM           = "\ufeff"
)

// Config 解析器配置
type Config struct {
	LenientCSV bool     // true 时静默丢弃格式错误的 CSV 行
	MaxBytes   int64    // ParseReader 读取的最大字节数
	Sampler    *Sampler // 非空时，占位文本（含 "..."）返回合成数据
}

// Parser ECG 文本解析器
// 按优先级尝试：CSV → 方括号数组 → array(...) 包装数组 → 省略号占位
type Parser struct {
	lenient  bool
	maxBytes int64
	sampler  *Sampler
	logger   logger.Logger
}

// NewParser 创建解析器实例
func NewParser(cfg Config, log logger.Logger) *Parser {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Parser{
		lenient:  cfg.LenientCSV,
		maxBytes: maxBytes,
		sampler:  cfg.Sampler,
		logger:   log,
	}
}

// Parse 将原始文本解析为经过校验的 4096×12 矩阵
// 失败时返回 *etecg.FormatError 或 *etecg.ShapeError，不会返回部分结果
func (p *Parser) Parse(input string) (etecg.SampleMatrix, error) {
	text := strings.TrimSpace(strings.TrimPrefix(input, utf8BOM))
	if text == "" {
		return etecg.SampleMatrix{}, &etecg.FormatError{Reason: "input is empty"}
	}

	// 1. CSV（数组字面量不参与 CSV 认领）
	if !isBracketed(text) && !strings.HasPrefix(text, wrapperPrefix) {
		rows, claimed, err := parseCSV(text, p.lenient)
		if err != nil {
			return etecg.SampleMatrix{}, err
		}
		if claimed {
			return etecg.NewSampleMatrix(rows)
		}
	}

	// 2. 方括号数组
	if isBracketed(text) {
		rows, err := decodeArrayLiteral(text)
		if err == nil {
			return etecg.NewSampleMatrix(rows)
		}
		if !strings.Contains(text, placeholderMarker) {
			return etecg.SampleMatrix{}, err
		}
	}

	// 3. array(...) 包装数组
	if strings.HasPrefix(text, wrapperPrefix) && strings.HasSuffix(text, wrapperSuffix) {
		rows, err := decodeWrappedLiteral(text)
		if err == nil {
			return etecg.NewSampleMatrix(rows)
		}
		if !strings.Contains(text, placeholderMarker) {
			return etecg.SampleMatrix{}, err
		}
	}

	// 4. 省略号占位
	if strings.Contains(text, placeholderMarker) {
		return p.placeholder()
	}

	return etecg.SampleMatrix{}, &etecg.FormatError{Reason: "input is neither CSV nor a numeric array literal"}
}

// ParseReader 读取文件内容后解析
// 句柄在读取结束后立即释放；获取、读取、解码阶段的失败统一映射为 FormatError
func (p *Parser) ParseReader(ctx context.Context, open func() (io.ReadCloser, error)) (etecg.SampleMatrix, error) {
	text, err := p.readText(ctx, open)
	if err != nil {
		p.logger.Warnf(ctx, "[Ingest] read ECG file failed: %v", err)
		return etecg.SampleMatrix{}, &etecg.FormatError{
			Reason: "error reading file, ensure it contains valid ECG data",
			Err:    err,
		}
	}

	matrix, err := p.Parse(text)
	if err != nil {
		p.logger.Infof(ctx, "[Ingest] rejected ECG file (%s): %v", humanize.Bytes(uint64(len(text))), err)
		return etecg.SampleMatrix{}, err
	}
	return matrix, nil
}

func (p *Parser) readText(ctx context.Context, open func() (io.ReadCloser, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := open()
	if err != nil {
		return "", fmt.Errorf("open file failed: %w", err)
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, p.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	if int64(len(b)) > p.maxBytes {
		return "", fmt.Errorf("file exceeds the %s limit", humanize.IBytes(uint64(p.maxBytes)))
	}
	if !utf8.Valid(b) {
		return "", errors.New("file is not valid UTF-8 text")
	}

	p.logger.Debugf(ctx, "[Ingest] read ECG file: %s", humanize.Bytes(uint64(len(b))))
	return string(b), nil
}

func (p *Parser) placeholder() (etecg.SampleMatrix, error) {
	if p.sampler == nil {
		return etecg.SampleMatrix{}, &etecg.FormatError{
			Reason: "input contains an ellipsis placeholder, not numeric data; request sample data explicitly instead",
		}
	}
	return p.sampler.Generate(), nil
}

func isBracketed(text string) bool {
	return strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")
}
