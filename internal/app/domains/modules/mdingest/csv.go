package mdingest

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
)

// parseCSV 逐行解析逗号分隔文本
// 至少有一行为合法的 12 个有限数值时认领输入（claimed=true）；未认领时交给下一阶段。
// 严格模式下，首个非空行若是 12 个非数值字段视为表头并跳过，其余格式错误的行报错并带行号。
func parseCSV(text string, lenient bool) (rows [][]float64, claimed bool, err error) {
	lines := strings.Split(text, "\n")
	rows = make([][]float64, 0, etecg.SampleCount)

	var firstBad *etecg.FormatError
	seenContent := false
	for n, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := !seenContent
		seenContent = true

		row, rowErr := parseCSVRow(line)
		if rowErr == nil {
			rows = append(rows, row)
			continue
		}
		if lenient || (first && isHeader(line)) {
			continue
		}
		if firstBad == nil {
			firstBad = &etecg.FormatError{Reason: "malformed CSV line", Line: n + 1, Err: rowErr}
		}
	}

	if len(rows) == 0 {
		return nil, false, nil
	}
	if firstBad != nil {
		return nil, true, firstBad
	}
	return rows, true, nil
}

// parseCSVRow 解析单行，要求恰好 12 个有限数值字段
func parseCSVRow(line string) ([]float64, error) {
	fields := strings.Split(line, ",")
	if len(fields) != etecg.LeadCount {
		return nil, fmt.Errorf("expected %d fields, got %d", etecg.LeadCount, len(fields))
	}

	row := make([]float64, etecg.LeadCount)
	for j, field := range fields {
		v, err := parseNumber(field)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", j+1, err)
		}
		row[j] = v
	}
	return row, nil
}

func parseNumber(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, fmt.Errorf("empty value")
	}
	// ParseFloat 接受 Go 字面量的数字分隔符，CSV 数值不允许
	if strings.ContainsRune(field, '_') {
		return 0, fmt.Errorf("%q is not a number", field)
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", field)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", field)
	}
	return v, nil
}

// isHeader 12 个字段且没有一个是数值
func isHeader(line string) bool {
	fields := strings.Split(line, ",")
	if len(fields) != etecg.LeadCount {
		return false
	}
	for _, field := range fields {
		if _, err := parseNumber(field); err == nil {
			return false
		}
	}
	return true
}

// EncodeCSV 以无表头 CSV 写出矩阵，数值使用可精确回读的最短表示
func EncodeCSV(w io.Writer, m etecg.SampleMatrix) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)

	rows, _ := m.Shape()
	for i := 0; i < rows; i++ {
		for j := 0; j < etecg.LeadCount; j++ {
			if j > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			buf = strconv.AppendFloat(buf[:0], m.At(i, j), 'g', -1, 64)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
