package mdingest

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
)

// decodeArrayLiteral 流式解码 [[...],[...]] 形式的嵌套数值数组
// 外层必须非空且每个元素都是数组，内层元素必须为数值
func decodeArrayLiteral(text string) ([][]float64, error) {
	iter := jsoniter.ParseString(jsoniter.ConfigDefault, text)

	if iter.WhatIsNext() != jsoniter.ArrayValue {
		return nil, &etecg.FormatError{Reason: "array literal must start with ["}
	}

	rows := make([][]float64, 0, etecg.SampleCount)
	for iter.ReadArray() {
		if iter.WhatIsNext() != jsoniter.ArrayValue {
			return nil, &etecg.FormatError{Reason: fmt.Sprintf("element %d of the array literal is not an array", len(rows))}
		}

		row := make([]float64, 0, etecg.LeadCount)
		for iter.ReadArray() {
			if iter.WhatIsNext() != jsoniter.NumberValue {
				return nil, &etecg.FormatError{Reason: fmt.Sprintf("non-numeric value in row %d", len(rows))}
			}
			row = append(row, iter.ReadFloat64())
			if iter.Error != nil {
				return nil, &etecg.FormatError{Reason: fmt.Sprintf("invalid number in row %d", len(rows)), Err: iter.Error}
			}
		}
		if iter.Error != nil {
			return nil, &etecg.FormatError{Reason: "malformed array literal", Err: iter.Error}
		}
		rows = append(rows, row)
	}

	if iter.Error != nil {
		return nil, &etecg.FormatError{Reason: "malformed array literal", Err: iter.Error}
	}
	if iter.WhatIsNext() != jsoniter.InvalidValue {
		return nil, &etecg.FormatError{Reason: "unexpected text after array literal"}
	}
	if len(rows) == 0 {
		return nil, &etecg.FormatError{Reason: "array literal is empty"}
	}

	return rows, nil
}

// decodeWrappedLiteral 去掉 array( ... ) 包装及可选的 dtype 参数后按方括号数组解码
func decodeWrappedLiteral(text string) ([][]float64, error) {
	inner := strings.TrimSpace(text[len(wrapperPrefix) : len(text)-len(wrapperSuffix)])

	end := strings.LastIndex(inner, "]")
	if end < 0 {
		return nil, &etecg.FormatError{Reason: "wrapped array literal has no array body"}
	}
	if rest := strings.TrimSpace(inner[end+1:]); rest != "" {
		arg := strings.TrimSpace(strings.TrimPrefix(rest, ","))
		if !strings.HasPrefix(rest, ",") || !strings.HasPrefix(arg, "dtype=") {
			return nil, &etecg.FormatError{Reason: fmt.Sprintf("unexpected argument %q in wrapped array literal", rest)}
		}
		inner = strings.TrimSpace(inner[:end+1])
	}

	if !isBracketed(inner) {
		return nil, &etecg.FormatError{Reason: "wrapped array literal has no array body"}
	}
	return decodeArrayLiteral(inner)
}
