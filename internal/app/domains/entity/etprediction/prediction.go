package etprediction

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// ErrInvalidPredictionFormat 分类器返回的 predictions 既不是对象也不是对象数组
var ErrInvalidPredictionFormat = errors.New("invalid prediction format")

// Conditions 分类器输出的固定病症代码（按模型输出顺序）
var Conditions = []string{"1dAVb", "RBBB", "LBBB", "SB", "AF", "ST"}

// Prediction 单个病症的预测概率
type Prediction struct {
	Condition   string
	Probability float64
}

// PredictionRecord 病症代码 → 概率 的有序映射，保留分类器返回的键顺序
type PredictionRecord []Prediction

// Probability 查询指定病症的概率
func (r PredictionRecord) Probability(condition string) (float64, bool) {
	for _, p := range r {
		if p.Condition == condition {
			return p.Probability, true
		}
	}
	return 0, false
}

// set 写入概率，重复的键覆盖原值并保持首次出现的位置
func (r PredictionRecord) set(condition string, probability float64) PredictionRecord {
	for i := range r {
		if r[i].Condition == condition {
			r[i].Probability = probability
			return r
		}
	}
	return append(r, Prediction{Condition: condition, Probability: probability})
}

// MarshalJSON 按顺序序列化为 JSON 对象
func (r PredictionRecord) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigDefault.BorrowStream(nil)
	defer jsoniter.ConfigDefault.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, p := range r {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(p.Condition)
		stream.WriteFloat64(p.Probability)
	}
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

// UnmarshalJSON 解析单个预测对象
func (r *PredictionRecord) UnmarshalJSON(b []byte) error {
	iter := jsoniter.ConfigDefault.BorrowIterator(b)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return fmt.Errorf("%w: prediction record must be an object", ErrInvalidPredictionFormat)
	}
	record, err := readRecord(iter)
	if err != nil {
		return err
	}
	*r = record
	return nil
}

// Normalize 将分类器响应中的 predictions 字段统一为记录数组
// 数组原样返回；单个对象包装为单元素数组；其他形态返回 ErrInvalidPredictionFormat
func Normalize(raw []byte) ([]PredictionRecord, error) {
	iter := jsoniter.ConfigDefault.BorrowIterator(raw)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	var records []PredictionRecord
	switch iter.WhatIsNext() {
	case jsoniter.ArrayValue:
		records = make([]PredictionRecord, 0)
		for iter.ReadArray() {
			if iter.WhatIsNext() != jsoniter.ObjectValue {
				return nil, fmt.Errorf("%w: prediction list must contain only objects", ErrInvalidPredictionFormat)
			}
			record, err := readRecord(iter)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	case jsoniter.ObjectValue:
		record, err := readRecord(iter)
		if err != nil {
			return nil, err
		}
		records = []PredictionRecord{record}
	default:
		return nil, fmt.Errorf("%w: predictions must be an object or a list of objects", ErrInvalidPredictionFormat)
	}

	if iter.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPredictionFormat, iter.Error)
	}
	if iter.WhatIsNext() != jsoniter.InvalidValue {
		return nil, fmt.Errorf("%w: unexpected trailing data", ErrInvalidPredictionFormat)
	}

	return records, nil
}

// readRecord 读取一个 {code: probability} 对象，所有值必须为数字
func readRecord(iter *jsoniter.Iterator) (PredictionRecord, error) {
	record := PredictionRecord{}
	var fieldErr error

	iter.ReadObjectCB(func(it *jsoniter.Iterator, condition string) bool {
		if it.WhatIsNext() != jsoniter.NumberValue {
			fieldErr = fmt.Errorf("%w: probability for %q is not a number", ErrInvalidPredictionFormat, condition)
			return false
		}
		record = record.set(condition, it.ReadFloat64())
		return true
	})

	if fieldErr != nil {
		return nil, fieldErr
	}
	if iter.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPredictionFormat, iter.Error)
	}
	return record, nil
}
