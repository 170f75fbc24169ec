package mdingest

import (
	"math"
	"math/rand"
	"sync"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etecg"
)

const (
	sampleAmplitude = 2.0
	sampleNoise     = 0.05
)

// Sampler 合成 ECG 数据生成器
// (i, j) = sin(i/100 + j·0.1)·2 + U(-0.05, 0.05)；相同种子产生相同数据
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler 使用指定随机源创建生成器
func NewSampler(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// NewSeededSampler 使用固定种子创建生成器
func NewSeededSampler(seed int64) *Sampler {
	return NewSampler(rand.NewSource(seed))
}

// Generate 生成一份 4096×12 的合成矩阵
func (s *Sampler) Generate() etecg.SampleMatrix {
	s.mu.Lock()
	rows := make([][]float64, etecg.SampleCount)
	for i := range rows {
		row := make([]float64, etecg.LeadCount)
		for j := range row {
			noise := s.rng.Float64()*2*sampleNoise - sampleNoise
			row[j] = math.Sin(float64(i)/100+float64(j)*0.1)*sampleAmplitude + noise
		}
		rows[i] = row
	}
	s.mu.Unlock()

	m, err := etecg.NewSampleMatrix(rows)
	if err != nil {
		// 维度由常量决定，不会出错
		panic(err)
	}
	return m
}
