package embedding

import (
	"context"
	"sync"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/docuchat/docuchat/core/errors"
)

const (
	defaultBatchSize   = 30 // 每批30个文本（避免API限制）
	defaultConcurrency = 3  // 3个并发（避免API限流）
)

// Dispatcher 在 Provider 之上做分批、并发和维度校验
// 任何维度不符的向量都会在进入存储或查询之前被拦截
type Dispatcher struct {
	provider    Provider
	dim         int
	batchSize   int
	concurrency int
}

// Option Dispatcher 可选配置
type Option func(*Dispatcher)

// WithBatchSize 设置单次请求的最大文本数
func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithConcurrency 设置并发请求数
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// NewDispatcher 创建调度器，dim 为整个存储唯一的向量维度
func NewDispatcher(provider Provider, dim int, opts ...Option) (*Dispatcher, error) {
	if provider == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "embedding provider is required")
	}
	if dim <= 0 {
		return nil, errors.Newf(errors.ErrInvalidParameter, "embedding dimension must be positive, got %d", dim)
	}

	d := &Dispatcher{
		provider:    provider,
		dim:         dim,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dim 返回配置的向量维度
func (d *Dispatcher) Dim() int {
	return d.dim
}

// batchResult 子批次结果
type batchResult struct {
	index   int
	vectors [][]float32
	err     error
}

// EmbedBatch 向量化一批文本
// 输出与输入等长且顺序一致，与 Provider 内部如何分批无关
func (d *Dispatcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type batchInfo struct {
		index int
		start int
		texts []string
	}

	var batches []batchInfo
	for start := 0; start < len(texts); start += d.batchSize {
		end := start + d.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batchInfo{
			index: len(batches),
			start: start,
			texts: texts[start:end],
		})
	}

	g.Log().Debugf(ctx, "Embedding %d texts in %d batches (batchSize=%d, concurrency=%d)",
		len(texts), len(batches), d.batchSize, d.concurrency)

	resultChan := make(chan batchResult, len(batches))
	semaphore := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup

	for _, batch := range batches {
		wg.Add(1)
		go func(b batchInfo) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			vectors, err := d.provider.EmbedStrings(ctx, b.texts)
			if err == nil {
				err = d.validate(b.texts, vectors)
			}
			resultChan <- batchResult{index: b.index, vectors: vectors, err: err}
		}(batch)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([][][]float32, len(batches))
	for r := range resultChan {
		if r.err != nil {
			return nil, r.err
		}
		results[r.index] = r.vectors
	}

	// 按原始顺序拼装为平坦结果
	out := make([][]float32, 0, len(texts))
	for _, vectors := range results {
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery 向量化单条查询文本
func (d *Dispatcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := d.provider.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, errors.Newf(errors.ErrEmbeddingFailed,
			"invalid return length of vector, got=%d, expected=1", len(vectors))
	}
	if len(vectors[0]) != d.dim {
		return nil, errors.Newf(errors.ErrDimensionMismatch,
			"query vector dimension mismatch: expected %d, got %d", d.dim, len(vectors[0]))
	}
	return vectors[0], nil
}

// validate 检查子批次结果长度和每个向量的维度
func (d *Dispatcher) validate(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return errors.Newf(errors.ErrEmbeddingFailed,
			"provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for _, vec := range vectors {
		if len(vec) != d.dim {
			return errors.Newf(errors.ErrDimensionMismatch,
				"embedding dimension mismatch: expected %d, got %d", d.dim, len(vec))
		}
	}
	return nil
}
