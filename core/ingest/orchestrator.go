package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"

	"github.com/docuchat/docuchat/core/chunkstore"
	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/core/errors"
	"github.com/docuchat/docuchat/core/splitter"
)

const defaultIngestConcurrency = 5 // 同时摄取的文档数上限

// Embedder 批量向量化的最小依赖
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// DocumentMarker 摄取结束后更新文档生命周期状态
type DocumentMarker interface {
	MarkReady(ctx context.Context, documentID string, pages int) error
	MarkError(ctx context.Context, documentID string, message string) error
}

// Job 单个文档的摄取任务
type Job struct {
	DocumentID string
	SessionID  string
	FilePath   string
	FileName   string

	// RemoveFile 摄取结束后删除临时文件（无论成败）
	RemoveFile bool
}

// Orchestrator 文档摄取编排器
// 负责 加载 -> 分片 -> 向量化 -> 入库 -> 状态更新 的完整流水线，
// 任何一步失败都会把文档标记为失败并清理已写入的分片
type Orchestrator struct {
	loader    PageLoader
	splitter  *splitter.Splitter
	embedder  Embedder
	store     chunkstore.Store
	docs      DocumentMarker
	semaphore chan struct{}
}

// NewOrchestrator 创建摄取编排器，所有依赖显式传入
func NewOrchestrator(loader PageLoader, split *splitter.Splitter, embedder Embedder, store chunkstore.Store, docs DocumentMarker) (*Orchestrator, error) {
	if loader == nil || split == nil || embedder == nil || store == nil || docs == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "all orchestrator dependencies are required")
	}
	return &Orchestrator{
		loader:    loader,
		splitter:  split,
		embedder:  embedder,
		store:     store,
		docs:      docs,
		semaphore: make(chan struct{}, defaultIngestConcurrency),
	}, nil
}

// ingestContext 摄取上下文，在流水线步骤间传递数据
type ingestContext struct {
	ctx       context.Context
	job       *Job
	pages     []splitter.Page
	pageCount int
	passages  []splitter.Passage
	vectors   [][]float32
}

// Enqueue 异步摄取，受并发上限约束
// 调用方立即返回，结果通过文档状态查询
func (o *Orchestrator) Enqueue(ctx context.Context, job *Job) {
	common.SafeGo(ctx, fmt.Sprintf("IngestDoc-%s", job.DocumentID), func() {
		o.semaphore <- struct{}{}
		defer func() { <-o.semaphore }()

		if err := o.Process(ctx, job); err != nil {
			g.Log().Errorf(ctx, "Document ingestion failed, documentId=%s, err=%v", job.DocumentID, err)
		} else {
			g.Log().Infof(ctx, "Document ingested successfully, documentId=%s", job.DocumentID)
		}
	})
}

// Process 同步执行完整摄取流水线
func (o *Orchestrator) Process(ctx context.Context, job *Job) error {
	if job == nil || job.DocumentID == "" {
		return errors.New(errors.ErrInvalidParameter, "ingest job requires a document id")
	}

	// 临时文件无论成败都要清掉
	if job.RemoveFile {
		defer func() {
			if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
				g.Log().Warningf(ctx, "Failed to remove temp file %s: %v", job.FilePath, err)
			}
		}()
	}

	ictx := &ingestContext{ctx: ctx, job: job}

	pipeline := []struct {
		name string
		fn   func(*ingestContext) error
	}{
		{"Load pages", o.stepLoadPages},
		{"Split passages", o.stepSplit},
		{"Vectorize passages", o.stepEmbed},
		{"Store passages", o.stepStore},
		{"Mark ready", o.stepMarkReady},
	}

	for _, step := range pipeline {
		g.Log().Debugf(ctx, "Executing step: %s, documentId=%s", step.name, job.DocumentID)
		if err := step.fn(ictx); err != nil {
			o.failDocument(ctx, job, err)
			return fmt.Errorf("%s failed: %w", step.name, err)
		}
	}
	return nil
}

// stepLoadPages 第1步：按页加载文件文本
func (o *Orchestrator) stepLoadPages(ictx *ingestContext) error {
	pages, err := o.loader.LoadPages(ictx.ctx, ictx.job.FilePath, ictx.job.FileName)
	if err != nil {
		return err
	}
	ictx.pages = pages
	ictx.pageCount = len(pages)
	return nil
}

// stepSplit 第2步：切分为带页码的分片
func (o *Orchestrator) stepSplit(ictx *ingestContext) error {
	passages, err := o.splitter.Split(ictx.ctx, ictx.pages)
	if err != nil {
		return err
	}
	ictx.passages = passages
	g.Log().Infof(ictx.ctx, "Document split completed, documentId=%s, passage count=%d",
		ictx.job.DocumentID, len(passages))
	return nil
}

// stepEmbed 第3步：批量向量化
func (o *Orchestrator) stepEmbed(ictx *ingestContext) error {
	texts := make([]string, len(ictx.passages))
	for i, p := range ictx.passages {
		texts[i] = p.Text
	}
	vectors, err := o.embedder.EmbedBatch(ictx.ctx, texts)
	if err != nil {
		return err
	}
	ictx.vectors = vectors
	return nil
}

// stepStore 第4步：单次批量写入向量存储
func (o *Orchestrator) stepStore(ictx *ingestContext) error {
	now := time.Now()
	records := make([]chunkstore.Passage, len(ictx.passages))
	for i, p := range ictx.passages {
		records[i] = chunkstore.Passage{
			ID:         uuid.New().String(),
			SessionID:  ictx.job.SessionID,
			DocumentID: ictx.job.DocumentID,
			Text:       p.Text,
			Embedding:  ictx.vectors[i],
			Page:       p.Page,
			Source:     p.Source,
			ChunkIndex: i,
			CreatedAt:  now,
		}
	}

	inserted, err := o.store.InsertPassages(ictx.ctx, records)
	if err != nil {
		return err
	}
	// 非空批次写入0条视为存储拒绝
	if inserted == 0 && len(records) > 0 {
		return errors.New(errors.ErrStorageRejected, "no passages were stored")
	}
	g.Log().Infof(ictx.ctx, "Stored %d passages, documentId=%s", inserted, ictx.job.DocumentID)
	return nil
}

// stepMarkReady 第5步：落库页数并置为就绪
func (o *Orchestrator) stepMarkReady(ictx *ingestContext) error {
	return o.docs.MarkReady(ictx.ctx, ictx.job.DocumentID, ictx.pageCount)
}

// failDocument 失败处理：错误信息原样落库，分片尽力清理
func (o *Orchestrator) failDocument(ctx context.Context, job *Job, cause error) {
	if err := o.docs.MarkError(ctx, job.DocumentID, cause.Error()); err != nil {
		g.Log().Errorf(ctx, "Failed to mark document as failed, documentId=%s, err=%v", job.DocumentID, err)
	}
	if err := o.store.DeleteByDocument(ctx, job.DocumentID); err != nil {
		g.Log().Errorf(ctx, "Failed to clean up passages of failed document, documentId=%s, err=%v", job.DocumentID, err)
	}
}
