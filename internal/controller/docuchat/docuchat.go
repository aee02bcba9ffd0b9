package docuchat

import (
	"github.com/docuchat/docuchat/core/file_store"
	"github.com/docuchat/docuchat/core/ingest"
	"github.com/docuchat/docuchat/core/retriever"
	"github.com/docuchat/docuchat/internal/logic/chat"
	"github.com/docuchat/docuchat/internal/logic/document"
)

// ControllerV1 v1 接口控制器，所有依赖显式注入
type ControllerV1 struct {
	documents    *document.Service
	orchestrator *ingest.Orchestrator
	retriever    retriever.Retriever
	answerer     *chat.Answerer
	uploads      *file_store.LocalStorage

	maxUploadBytes int64
}

// NewV1 创建控制器
func NewV1(
	documents *document.Service,
	orchestrator *ingest.Orchestrator,
	ret retriever.Retriever,
	answerer *chat.Answerer,
	uploads *file_store.LocalStorage,
	maxUploadBytes int64,
) *ControllerV1 {
	return &ControllerV1{
		documents:      documents,
		orchestrator:   orchestrator,
		retriever:      ret,
		answerer:       answerer,
		uploads:        uploads,
		maxUploadBytes: maxUploadBytes,
	}
}
