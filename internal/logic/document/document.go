package document

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"

	"github.com/docuchat/docuchat/core/chunkstore"
	"github.com/docuchat/docuchat/core/errors"
	"github.com/docuchat/docuchat/internal/dao"
	"github.com/docuchat/docuchat/internal/model/gormmodel"
)

// Service 文档生命周期管理
// 同时实现摄取流水线的状态回写接口
type Service struct {
	store chunkstore.Store
}

// NewService 创建文档服务
func NewService(store chunkstore.Store) *Service {
	return &Service{store: store}
}

// CreateRecord 新建文档记录，初始状态 PROCESSING
func (s *Service) CreateRecord(ctx context.Context, sessionID, fileName string, fileSize *int64) (*gormmodel.Document, error) {
	doc := &gormmodel.Document{
		DocumentID: uuid.New().String(),
		SessionID:  sessionID,
		FileName:   fileName,
		FileSize:   fileSize,
	}
	if err := dao.Document.Create(ctx, doc); err != nil {
		return nil, errors.Newf(errors.ErrDatabaseInsert, "failed to create document record: %v", err)
	}
	return doc, nil
}

// Get 按会话范围查询文档
func (s *Service) Get(ctx context.Context, documentID, sessionID string) (*gormmodel.Document, error) {
	doc, err := dao.Document.GetByDocumentID(ctx, documentID, sessionID)
	if err != nil {
		return nil, errors.Newf(errors.ErrDatabaseQuery, "failed to query document: %v", err)
	}
	if doc == nil {
		return nil, errors.Newf(errors.ErrDocumentNotFound, "document %s not found", documentID)
	}
	return doc, nil
}

// List 列出会话的全部文档
func (s *Service) List(ctx context.Context, sessionID string) ([]gormmodel.Document, error) {
	docs, err := dao.Document.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.Newf(errors.ErrDatabaseQuery, "failed to list documents: %v", err)
	}
	return docs, nil
}

// Delete 删除文档记录及其全部分片
// 分片删除失败不阻止记录删除，但会记录日志
func (s *Service) Delete(ctx context.Context, documentID, sessionID string) error {
	// 先确认归属，避免跨会话删除
	if _, err := s.Get(ctx, documentID, sessionID); err != nil {
		return err
	}

	if err := s.store.DeleteByDocument(ctx, documentID); err != nil {
		g.Log().Errorf(ctx, "Failed to delete passages of document %s: %v", documentID, err)
	}

	if err := dao.Document.Delete(ctx, documentID, sessionID); err != nil {
		return errors.Newf(errors.ErrDatabaseDelete, "failed to delete document record: %v", err)
	}

	g.Log().Infof(ctx, "Document %s deleted from session %s", documentID, sessionID)
	return nil
}

// MarkReady 摄取成功回写：置为 READY 并记录页数
func (s *Service) MarkReady(ctx context.Context, documentID string, pages int) error {
	return dao.Document.MarkReady(ctx, documentID, pages)
}

// MarkError 摄取失败回写：置为 ERROR 并原样记录失败原因
func (s *Service) MarkError(ctx context.Context, documentID string, message string) error {
	return dao.Document.MarkError(ctx, documentID, message)
}
