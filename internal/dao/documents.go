package dao

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"gorm.io/gorm"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/internal/model/gormmodel"
)

// DocumentDAO 文档数据访问对象
type DocumentDAO struct{}

var Document = &DocumentDAO{}

// Create 创建文档记录，初始状态固定为 PROCESSING
func (d *DocumentDAO) Create(ctx context.Context, doc *gormmodel.Document) error {
	doc.Status = v1.StatusProcessing
	if err := GetDB().WithContext(ctx).Create(doc).Error; err != nil {
		g.Log().Errorf(ctx, "创建文档记录失败: %v", err)
		return err
	}
	return nil
}

// GetByDocumentID 按会话范围查询单个文档，未找到返回 nil
func (d *DocumentDAO) GetByDocumentID(ctx context.Context, documentID, sessionID string) (*gormmodel.Document, error) {
	var doc gormmodel.Document
	err := GetDB().WithContext(ctx).
		Where("document_id = ? AND session_id = ?", documentID, sessionID).
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		g.Log().Errorf(ctx, "查询文档失败: %v", err)
		return nil, err
	}
	return &doc, nil
}

// ListBySession 列出会话的全部文档，按创建时间倒序
func (d *DocumentDAO) ListBySession(ctx context.Context, sessionID string) ([]gormmodel.Document, error) {
	var docs []gormmodel.Document
	err := GetDB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		g.Log().Errorf(ctx, "查询文档列表失败: %v", err)
		return nil, err
	}
	return docs, nil
}

// MarkReady 将文档置为就绪并记录页数
// 只允许从 PROCESSING 迁移，终态不再改变
func (d *DocumentDAO) MarkReady(ctx context.Context, documentID string, pages int) error {
	result := GetDB().WithContext(ctx).
		Model(&gormmodel.Document{}).
		Where("document_id = ? AND status = ?", documentID, v1.StatusProcessing).
		Updates(map[string]interface{}{
			"status": v1.StatusReady,
			"pages":  pages,
		})
	if result.Error != nil {
		g.Log().Errorf(ctx, "更新文档状态失败: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		g.Log().Warningf(ctx, "Document %s not in PROCESSING state, ready transition skipped", documentID)
	}
	return nil
}

// MarkError 将文档置为失败并原样记录错误信息
// 只允许从 PROCESSING 迁移，终态不再改变
func (d *DocumentDAO) MarkError(ctx context.Context, documentID string, message string) error {
	result := GetDB().WithContext(ctx).
		Model(&gormmodel.Document{}).
		Where("document_id = ? AND status = ?", documentID, v1.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        v1.StatusError,
			"error_message": message,
		})
	if result.Error != nil {
		g.Log().Errorf(ctx, "更新文档状态失败: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		g.Log().Warningf(ctx, "Document %s not in PROCESSING state, error transition skipped", documentID)
	}
	return nil
}

// Delete 按会话范围删除文档记录
func (d *DocumentDAO) Delete(ctx context.Context, documentID, sessionID string) error {
	err := GetDB().WithContext(ctx).
		Where("document_id = ? AND session_id = ?", documentID, sessionID).
		Delete(&gormmodel.Document{}).Error
	if err != nil {
		g.Log().Errorf(ctx, "删除文档记录失败: %v", err)
		return err
	}
	return nil
}
