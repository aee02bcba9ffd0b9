package docuchat

import (
	"context"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/internal/model/gormmodel"
)

// ListDocuments 列出当前会话的文档，按创建时间倒序
func (c *ControllerV1) ListDocuments(ctx context.Context, req *v1.ListDocumentsReq) (res *v1.ListDocumentsRes, err error) {
	sessionID := common.SafeSessionID(req.SessionId)

	docs, err := c.documents.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	infos := make([]v1.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, toDocumentInfo(doc))
	}
	return &v1.ListDocumentsRes{Documents: infos}, nil
}

func toDocumentInfo(doc gormmodel.Document) v1.DocumentInfo {
	return v1.DocumentInfo{
		DocumentId:   doc.DocumentID,
		FileName:     doc.FileName,
		FileSize:     doc.FileSize,
		Status:       doc.Status,
		Pages:        doc.Pages,
		ErrorMessage: doc.ErrorMessage,
		CreatedAt:    doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
