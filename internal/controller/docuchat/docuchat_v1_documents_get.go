package docuchat

import (
	"context"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/common"
)

// GetDocument 查询单个文档的状态和元信息
func (c *ControllerV1) GetDocument(ctx context.Context, req *v1.GetDocumentReq) (res *v1.GetDocumentRes, err error) {
	sessionID := common.SafeSessionID(req.SessionId)

	doc, err := c.documents.Get(ctx, req.DocumentId, sessionID)
	if err != nil {
		return nil, err
	}

	return &v1.GetDocumentRes{DocumentInfo: toDocumentInfo(*doc)}, nil
}
