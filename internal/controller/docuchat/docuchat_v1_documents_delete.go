package docuchat

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/common"
)

// DeleteDocument 删除文档记录及其全部分片
func (c *ControllerV1) DeleteDocument(ctx context.Context, req *v1.DeleteDocumentReq) (res *v1.DeleteDocumentRes, err error) {
	sessionID := common.SafeSessionID(req.SessionId)
	g.Log().Infof(ctx, "DeleteDocument request received - session: %s, documentId: %s", sessionID, req.DocumentId)

	if err = c.documents.Delete(ctx, req.DocumentId, sessionID); err != nil {
		return nil, err
	}

	return &v1.DeleteDocumentRes{Message: "Document deleted"}, nil
}
