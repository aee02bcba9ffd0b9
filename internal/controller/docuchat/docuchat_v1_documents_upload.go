package docuchat

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gogf/gf/v2/frame/g"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/core/errors"
	"github.com/docuchat/docuchat/core/ingest"
)

// UploadDocument 接收PDF上传，立即返回 PROCESSING，摄取在后台执行
func (c *ControllerV1) UploadDocument(ctx context.Context, req *v1.UploadDocumentReq) (res *v1.UploadDocumentRes, err error) {
	if req.File == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "file is required")
	}

	sessionID := common.SafeSessionID(req.SessionId)
	g.Log().Infof(ctx, "UploadDocument request received - session: %s, file: %s", sessionID, req.File.Filename)
	if strings.ToLower(filepath.Ext(req.File.Filename)) != ".pdf" {
		return nil, errors.Newf(errors.ErrFileTypeInvalid, "only PDF files are supported, got %s", req.File.Filename)
	}
	if c.maxUploadBytes > 0 && req.File.Size > c.maxUploadBytes {
		return nil, errors.New(errors.ErrFileSizeExceeded, "File too large.")
	}

	f, err := req.File.Open()
	if err != nil {
		return nil, errors.Newf(errors.ErrFileUploadFailed, "failed to open uploaded file: %v", err)
	}
	defer f.Close()

	tempPath, err := c.uploads.SaveUpload(ctx, f, req.File.Filename)
	if err != nil {
		return nil, err
	}

	fileSize := req.File.Size
	doc, err := c.documents.CreateRecord(ctx, sessionID, req.File.Filename, &fileSize)
	if err != nil {
		c.uploads.DeleteFile(ctx, tempPath)
		return nil, err
	}

	c.orchestrator.Enqueue(ctx, &ingest.Job{
		DocumentID: doc.DocumentID,
		SessionID:  sessionID,
		FilePath:   tempPath,
		FileName:   req.File.Filename,
		RemoveFile: true,
	})

	return &v1.UploadDocumentRes{
		DocumentId: doc.DocumentID,
		Status:     v1.StatusProcessing,
		Message:    "Document accepted for processing",
	}, nil
}
