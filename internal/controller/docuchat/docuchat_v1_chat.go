package docuchat

import (
	"context"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/core/retriever"
)

// Chat 基于已摄取文档的问答，返回答案和去重后的来源引用
func (c *ControllerV1) Chat(ctx context.Context, req *v1.ChatReq) (res *v1.ChatRes, err error) {
	answer, sources, err := c.answerer.Answer(ctx, req.Question, req.History, retriever.Filters{
		SessionID:  common.SafeSessionID(req.SessionId),
		DocumentID: req.DocumentId,
	})
	if err != nil {
		return nil, err
	}

	return &v1.ChatRes{Answer: answer, Sources: sources}, nil
}
