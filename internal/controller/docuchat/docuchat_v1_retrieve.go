package docuchat

import (
	"context"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/core/retriever"
)

// Retrieve 会话范围内的向量检索，可选限定单个文档
func (c *ControllerV1) Retrieve(ctx context.Context, req *v1.RetrieveReq) (res *v1.RetrieveRes, err error) {
	results, err := c.retriever.Retrieve(ctx, req.Question, retriever.Filters{
		SessionID:     common.SafeSessionID(req.SessionId),
		DocumentID:    req.DocumentId,
		TopK:          req.TopK,
		NumCandidates: req.NumCandidates,
	})
	if err != nil {
		return nil, err
	}

	passages := make([]v1.RetrievedPassage, 0, len(results))
	for _, r := range results {
		passages = append(passages, v1.RetrievedPassage{
			Text:       r.Text,
			Page:       r.Page,
			Source:     r.Source,
			DocumentId: r.DocumentID,
			Score:      r.Score,
		})
	}
	return &v1.RetrieveRes{Passages: passages}, nil
}
