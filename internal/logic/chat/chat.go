package chat

import (
	"context"
	"fmt"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/errors"
	"github.com/docuchat/docuchat/core/retriever"
)

// 检索不到任何分片时直接返回的回答，不调用模型
const emptyContextAnswer = "I couldn't find relevant content in your uploaded PDFs for this session. " +
	"Try rephrasing your question or uploading a different PDF."

const systemPrompt = "You are DocuChat, an AI assistant that answers questions about PDF documents.\n\n" +
	"Instructions:\n" +
	"- Answer the user's question using the provided context from the PDF.\n" +
	"- Synthesize information across multiple pages/chunks when relevant.\n" +
	"- If you have partial information, provide what you know and note if more details might be in other pages.\n" +
	"- Be helpful and comprehensive - don't just say 'insufficient information' if you can provide useful insights from what's available.\n" +
	"- Always include page references in your answer (e.g., 'According to [filename p.3]...').\n" +
	"- If the answer truly isn't in the context, say so clearly."

// Answerer 基于检索结果生成回答
type Answerer struct {
	model     einoModel.BaseChatModel
	retriever retriever.Retriever
}

// NewAnswerer 创建问答服务
func NewAnswerer(model einoModel.BaseChatModel, ret retriever.Retriever) (*Answerer, error) {
	if model == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "chat model is required")
	}
	if ret == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "retriever is required")
	}
	return &Answerer{model: model, retriever: ret}, nil
}

// Answer 检索相关分片并生成带来源引用的回答
// history 为可选的历史对话轮次，按时间顺序插入到上下文提问之前
func (a *Answerer) Answer(ctx context.Context, question string, history []v1.ChatTurn, filters retriever.Filters) (string, []v1.SourceRef, error) {
	results, err := a.retriever.Retrieve(ctx, question, filters)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return emptyContextAnswer, []v1.SourceRef{}, nil
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, schema.UserMessage(fmt.Sprintf(
		"CONTEXT FROM PDF:\n%s\n\nQUESTION: %s\n\n"+
			"Provide a comprehensive answer based on the context above. Include specific page references for all claims.",
		buildContext(results), question)))

	resp, err := a.model.Generate(ctx, messages)
	if err != nil {
		g.Log().Errorf(ctx, "Chat model call failed: %v", err)
		return "", nil, errors.Newf(errors.ErrLLMCallFailed, "failed to generate answer: %v", err)
	}

	return resp.Content, compactSources(results), nil
}

// historyMessages 将历史对话转换为模型消息，忽略未知角色
func historyMessages(history []v1.ChatTurn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		switch strings.ToLower(turn.Role) {
		case "user", "human":
			messages = append(messages, schema.UserMessage(turn.Content))
		case "assistant", "ai":
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}

// buildContext 将检索结果拼装为带来源标注的稳定上下文格式
func buildContext(results []retriever.Result) string {
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, strings.TrimSpace(fmt.Sprintf(
			"[CHUNK %d] SOURCE: %s | PAGE: %d\n%s", i+1, r.Source, r.Page, r.Text)))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// snippetMaxLen 来源摘录的最大字符数
const snippetMaxLen = 240

// compactSources 按 来源文件+页码 去重，保持检索顺序
// 每条来源带相似度和最多240字符的单行摘录
func compactSources(results []retriever.Result) []v1.SourceRef {
	type key struct {
		source string
		page   int
	}
	seen := make(map[key]bool)
	sources := make([]v1.SourceRef, 0, len(results))
	for _, r := range results {
		k := key{source: r.Source, page: r.Page}
		if seen[k] {
			continue
		}
		seen[k] = true
		sources = append(sources, v1.SourceRef{
			Source:     r.Source,
			Page:       r.Page,
			Snippet:    makeSnippet(r.Text),
			Similarity: r.Score,
			DocumentId: r.DocumentID,
		})
	}
	return sources
}

// makeSnippet 压成单行并截断到 snippetMaxLen，截断时追加省略号
func makeSnippet(text string) string {
	s := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	runes := []rune(s)
	if len(runes) <= snippetMaxLen {
		return s
	}
	return string(runes[:snippetMaxLen]) + "..."
}
