package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/core/errors"
	"github.com/docuchat/docuchat/core/retriever"
)

type fakeChatModel struct {
	lastInput []*schema.Message
	reply     string
	err       error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported in tests")
}

type fakeRetriever struct {
	results []retriever.Result
	err     error
	lastQ   string
	lastF   retriever.Filters
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, filters retriever.Filters) ([]retriever.Result, error) {
	f.lastQ = query
	f.lastF = filters
	return f.results, f.err
}

func TestAnswerWithContext(t *testing.T) {
	model := &fakeChatModel{reply: "Revenue grew 12% (report.pdf p.3)."}
	ret := &fakeRetriever{results: []retriever.Result{
		{Text: "Revenue grew 12% year over year.", Page: 3, Source: "report.pdf", Score: 0.9},
		{Text: "Costs were flat.", Page: 5, Source: "report.pdf", Score: 0.8},
	}}

	a, err := NewAnswerer(model, ret)
	require.NoError(t, err)

	answer, sources, err := a.Answer(context.Background(), "How did revenue develop?", nil, retriever.Filters{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew 12% (report.pdf p.3).", answer)
	assert.Equal(t, "How did revenue develop?", ret.lastQ)

	// system + user 两条消息，上下文按固定格式拼装
	require.Len(t, model.lastInput, 2)
	assert.Equal(t, schema.System, model.lastInput[0].Role)
	assert.Contains(t, model.lastInput[1].Content, "[CHUNK 1] SOURCE: report.pdf | PAGE: 3")
	assert.Contains(t, model.lastInput[1].Content, "[CHUNK 2] SOURCE: report.pdf | PAGE: 5")
	assert.Contains(t, model.lastInput[1].Content, "QUESTION: How did revenue develop?")

	require.Len(t, sources, 2)
	assert.Equal(t, 3, sources[0].Page)
	assert.Equal(t, 5, sources[1].Page)
	assert.Equal(t, "Revenue grew 12% year over year.", sources[0].Snippet)
	assert.Equal(t, float32(0.9), sources[0].Similarity)
}

func TestAnswerEmptyRetrievalSkipsModel(t *testing.T) {
	model := &fakeChatModel{reply: "should not be used"}
	a, err := NewAnswerer(model, &fakeRetriever{})
	require.NoError(t, err)

	answer, sources, err := a.Answer(context.Background(), "anything", nil, retriever.Filters{})
	require.NoError(t, err)
	assert.Contains(t, answer, "couldn't find relevant content")
	assert.Empty(t, sources)
	assert.Nil(t, model.lastInput)
}

func TestAnswerDeduplicatesSources(t *testing.T) {
	model := &fakeChatModel{reply: "ok"}
	ret := &fakeRetriever{results: []retriever.Result{
		{Text: "a", Page: 2, Source: "doc.pdf", Score: 0.9},
		{Text: "b", Page: 2, Source: "doc.pdf", Score: 0.8},
		{Text: "c", Page: 4, Source: "doc.pdf", Score: 0.7},
		{Text: "d", Page: 2, Source: "other.pdf", Score: 0.6},
	}}
	a, err := NewAnswerer(model, ret)
	require.NoError(t, err)

	_, sources, err := a.Answer(context.Background(), "q", nil, retriever.Filters{})
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "doc.pdf", sources[0].Source)
	assert.Equal(t, 2, sources[0].Page)
	assert.Equal(t, 4, sources[1].Page)
	assert.Equal(t, "other.pdf", sources[2].Source)
	// 去重保留首个命中的摘录和相似度
	assert.Equal(t, "a", sources[0].Snippet)
	assert.Equal(t, float32(0.9), sources[0].Similarity)
}

func TestAnswerModelFailure(t *testing.T) {
	model := &fakeChatModel{err: fmt.Errorf("rate limited")}
	ret := &fakeRetriever{results: []retriever.Result{{Text: "x", Page: 1, Source: "a.pdf"}}}
	a, err := NewAnswerer(model, ret)
	require.NoError(t, err)

	_, _, err = a.Answer(context.Background(), "q", nil, retriever.Filters{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrLLMCallFailed))
}

func TestAnswerRetrieverFailure(t *testing.T) {
	a, err := NewAnswerer(&fakeChatModel{}, &fakeRetriever{err: fmt.Errorf("embed failed")})
	require.NoError(t, err)

	_, _, err = a.Answer(context.Background(), "q", nil, retriever.Filters{})
	assert.Error(t, err)
}

func TestAnswerCarriesChatHistory(t *testing.T) {
	model := &fakeChatModel{reply: "ok"}
	ret := &fakeRetriever{results: []retriever.Result{
		{Text: "context chunk", Page: 1, Source: "a.pdf", Score: 0.9},
	}}
	a, err := NewAnswerer(model, ret)
	require.NoError(t, err)

	history := []v1.ChatTurn{
		{Role: "user", Content: "What is chapter 2 about?"},
		{Role: "assistant", Content: "It covers revenue."},
		{Role: "system", Content: "should be dropped"},
	}
	_, _, err = a.Answer(context.Background(), "And chapter 3?", history, retriever.Filters{})
	require.NoError(t, err)

	// system + 2轮历史 + 本轮提问，未知角色被丢弃
	require.Len(t, model.lastInput, 4)
	assert.Equal(t, schema.System, model.lastInput[0].Role)
	assert.Equal(t, schema.User, model.lastInput[1].Role)
	assert.Equal(t, "What is chapter 2 about?", model.lastInput[1].Content)
	assert.Equal(t, schema.Assistant, model.lastInput[2].Role)
	assert.Equal(t, "It covers revenue.", model.lastInput[2].Content)
	assert.Contains(t, model.lastInput[3].Content, "QUESTION: And chapter 3?")
}

func TestMakeSnippetTruncatesAndFlattens(t *testing.T) {
	assert.Equal(t, "one line", makeSnippet("  one\nline  "))

	long := strings.Repeat("x", 300)
	got := makeSnippet(long)
	assert.Equal(t, strings.Repeat("x", 240)+"...", got)

	exact := strings.Repeat("y", 240)
	assert.Equal(t, exact, makeSnippet(exact))
}
