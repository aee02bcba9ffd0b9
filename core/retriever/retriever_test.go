package retriever

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/core/chunkstore"
	"github.com/docuchat/docuchat/core/errors"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

// fakeStore 按 SessionID/DocumentID 过滤预置数据，模拟真实存储的范围隔离
type fakeStore struct {
	chunkstore.Store

	matches    []chunkstore.Match
	sessions   []string // matches[i] 所属会话
	searchErr  error
	lastParams chunkstore.SearchParams
}

func (f *fakeStore) Search(ctx context.Context, params chunkstore.SearchParams) ([]chunkstore.Match, error) {
	f.lastParams = params
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	out := make([]chunkstore.Match, 0, len(f.matches))
	for i, m := range f.matches {
		if f.sessions[i] != params.SessionID {
			continue
		}
		if params.DocumentID != "" && m.DocumentID != params.DocumentID {
			continue
		}
		out = append(out, m)
		if len(out) == params.TopK {
			break
		}
	}
	return out, nil
}

func TestRetrievePreservesStoreOrder(t *testing.T) {
	store := &fakeStore{
		matches: []chunkstore.Match{
			{Text: "first", Page: 3, Source: "a.pdf", DocumentID: "doc-1", Score: 0.93},
			{Text: "second", Page: 1, Source: "a.pdf", DocumentID: "doc-1", Score: 0.87},
			{Text: "third", Page: 9, Source: "b.pdf", DocumentID: "doc-2", Score: 0.52},
		},
		sessions: []string{"s1", "s1", "s1"},
	}
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1, 0}}, store)
	require.NoError(t, err)

	results, err := e.Retrieve(context.Background(), "what grew", Filters{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Text)
	assert.Equal(t, "second", results[1].Text)
	assert.Equal(t, "third", results[2].Text)
	assert.Equal(t, 3, results[0].Page)
	assert.Equal(t, float32(0.93), results[0].Score)
}

func TestRetrieveSkipsEmptyText(t *testing.T) {
	store := &fakeStore{
		matches: []chunkstore.Match{
			{Text: "kept", DocumentID: "doc-1", Score: 0.9},
			{Text: "   ", DocumentID: "doc-1", Score: 0.8},
			{Text: "", DocumentID: "doc-1", Score: 0.7},
			{Text: "also kept", DocumentID: "doc-1", Score: 0.6},
		},
		sessions: []string{"default", "default", "default", "default"},
	}
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, store)
	require.NoError(t, err)

	results, err := e.Retrieve(context.Background(), "anything", Filters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "kept", results[0].Text)
	assert.Equal(t, "also kept", results[1].Text)
}

func TestRetrieveDegradesToEmptyOnStoreFailure(t *testing.T) {
	store := &fakeStore{searchErr: fmt.Errorf("connection refused")}
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, store)
	require.NoError(t, err)

	results, err := e.Retrieve(context.Background(), "anything", Filters{SessionID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveEmbeddingFailureIsAnError(t *testing.T) {
	store := &fakeStore{}
	e, err := NewEngine(&fakeEmbedder{err: fmt.Errorf("upstream down")}, store)
	require.NoError(t, err)

	_, err = e.Retrieve(context.Background(), "anything", Filters{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrRetrievalFailed))
	assert.Contains(t, err.Error(), "upstream down")
}

func TestRetrieveSessionIsolation(t *testing.T) {
	store := &fakeStore{
		matches: []chunkstore.Match{
			{Text: "alice's report", DocumentID: "doc-a", Score: 0.9},
			{Text: "bob's notes", DocumentID: "doc-b", Score: 0.9},
		},
		sessions: []string{"alice", "bob"},
	}
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, store)
	require.NoError(t, err)

	results, err := e.Retrieve(context.Background(), "report", Filters{SessionID: "alice"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice's report", results[0].Text)
}

func TestRetrieveDocumentScope(t *testing.T) {
	store := &fakeStore{
		matches: []chunkstore.Match{
			{Text: "from doc-1", DocumentID: "doc-1", Score: 0.9},
			{Text: "from doc-2", DocumentID: "doc-2", Score: 0.8},
		},
		sessions: []string{"s1", "s1"},
	}
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, store)
	require.NoError(t, err)

	results, err := e.Retrieve(context.Background(), "q", Filters{SessionID: "s1", DocumentID: "doc-2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "from doc-2", results[0].Text)
}

func TestRetrieveDefaultsAndClamping(t *testing.T) {
	store := &fakeStore{}
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, store)
	require.NoError(t, err)

	// 空会话回落到默认会话
	_, err = e.Retrieve(context.Background(), "q", Filters{})
	require.NoError(t, err)
	assert.Equal(t, "default", store.lastParams.SessionID)
	assert.Equal(t, DefaultTopK, store.lastParams.TopK)
	assert.Equal(t, DefaultNumCandidates, store.lastParams.NumCandidates)

	// 候选集被抬升到不低于topK
	e2, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, store, WithTopK(50), WithNumCandidates(10))
	require.NoError(t, err)
	_, err = e2.Retrieve(context.Background(), "q", Filters{})
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastParams.TopK)
	assert.Equal(t, 50, store.lastParams.NumCandidates)
}

func TestRetrievePerRequestOverrides(t *testing.T) {
	store := &fakeStore{}
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, store)
	require.NoError(t, err)

	// 请求级 topK/候选集覆盖引擎默认值
	_, err = e.Retrieve(context.Background(), "q", Filters{TopK: 12, NumCandidates: 100})
	require.NoError(t, err)
	assert.Equal(t, 12, store.lastParams.TopK)
	assert.Equal(t, 100, store.lastParams.NumCandidates)

	// 候选集小于topK时抬升到topK
	_, err = e.Retrieve(context.Background(), "q", Filters{TopK: 30, NumCandidates: 5})
	require.NoError(t, err)
	assert.Equal(t, 30, store.lastParams.TopK)
	assert.Equal(t, 30, store.lastParams.NumCandidates)

	// 只给topK，候选集沿用默认但不低于topK
	_, err = e.Retrieve(context.Background(), "q", Filters{TopK: 200})
	require.NoError(t, err)
	assert.Equal(t, 200, store.lastParams.TopK)
	assert.Equal(t, 200, store.lastParams.NumCandidates)

	// 0 沿用引擎配置
	_, err = e.Retrieve(context.Background(), "q", Filters{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, store.lastParams.TopK)
	assert.Equal(t, DefaultNumCandidates, store.lastParams.NumCandidates)

	// 负值拒绝
	_, err = e.Retrieve(context.Background(), "q", Filters{TopK: -1})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidParameter))
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	e, err := NewEngine(&fakeEmbedder{vec: []float32{1}}, &fakeStore{})
	require.NoError(t, err)

	_, err = e.Retrieve(context.Background(), "   ", Filters{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidParameter))
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(nil, &fakeStore{})
	assert.Error(t, err)

	_, err = NewEngine(&fakeEmbedder{}, nil)
	assert.Error(t, err)
}
