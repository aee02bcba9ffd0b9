package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchat/docuchat/core/chunkstore"
	"github.com/docuchat/docuchat/core/errors"
	"github.com/docuchat/docuchat/core/splitter"
)

type fakeLoader struct {
	pages []splitter.Page
	err   error
}

func (f *fakeLoader) LoadPages(ctx context.Context, path string, source string) ([]splitter.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	pages := make([]splitter.Page, len(f.pages))
	copy(pages, f.pages)
	for i := range pages {
		pages[i].Source = source
	}
	return pages, nil
}

type stubEmbedder struct {
	dim int
	err error
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

type recordingStore struct {
	chunkstore.Store

	mu          sync.Mutex
	inserted    []chunkstore.Passage
	insertErr   error
	insertCount *int // 覆盖返回的写入条数
	deleted     []string
}

func (r *recordingStore) InsertPassages(ctx context.Context, passages []chunkstore.Passage) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.inserted = append(r.inserted, passages...)
	if r.insertCount != nil {
		return *r.insertCount, nil
	}
	return len(passages), nil
}

func (r *recordingStore) DeleteByDocument(ctx context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, documentID)
	return nil
}

type recordingMarker struct {
	mu         sync.Mutex
	readyID    string
	readyPages int
	errorID    string
	errorMsg   string
	done       chan struct{}
}

func newRecordingMarker() *recordingMarker {
	return &recordingMarker{done: make(chan struct{}, 2)}
}

func (m *recordingMarker) MarkReady(ctx context.Context, documentID string, pages int) error {
	m.mu.Lock()
	m.readyID = documentID
	m.readyPages = pages
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func (m *recordingMarker) MarkError(ctx context.Context, documentID string, message string) error {
	m.mu.Lock()
	m.errorID = documentID
	m.errorMsg = message
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil
}

func newTestSplitter(t *testing.T) *splitter.Splitter {
	t.Helper()
	s, err := splitter.New(context.Background(), splitter.Config{ChunkSize: 1000, ChunkOverlap: 150})
	require.NoError(t, err)
	return s
}

func tempUploadFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))
	return path
}

const ingestDocID = "0f5c1c6e-9d2a-4b44-8c59-7a33f21d9a01"

func TestProcessSuccess(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	marker := newRecordingMarker()
	loader := &fakeLoader{pages: []splitter.Page{
		{Number: 1, Text: "Quarterly revenue increased across all regions."},
		{Number: 2, Text: "Operating costs were flat compared to last year."},
		{Number: 3, Text: "The appendix lists data sources and methodology."},
	}}

	o, err := NewOrchestrator(loader, newTestSplitter(t), &stubEmbedder{dim: 4}, store, marker)
	require.NoError(t, err)

	path := tempUploadFile(t)
	job := &Job{
		DocumentID: ingestDocID,
		SessionID:  "session-1",
		FilePath:   path,
		FileName:   "report.pdf",
		RemoveFile: true,
	}
	require.NoError(t, o.Process(ctx, job))

	// 分片归属和顺序
	require.NotEmpty(t, store.inserted)
	for i, p := range store.inserted {
		assert.Equal(t, ingestDocID, p.DocumentID)
		assert.Equal(t, "session-1", p.SessionID)
		assert.Equal(t, "report.pdf", p.Source)
		assert.Equal(t, i, p.ChunkIndex)
		assert.NotEmpty(t, p.ID)
		assert.Len(t, p.Embedding, 4)
		assert.Greater(t, p.Page, 0)
	}

	// 状态就绪并记录页数
	assert.Equal(t, ingestDocID, marker.readyID)
	assert.Equal(t, 3, marker.readyPages)
	assert.Empty(t, marker.errorID)
	assert.Empty(t, store.deleted)

	// 临时文件已删除
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessEmptyDocument(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	marker := newRecordingMarker()
	loader := &fakeLoader{pages: []splitter.Page{{Number: 1, Text: "   "}}}

	o, err := NewOrchestrator(loader, newTestSplitter(t), &stubEmbedder{dim: 4}, store, marker)
	require.NoError(t, err)

	path := tempUploadFile(t)
	job := &Job{DocumentID: ingestDocID, SessionID: "s", FilePath: path, FileName: "blank.pdf", RemoveFile: true}

	err = o.Process(ctx, job)
	require.Error(t, err)

	// 错误信息原样落库
	assert.Equal(t, ingestDocID, marker.errorID)
	assert.Contains(t, marker.errorMsg, "no text could be extracted from this document")
	assert.Empty(t, marker.readyID)

	// 已写入的分片被清理，临时文件被删除
	assert.Equal(t, []string{ingestDocID}, store.deleted)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestProcessEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	marker := newRecordingMarker()
	loader := &fakeLoader{pages: []splitter.Page{{Number: 1, Text: "Some parseable content."}}}

	embedErr := errors.Newf(errors.ErrDimensionMismatch, "embedding dimension mismatch: expected 384, got 256")
	o, err := NewOrchestrator(loader, newTestSplitter(t), &stubEmbedder{err: embedErr}, store, marker)
	require.NoError(t, err)

	err = o.Process(ctx, &Job{DocumentID: ingestDocID, SessionID: "s", FilePath: tempUploadFile(t), FileName: "doc.pdf", RemoveFile: true})
	require.Error(t, err)

	assert.Contains(t, marker.errorMsg, "expected 384, got 256")
	assert.Empty(t, store.inserted)
	assert.Equal(t, []string{ingestDocID}, store.deleted)
}

func TestProcessStorageRejected(t *testing.T) {
	ctx := context.Background()
	zero := 0
	store := &recordingStore{insertCount: &zero}
	marker := newRecordingMarker()
	loader := &fakeLoader{pages: []splitter.Page{{Number: 1, Text: "Content that should be stored."}}}

	o, err := NewOrchestrator(loader, newTestSplitter(t), &stubEmbedder{dim: 4}, store, marker)
	require.NoError(t, err)

	err = o.Process(ctx, &Job{DocumentID: ingestDocID, SessionID: "s", FilePath: tempUploadFile(t), FileName: "doc.pdf", RemoveFile: true})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrStorageRejected))
	assert.Contains(t, marker.errorMsg, "no passages were stored")
}

func TestProcessLoaderFailureStillRemovesFile(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	marker := newRecordingMarker()
	loader := &fakeLoader{err: errors.New(errors.ErrIngestionFailed, "failed to parse pdf: broken xref")}

	o, err := NewOrchestrator(loader, newTestSplitter(t), &stubEmbedder{dim: 4}, store, marker)
	require.NoError(t, err)

	path := tempUploadFile(t)
	err = o.Process(ctx, &Job{DocumentID: ingestDocID, SessionID: "s", FilePath: path, FileName: "doc.pdf", RemoveFile: true})
	require.Error(t, err)

	assert.Contains(t, marker.errorMsg, "broken xref")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEnqueueRunsAsynchronously(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	marker := newRecordingMarker()
	loader := &fakeLoader{pages: []splitter.Page{{Number: 1, Text: "Async ingestion content."}}}

	o, err := NewOrchestrator(loader, newTestSplitter(t), &stubEmbedder{dim: 4}, store, marker)
	require.NoError(t, err)

	o.Enqueue(ctx, &Job{DocumentID: ingestDocID, SessionID: "s", FilePath: tempUploadFile(t), FileName: "doc.pdf", RemoveFile: true})

	select {
	case <-marker.done:
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion did not finish in time")
	}
	assert.Equal(t, ingestDocID, marker.readyID)
}

func TestNewOrchestratorValidation(t *testing.T) {
	_, err := NewOrchestrator(nil, newTestSplitter(t), &stubEmbedder{dim: 4}, &recordingStore{}, newRecordingMarker())
	assert.Error(t, err)
}
