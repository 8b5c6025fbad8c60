package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fund-report-rag/internal/extractor"
	"fund-report-rag/internal/models"
	"fund-report-rag/internal/processor"
	"fund-report-rag/internal/tableparser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePage struct{ text string }

func (p *fakePage) Text() (string, error)              { return p.text, nil }
func (p *fakePage) Tables() ([]models.RawTable, error) { return nil, nil }

type fakeDocument struct{ pages []*fakePage }

func (d *fakeDocument) PageCount() int { return len(d.pages) }
func (d *fakeDocument) Page(i int) (extractor.Page, error) {
	return d.pages[i], nil
}
func (d *fakeDocument) Close() error { return nil }

type fakeExtractor struct {
	doc     *fakeDocument
	openErr error
	panics  bool
}

func (e *fakeExtractor) Open(path string) (extractor.Document, error) {
	if e.panics {
		panic("corrupt xref table")
	}
	if e.openErr != nil {
		return nil, e.openErr
	}
	return e.doc, nil
}

type noopTxStore struct{}

func (noopTxStore) SaveCapitalCalls(context.Context, []models.CapitalCall) error   { return nil }
func (noopTxStore) SaveDistributions(context.Context, []models.Distribution) error { return nil }
func (noopTxStore) SaveAdjustments(context.Context, []models.Adjustment) error     { return nil }

type noopIndexer struct{}

func (noopIndexer) AddDocuments(context.Context, []string, []models.ChunkMetadata) error { return nil }

type statusRecorder struct {
	mu          sync.Mutex
	transitions map[int64][]string
	errs        map[int64]string
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{
		transitions: make(map[int64][]string),
		errs:        make(map[int64]string),
	}
}

func (r *statusRecorder) SetStatus(ctx context.Context, id int64, status, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[id] = append(r.transitions[id], status)
	r.errs[id] = errMsg
	return nil
}

func newTestDispatcher(ext *fakeExtractor, recorder *statusRecorder) *Dispatcher {
	proc := processor.New(ext, tableparser.New(), processor.NewChunker(1000, 200),
		noopTxStore{}, noopIndexer{}, zap.NewNop())
	return NewDispatcher(proc, recorder, 1, 8, zap.NewNop())
}

func TestDispatcher_ProcessesJob(t *testing.T) {
	ext := &fakeExtractor{doc: &fakeDocument{pages: []*fakePage{
		{text: "A page of report text that is comfortably long enough to chunk."},
	}}}
	recorder := newStatusRecorder()
	d := newTestDispatcher(ext, recorder)

	d.Start(context.Background(), 1)
	require.NoError(t, d.Enqueue(Job{DocumentID: 1, FilePath: "a.pdf", FundID: 2}))
	d.Stop()

	assert.Equal(t, []string{models.StatusProcessing, models.StatusCompleted}, recorder.transitions[1])
	assert.Empty(t, recorder.errs[1])
}

func TestDispatcher_RecordsFailure(t *testing.T) {
	ext := &fakeExtractor{openErr: errors.New("unreadable file")}
	recorder := newStatusRecorder()
	d := newTestDispatcher(ext, recorder)

	d.Start(context.Background(), 1)
	require.NoError(t, d.Enqueue(Job{DocumentID: 5, FilePath: "b.pdf", FundID: 2}))
	d.Stop()

	assert.Equal(t, []string{models.StatusProcessing, models.StatusFailed}, recorder.transitions[5])
	assert.Contains(t, recorder.errs[5], "pdf_open_error")
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	ext := &fakeExtractor{panics: true}
	recorder := newStatusRecorder()
	d := newTestDispatcher(ext, recorder)

	d.Start(context.Background(), 1)
	require.NoError(t, d.Enqueue(Job{DocumentID: 9, FilePath: "c.pdf", FundID: 2}))
	d.Stop()

	assert.Equal(t, []string{models.StatusProcessing, models.StatusFailed}, recorder.transitions[9])
	assert.Contains(t, recorder.errs[9], "internal error")
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	d := newTestDispatcher(&fakeExtractor{doc: &fakeDocument{}}, newStatusRecorder())
	d.Start(context.Background(), 1)
	d.Stop()

	err := d.Enqueue(Job{DocumentID: 1})
	assert.Error(t, err)
}

func TestDispatcher_QueueFull(t *testing.T) {
	proc := processor.New(&fakeExtractor{doc: &fakeDocument{}}, tableparser.New(),
		processor.NewChunker(1000, 200), noopTxStore{}, noopIndexer{}, zap.NewNop())
	d := NewDispatcher(proc, newStatusRecorder(), 1, 1, zap.NewNop())
	// Workers never started: the buffered slot fills and the next enqueue
	// must fail fast instead of blocking.
	require.NoError(t, d.Enqueue(Job{DocumentID: 1}))

	err := d.Enqueue(Job{DocumentID: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}
