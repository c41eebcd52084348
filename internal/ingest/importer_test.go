package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"casper-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore keeps committed rows in memory; a transaction writes to a copy
// that is only merged back when fn succeeds.
type memStore struct {
	buyers    []models.Buyer
	planners  []models.Planner
	feeds     []models.Feed
	lines     []models.Line
	summaries []models.Summary
	nextID    uint
	failLine  int // fail the n-th CreateLine, 0 disables
}

func newMemStore() *memStore {
	return &memStore{
		buyers:   []models.Buyer{buyerORT, buyerABC},
		planners: []models.Planner{plannerORT, plannerPLN},
		nextID:   100,
	}
}

func (s *memStore) Transaction(_ context.Context, fn func(tx Tx) error) error {
	tx := &memTx{store: s, nextID: s.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	s.feeds = append(s.feeds, tx.feeds...)
	s.lines = append(s.lines, tx.lines...)
	s.summaries = append(s.summaries, tx.summaries...)
	s.nextID = tx.nextID
	return nil
}

type memTx struct {
	store     *memStore
	feeds     []models.Feed
	lines     []models.Line
	summaries []models.Summary
	nextID    uint
}

func (t *memTx) id() uint {
	t.nextID++
	return t.nextID
}

func (t *memTx) CreateFeed(feed *models.Feed) error {
	feed.ID = t.id()
	t.feeds = append(t.feeds, *feed)
	return nil
}

func (t *memTx) LoadReferences() (References, error) {
	return NewReferences(t.store.buyers, t.store.planners), nil
}

func (t *memTx) CreateLine(line *models.Line) error {
	if t.store.failLine > 0 && len(t.lines)+1 == t.store.failLine {
		return errors.New("disk full")
	}
	line.ID = t.id()
	t.lines = append(t.lines, *line)
	return nil
}

func (t *memTx) CreateSummaries(summaries []models.Summary) error {
	for i := range summaries {
		summaries[i].ID = t.id()
	}
	t.summaries = append(t.summaries, summaries...)
	return nil
}

type memFiles struct {
	files map[string][]byte
	n     int
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string][]byte{}}
}

func (m *memFiles) Save(filename string, r io.Reader) (string, string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}
	m.n++
	key := fmt.Sprintf("feeds/%d/%s", m.n, filename)
	m.files[key] = b
	return key, "checksum", nil
}

func (m *memFiles) Open(key string) (io.ReadCloser, error) {
	b, ok := m.files[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memFiles) Remove(key string) error {
	delete(m.files, key)
	return nil
}

var (
	wednesday = time.Date(2021, 3, 17, 0, 0, 0, 0, time.UTC)
	uploader  = &models.User{ID: 7, Email: "ana@belf.com"}
)

func header() []interface{} {
	return sheetRow(map[int]interface{}{0: "Sales Order", 2: "Item", 11: "Site", 18: "Buyer"})
}

func TestImportCommitsLinesAndSummaries(t *testing.T) {
	t.Parallel()

	store, files := newMemStore(), newMemFiles()
	abc := kitRowValues("ABC", wednesday.AddDate(0, 0, 6))
	abc[LayoutV1.PlannerCode] = "PLN"
	content := buildWorkbook(t,
		header(),
		sheetRow(kitRowValues("ORT", wednesday)),
		sheetRow(kitRowValues("ORT", wednesday.AddDate(0, 0, 2))),
		sheetRow(abc),
		sheetRow(kitRowValues("ORT", nil)),
	)

	im := NewImporter(store, files, LayoutV1)
	res, err := im.Import(context.Background(), Upload{Filename: "feed.xlsx", Content: content, UploadedBy: uploader})
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, 5, res.Rows)
	assert.Equal(t, 3, res.Lines)
	assert.Equal(t, 2, res.Skipped)
	require.NotNil(t, res.Feed)
	assert.Equal(t, uploader.ID, *res.Feed.UploadedByID)

	require.Len(t, store.feeds, 1)
	require.Len(t, store.lines, 3)
	require.Len(t, store.summaries, 2)
	for _, l := range store.lines {
		assert.Equal(t, res.Feed.ID, l.FeedID)
		assert.GreaterOrEqual(t, l.ExtendedQuantity, l.Quantity)
	}

	ort := store.summaries[0]
	assert.Equal(t, day("2021-03-15"), ort.StartDate)
	assert.Equal(t, buyerORT.ID, ort.BuyerID)
	assert.Equal(t, uint(10), ort.Quantity)
	assert.Equal(t, uint(60), ort.ExtendedQuantity)

	abcSummary := store.summaries[1]
	assert.Equal(t, day("2021-03-22"), abcSummary.StartDate)
	assert.Equal(t, uint(5), abcSummary.Quantity)
	assert.Equal(t, uint(5), abcSummary.ExtendedQuantity)

	assert.Len(t, files.files, 1)
}

func TestImportScenarioRollsBackOnUnknownBuyer(t *testing.T) {
	t.Parallel()

	store, files := newMemStore(), newMemFiles()
	content := buildWorkbook(t,
		sheetRow(kitRowValues("ORT", wednesday)),
		sheetRow(kitRowValues("ORT", nil)),
		sheetRow(kitRowValues("XYZ", wednesday)),
	)

	res, err := NewImporter(store, files, LayoutV1).Import(context.Background(), Upload{Filename: "feed.xlsx", Content: content})
	require.Error(t, err)

	var ref *UnresolvedReferenceError
	require.ErrorAs(t, err, &ref)
	assert.Equal(t, "XYZ", ref.Code)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)

	assert.Equal(t, StateRolledBack, res.State)
	assert.Nil(t, res.Feed)
	assert.Empty(t, store.feeds)
	assert.Empty(t, store.lines)
	assert.Empty(t, store.summaries)
	assert.Empty(t, files.files)
}

func TestImportScenarioFirstTwoRows(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	content := buildWorkbook(t,
		sheetRow(kitRowValues("ORT", wednesday)),
		sheetRow(kitRowValues("ORT", nil)),
	)

	res, err := NewImporter(store, newMemFiles(), LayoutV1).Import(context.Background(), Upload{Filename: "feed.xlsx", Content: content})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Lines)

	require.Len(t, store.lines, 1)
	assert.Equal(t, uint(5), store.lines[0].Quantity)
	assert.Equal(t, uint(30), store.lines[0].ExtendedQuantity)
	require.Len(t, store.summaries, 1)
	assert.Equal(t, uint(5), store.summaries[0].Quantity)
	assert.Equal(t, uint(30), store.summaries[0].ExtendedQuantity)
	assert.Equal(t, day("2021-03-15"), store.summaries[0].StartDate)
}

func TestImportRollsBackOnPersistenceFailure(t *testing.T) {
	t.Parallel()

	store, files := newMemStore(), newMemFiles()
	store.failLine = 2
	content := buildWorkbook(t,
		sheetRow(kitRowValues("ORT", wednesday)),
		sheetRow(kitRowValues("ORT", wednesday)),
	)

	res, err := NewImporter(store, files, LayoutV1).Import(context.Background(), Upload{Filename: "feed.xlsx", Content: content})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, StateRolledBack, res.State)
	assert.Empty(t, store.feeds)
	assert.Empty(t, store.lines)
	assert.Empty(t, files.files)
}

func TestImportMalformedWorkbook(t *testing.T) {
	t.Parallel()

	store, files := newMemStore(), newMemFiles()
	res, err := NewImporter(store, files, LayoutV1).Import(context.Background(), Upload{Filename: "feed.xlsx", Content: []byte("garbage")})
	assert.ErrorIs(t, err, ErrMalformedWorkbook)
	assert.Equal(t, StateRolledBack, res.State)
	assert.Equal(t, 0, res.Rows)
	assert.Empty(t, store.feeds)
	assert.Empty(t, files.files)
}

func TestImportRejectsUnsupportedExtension(t *testing.T) {
	t.Parallel()

	store, files := newMemStore(), newMemFiles()
	_, err := NewImporter(store, files, LayoutV1).Import(context.Background(), Upload{Filename: "feed.csv", Content: []byte("a,b")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, files.files)
	assert.Empty(t, store.feeds)
}

func TestImportsDoNotShareState(t *testing.T) {
	t.Parallel()

	store, files := newMemStore(), newMemFiles()
	im := NewImporter(store, files, LayoutV1)
	content := buildWorkbook(t, sheetRow(kitRowValues("ORT", wednesday)))

	first, err := im.Import(context.Background(), Upload{Filename: "a.xlsx", Content: content})
	require.NoError(t, err)
	second, err := im.Import(context.Background(), Upload{Filename: "b.xlsx", Content: content})
	require.NoError(t, err)

	assert.NotEqual(t, first.Feed.ID, second.Feed.ID)
	require.Len(t, store.summaries, 2)
	// each feed gets its own bucket, nothing carried over
	assert.Equal(t, uint(30), store.summaries[0].ExtendedQuantity)
	assert.Equal(t, uint(30), store.summaries[1].ExtendedQuantity)
}
