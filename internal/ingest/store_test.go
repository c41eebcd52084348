package ingest

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"casper-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errNoServer = errors.New("dry run, no server")

// noConn refuses every statement; DryRun sessions never send any.
type noConn struct{}

func (noConn) PrepareContext(context.Context, string) (*sql.Stmt, error) { return nil, errNoServer }
func (noConn) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoServer
}
func (noConn) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoServer
}
func (noConn) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

// fakePool hands out fakeTx so gorm's Transaction can begin and commit
// without a server.
type fakePool struct {
	noConn
	tx *fakeTx
}

func (p *fakePool) BeginTx(context.Context, *sql.TxOptions) (gorm.ConnPool, error) {
	p.tx = &fakeTx{}
	return p.tx, nil
}

type fakeTx struct {
	noConn
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

// recordedInserts opens a DryRun postgres session and collects the SQL of
// every create, associations included.
func recordedInserts(t *testing.T) (*gorm.DB, *fakePool, func() []string) {
	t.Helper()

	pool := &fakePool{}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var inserts []string
	err = db.Callback().Create().After("gorm:create").Register("test:record_insert", func(tx *gorm.DB) {
		mu.Lock()
		defer mu.Unlock()
		inserts = append(inserts, tx.Statement.SQL.String())
	})
	require.NoError(t, err)

	return db, pool, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), inserts...)
	}
}

func importedLine() *models.Line {
	confirmed := day("2021-03-17")
	return &models.Line{
		FeedID:            1,
		SalesOrderNumber:  "SO-1001",
		ItemNumber:        "EZC5E12Q06-01",
		Revision:          "A",
		Quantity:          5,
		ExtendedQuantity:  30,
		Unit:              "pcs",
		ConfirmedShipping: &confirmed,
		Site:              SupportedSite,
		UnitPrice:         decimal.RequireFromString("12.35"),
		NetAmount:         decimal.RequireFromString("61.75"),
		BuyerID:           buyerORT.ID,
		Buyer:             buyerORT,
		PlannerID:         plannerORT.ID,
		Planner:           plannerORT,
		SalesTaker:        "jdoe",
	}
}

func insertsInto(inserts []string, table string) []string {
	var out []string
	for _, s := range inserts {
		if strings.HasPrefix(s, `INSERT INTO "`+table+`"`) {
			out = append(out, s)
		}
	}
	return out
}

func TestGormStoreWritesOnlyImportTables(t *testing.T) {
	t.Parallel()

	db, pool, inserts := recordedInserts(t)
	store := NewGormStore(db)

	err := store.Transaction(context.Background(), func(tx Tx) error {
		feed := &models.Feed{File: "feeds/x/feed.xlsx", Filename: "feed.xlsx", UploadedByID: &uploader.ID, UploadedBy: uploader}
		if err := tx.CreateFeed(feed); err != nil {
			return err
		}
		if err := tx.CreateLine(importedLine()); err != nil {
			return err
		}
		return tx.CreateSummaries([]models.Summary{
			{FeedID: 1, BuyerID: buyerORT.ID, Buyer: buyerORT, StartDate: day("2021-03-15"), Quantity: 5, ExtendedQuantity: 30},
		})
	})
	require.NoError(t, err)

	require.NotNil(t, pool.tx)
	assert.True(t, pool.tx.committed)
	assert.False(t, pool.tx.rolledBack)

	got := inserts()
	assert.Len(t, insertsInto(got, "feeds"), 1)
	assert.Len(t, insertsInto(got, "lines"), 1)
	assert.Len(t, insertsInto(got, "summaries"), 1)
	assert.Empty(t, insertsInto(got, "buyers"), got)
	assert.Empty(t, insertsInto(got, "planners"), got)
	assert.Empty(t, insertsInto(got, "users"), got)
	assert.Len(t, got, 3)
}

func TestGormStoreRollsBackOnError(t *testing.T) {
	t.Parallel()

	db, pool, _ := recordedInserts(t)
	err := NewGormStore(db).Transaction(context.Background(), func(tx Tx) error {
		if err := tx.CreateLine(importedLine()); err != nil {
			return err
		}
		return errors.New("row 3: unknown buyer")
	})
	require.Error(t, err)

	require.NotNil(t, pool.tx)
	assert.True(t, pool.tx.rolledBack)
	assert.False(t, pool.tx.committed)
}

// Without Omit gorm upserts the loaded buyer and planner along with the
// line, which is what the recorder must be able to see.
func TestRecordedInsertsSeeAssociations(t *testing.T) {
	t.Parallel()

	db, _, inserts := recordedInserts(t)
	require.NoError(t, db.Create(importedLine()).Error)

	got := inserts()
	assert.Len(t, insertsInto(got, "lines"), 1)
	assert.NotEmpty(t, insertsInto(got, "buyers"), got)
	assert.NotEmpty(t, insertsInto(got, "planners"), got)
}
