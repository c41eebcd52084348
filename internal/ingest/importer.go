package ingest

import (
	"bytes"
	"context"
	"errors"
	"log"

	"casper-backend/internal/models"
	"casper-backend/internal/storage"
)

// State of one import. Only Committed imports leave rows behind.
type State string

const (
	StateStarted        State = "started"
	StateRowsProcessing State = "rows_processing"
	StateAggregating    State = "aggregating"
	StateCommitted      State = "committed"
	StateRolledBack     State = "rolled_back"
)

type Upload struct {
	Filename   string
	Content    []byte
	UploadedBy *models.User
}

type Result struct {
	Feed      *models.Feed
	State     State
	Rows      int
	Lines     int
	Skipped   int
	Summaries int
}

// Importer loads a feed workbook as one all-or-nothing unit.
type Importer struct {
	store  Store
	files  storage.FileStore
	layout Layout
}

func NewImporter(store Store, files storage.FileStore, layout Layout) *Importer {
	return &Importer{store: store, files: files, layout: layout}
}

// Import stores the file, creates the feed, its lines and weekly summaries.
// On any error every write of this import is discarded, the feed included,
// and the stored file is removed again.
func (im *Importer) Import(ctx context.Context, up Upload) (*Result, error) {
	if err := ValidateFilename(up.Filename); err != nil {
		return nil, err
	}

	res := &Result{State: StateStarted}

	key, checksum, err := im.files.Save(up.Filename, bytes.NewReader(up.Content))
	if err != nil {
		res.State = StateRolledBack
		return res, err
	}

	err = im.store.Transaction(ctx, func(tx Tx) error {
		feed := &models.Feed{
			File:     key,
			Filename: up.Filename,
			Checksum: checksum,
		}
		if up.UploadedBy != nil {
			feed.UploadedByID = &up.UploadedBy.ID
		}
		if err := tx.CreateFeed(feed); err != nil {
			return err
		}

		// read once, the import never sees later changes to the lookup tables
		refs, err := tx.LoadReferences()
		if err != nil {
			return err
		}

		reader, err := OpenWorkbook(up.Filename, up.Content)
		if err != nil {
			return err
		}
		defer reader.Close()

		res.State = StateRowsProcessing
		normalizer := NewNormalizer(im.layout, refs)
		agg := NewAggregator()

		for reader.Next() {
			res.Rows++
			line, err := normalizer.Normalize(reader.Row())
			if errors.Is(err, ErrSkipRow) {
				res.Skipped++
				continue
			}
			if err != nil {
				return &RowError{Row: res.Rows, Err: err}
			}

			line.FeedID = feed.ID
			if err := tx.CreateLine(line); err != nil {
				return &RowError{Row: res.Rows, Err: err}
			}
			if err := agg.Add(line); err != nil {
				return &RowError{Row: res.Rows, Err: err}
			}
			res.Lines++
		}
		if err := reader.Err(); err != nil {
			return err
		}

		res.State = StateAggregating
		summaries := agg.Summaries(feed.ID)
		if err := tx.CreateSummaries(summaries); err != nil {
			return err
		}
		res.Summaries = len(summaries)
		res.Feed = feed
		return nil
	})

	if err != nil {
		log.Printf("Feed import %q rolled back during %s: %v", up.Filename, res.State, err)
		res.State = StateRolledBack
		res.Feed = nil
		if rmErr := im.files.Remove(key); rmErr != nil {
			log.Printf("Stored file %s could not be removed: %v", key, rmErr)
		}
		return res, err
	}

	res.State = StateCommitted
	log.Printf("Feed %d imported: %d rows, %d lines, %d skipped, %d summaries", res.Feed.ID, res.Rows, res.Lines, res.Skipped, res.Summaries)
	return res, nil
}
