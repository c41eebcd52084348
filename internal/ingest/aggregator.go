package ingest

import (
	"sort"
	"time"

	"casper-backend/internal/models"
)

type civilDate struct {
	year  int
	month time.Month
	day   int
}

type bucketKey struct {
	start   civilDate
	buyerID uint
}

type bucket struct {
	start            time.Time
	buyer            models.Buyer
	quantity         uint
	extendedQuantity uint
}

// Aggregator sums line quantities per buyer and per week.
type Aggregator struct {
	buckets map[bucketKey]*bucket
}

func NewAggregator() *Aggregator {
	return &Aggregator{buckets: make(map[bucketKey]*bucket)}
}

// WeekStart returns the Monday on or before d, as a UTC calendar date.
func WeekStart(d time.Time) time.Time {
	y, m, day := d.Date()
	base := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	daysToMonday := (int(base.Weekday()) + 6) % 7
	return base.AddDate(0, 0, -daysToMonday)
}

// Add accumulates the line into its week bucket. Lines without a confirmed
// shipping date cannot be bucketed and are rejected.
func (a *Aggregator) Add(line *models.Line) error {
	if line.ConfirmedShipping == nil {
		return ErrMissingConfirmedShipping
	}
	start := WeekStart(*line.ConfirmedShipping)
	b := a.bucketFor(start, line.Buyer)
	b.quantity += line.Quantity
	b.extendedQuantity += line.ExtendedQuantity
	return nil
}

// bucketFor gets the bucket for (start, buyer), inserting a zeroed one if needed.
func (a *Aggregator) bucketFor(start time.Time, buyer models.Buyer) *bucket {
	y, m, d := start.Date()
	key := bucketKey{start: civilDate{y, m, d}, buyerID: buyer.ID}
	b, ok := a.buckets[key]
	if !ok {
		b = &bucket{start: start, buyer: buyer}
		a.buckets[key] = b
	}
	return b
}

func (a *Aggregator) Len() int {
	return len(a.buckets)
}

// Summaries emits one summary per populated bucket, ordered by week then buyer code.
func (a *Aggregator) Summaries(feedID uint) []models.Summary {
	out := make([]models.Summary, 0, len(a.buckets))
	for _, b := range a.buckets {
		out = append(out, models.Summary{
			FeedID:           feedID,
			BuyerID:          b.buyer.ID,
			Buyer:            b.buyer,
			StartDate:        b.start,
			Quantity:         b.quantity,
			ExtendedQuantity: b.extendedQuantity,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].Buyer.Code < out[j].Buyer.Code
	})
	return out
}
