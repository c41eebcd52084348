package pagination

import (
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

type Params struct {
	Page     int
	Limit    int
	Disabled bool // pagination=0, every row and no links
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta is everything of the list envelope except the rows.
type Meta struct {
	Count    int64
	Next     *string
	Previous *string
}

type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func NewPage[T any](m Meta, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	return Page[T]{Count: m.Count, Next: m.Next, Previous: m.Previous, Results: results}
}

func invalidPage() error {
	return fiber.NewError(fiber.StatusNotFound, "Invalid page.")
}

// Parse reads page, limit and pagination from the query string.
func Parse(c *fiber.Ctx, defaultLimit int) (Params, error) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	p := Params{Page: 1, Limit: defaultLimit, Disabled: c.Query("pagination") == "0"}

	if v := c.Query("page"); v != "" && !p.Disabled {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, invalidPage()
		}
		p.Page = n
	}
	// a bad limit falls back to the default, too large is clamped
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = min(n, MaxLimit)
		}
	}
	return p, nil
}

// Find counts q, loads the requested rows into dest and returns the envelope metadata.
// Preloads only apply to the row query, never to the count.
func Find(c *fiber.Ctx, q *gorm.DB, p Params, dest interface{}, preloads ...string) (Meta, error) {
	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return Meta{}, err
	}
	for _, name := range preloads {
		q = q.Preload(name)
	}

	if p.Disabled {
		if err := q.Find(dest).Error; err != nil {
			return Meta{}, err
		}
		return Meta{Count: count}, nil
	}

	if p.Page > 1 && int64(p.Offset()) >= count {
		return Meta{}, invalidPage()
	}
	if err := q.Offset(p.Offset()).Limit(p.Limit).Find(dest).Error; err != nil {
		return Meta{}, err
	}

	u, err := url.Parse(c.BaseURL() + c.OriginalURL())
	if err != nil {
		return Meta{Count: count}, nil
	}
	return NewMeta(count, p, u), nil
}

// NewMeta builds next/previous links from the current request url.
func NewMeta(count int64, p Params, u *url.URL) Meta {
	m := Meta{Count: count}
	if p.Disabled {
		return m
	}
	if int64(p.Page*p.Limit) < count {
		m.Next = pageLink(u, p.Page+1)
	}
	if p.Page > 1 {
		m.Previous = pageLink(u, p.Page-1)
	}
	return m
}

func pageLink(u *url.URL, page int) *string {
	link := *u
	q := link.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	link.RawQuery = q.Encode()
	s := link.String()
	return &s
}
