package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"training_log/internal/header"
	"training_log/internal/sheets"

	"github.com/rs/zerolog/log"
)

// headerScanRange bounds the grid snapshot used for header discovery;
// the header always sits in the first few rows.
const headerScanRange = "A1:ZZ10"

// DefaultHeaderCacheTTL is how long a parsed header is served from
// cache before it is re-fetched. Short enough to absorb repeated calls
// within one user interaction, nothing more.
const DefaultHeaderCacheTTL = 30 * time.Second

// RangeAPI is the remote tabular store as the ledger needs it. It is
// satisfied by *sheets.Client and by fakes in tests.
type RangeAPI interface {
	Get(ctx context.Context, range_ string, render sheets.Render) ([][]interface{}, error)
	Update(ctx context.Context, range_ string, values [][]interface{}) error
	BatchUpdate(ctx context.Context, data []sheets.RangeValues) error
}

// Client is the single point of contact with the remote ledger. It
// qualifies cell references with the sheet name and owns the one
// process-wide header cache. It performs no retries; retry policy
// belongs to its callers.
type Client struct {
	api       RangeAPI
	sheetName string
	cacheTTL  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	cached    *header.Info
	fetchedAt time.Time
}

// Option adjusts a Client at construction.
type Option func(*Client)

// WithCacheTTL overrides the header cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithClock overrides the cache clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(api RangeAPI, sheetName string, opts ...Option) *Client {
	c := &Client{
		api:       api,
		sheetName: sheetName,
		cacheTTL:  DefaultHeaderCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SheetName returns the ledger tab this client addresses.
func (c *Client) SheetName() string { return c.sheetName }

// Range qualifies a cell reference with the sheet name.
func (c *Client) Range(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, cells)
}

// CellRange addresses a single cell by column letter and 1-indexed row.
func (c *Client) CellRange(column string, row int) string {
	return fmt.Sprintf("%s!%s%d", c.sheetName, column, row)
}

// FetchRange reads a cell range with the given render option.
func (c *Client) FetchRange(ctx context.Context, cells string, render sheets.Render) ([][]interface{}, error) {
	return c.api.Get(ctx, c.Range(cells), render)
}

// FetchCell reads a single cell, tolerating an entirely blank cell
// (which the store reports as an absent row) by returning nil.
func (c *Client) FetchCell(ctx context.Context, column string, row int, render sheets.Render) (interface{}, error) {
	values, err := c.api.Get(ctx, c.CellRange(column, row), render)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, nil
	}
	return values[0][0], nil
}

// WriteRange writes values to a cell range.
func (c *Client) WriteRange(ctx context.Context, cells string, values [][]interface{}) error {
	return c.api.Update(ctx, c.Range(cells), values)
}

// BatchWrite writes several cell ranges in one call. Ranges are given
// unqualified and bound to this client's sheet.
func (c *Client) BatchWrite(ctx context.Context, data []sheets.RangeValues) error {
	qualified := make([]sheets.RangeValues, len(data))
	for i, d := range data {
		qualified[i] = sheets.RangeValues{Range: c.Range(d.Range), Values: d.Values}
	}
	return c.api.BatchUpdate(ctx, qualified)
}

// HeaderInfo returns the parsed ledger header, served from cache while
// fresh unless forceRefresh is set. The cache holds exactly one value
// plus its fetch time and is invalidated by age only.
func (c *Client) HeaderInfo(ctx context.Context, forceRefresh bool) (header.Info, error) {
	c.mu.Lock()
	if !forceRefresh && c.cached != nil && c.now().Sub(c.fetchedAt) < c.cacheTTL {
		info := *c.cached
		c.mu.Unlock()
		return info, nil
	}
	c.mu.Unlock()

	grid, err := c.FetchRange(ctx, headerScanRange, sheets.RenderFormatted)
	if err != nil {
		return header.Info{}, fmt.Errorf("failed to fetch header rows: %w", err)
	}

	info, err := header.Parse(grid)
	if err != nil {
		return header.Info{}, err
	}

	c.mu.Lock()
	c.cached = &info
	c.fetchedAt = c.now()
	c.mu.Unlock()

	log.Debug().
		Int("players", len(info.Players)).
		Int("first_data_row", info.FirstDataRow).
		Msg("Refreshed header info")

	return info, nil
}
