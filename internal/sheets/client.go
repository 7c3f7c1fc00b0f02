package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Render selects how cell values are reported by the remote store.
type Render string

const (
	// RenderFormatted reports values as they appear in the UI.
	RenderFormatted Render = "FORMATTED_VALUE"
	// RenderUnformatted reports underlying values without display
	// formatting applied.
	RenderUnformatted Render = "UNFORMATTED_VALUE"
	// RenderFormula reports the formula text of formula-backed cells.
	RenderFormula Render = "FORMULA"
)

// RangeValues pairs an A1 range with the values destined for it, for
// batched writes.
type RangeValues struct {
	Range  string
	Values [][]interface{}
}

// Client is a thin wrapper over the Sheets v4 values API. It performs
// no retries; transient failures propagate to the caller.
type Client struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewClient(ctx context.Context, credentialsFile, spreadsheetID string) (*Client, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

// Get reads a range with the given render option.
func (c *Client) Get(ctx context.Context, range_ string, render Render) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, range_).
		ValueRenderOption(string(render)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", range_, err)
	}

	return resp.Values, nil
}

// Update writes values to a range. USER_ENTERED lets the store
// interpret the input as it would manual entry, so formulas evaluate
// and plain text and numbers are stored as typed.
func (c *Client) Update(ctx context.Context, range_ string, values [][]interface{}) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, range_, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update range %s: %w", range_, err)
	}

	return nil
}

// BatchUpdate writes several ranges in one call.
func (c *Client) BatchUpdate(ctx context.Context, data []RangeValues) error {
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
	}
	for _, d := range data {
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:  d.Range,
			Values: d.Values,
		})
	}

	_, err := c.service.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to batch update %d ranges: %w", len(data), err)
	}

	return nil
}
