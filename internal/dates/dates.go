package dates

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// serialEpochOffset is the number of days between the spreadsheet
// serial-date epoch (1899-12-30) and the Unix epoch.
const serialEpochOffset = 25569

const isoDate = "2006-01-02"

// textLayouts are the accepted spellings of a full date in a cell.
var textLayouts = []string{
	isoDate,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
}

// monthDayLayouts are the accepted spellings of a bare month-day cell,
// before the year is appended.
var monthDayLayouts = []string{
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
}

// Row ties a 1-indexed sheet row to the calendar date it holds.
type Row struct {
	Row  int
	Date string // ISO, no time component
}

// Index interprets a two-column slice of raw date cells (ledger columns
// A and B) starting at firstDataRow. Column A is tried first as a
// spreadsheet serial or a text date; then column B the same way; then
// column B as a bare month-day resolved against now. Rows where no
// interpretation succeeds are silently skipped.
func Index(rows [][]interface{}, firstDataRow int, now time.Time) []Row {
	var out []Row
	for i, row := range rows {
		date := parseCell(cellAt(row, 0))
		if date == "" {
			b := cellAt(row, 1)
			date = parseCell(b)
			if date == "" {
				date = ParseMonthDay(cellString(b), now)
			}
		}
		if date == "" {
			continue
		}
		out = append(out, Row{Row: firstDataRow + i, Date: date})
	}
	return out
}

// Recent returns up to limit dates from the index, most recent last-row
// first, deduplicated by exact date without disturbing order.
func Recent(index []Row, limit int) []string {
	if limit < 0 {
		limit = 0
	}
	start := len(index) - limit
	if start < 0 {
		start = 0
	}

	seen := make(map[string]bool)
	var out []string
	for i := len(index) - 1; i >= start; i-- {
		d := index[i].Date
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// Normalize validates a caller-supplied date string and returns it in
// ISO form.
func Normalize(value string) (string, error) {
	if date := ParseText(strings.TrimSpace(value)); date != "" {
		return date, nil
	}
	return "", fmt.Errorf("invalid date %q, use YYYY-MM-DD", value)
}

// parseCell interprets a raw cell as either a numeric spreadsheet
// serial or a text date. Empty string means no interpretation worked.
func parseCell(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case float64:
		return FromSerial(v)
	case int:
		return FromSerial(float64(v))
	case int64:
		return FromSerial(float64(v))
	default:
		text := cellString(cell)
		if serial, err := strconv.ParseFloat(text, 64); err == nil {
			return FromSerial(serial)
		}
		return ParseText(text)
	}
}

// FromSerial converts a spreadsheet date serial (days since 1899-12-30)
// to an ISO date.
func FromSerial(serial float64) string {
	unixDays := int64(math.Floor(serial - serialEpochOffset))
	return time.Unix(unixDays*86400, 0).UTC().Format(isoDate)
}

// ParseText parses a textual date cell against the accepted layouts.
// Empty string means no layout matched.
func ParseText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format(isoDate)
		}
	}
	return ""
}

// ParseMonthDay interprets a bare "Month Day" cell by appending the
// current year; if that lands in the future relative to now, the
// previous year is used instead, which keeps logs straight across a
// year boundary.
func ParseMonthDay(text string, now time.Time) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	year := now.Year()
	for _, layout := range monthDayLayouts {
		t, err := time.Parse(layout, fmt.Sprintf("%s %d", text, year))
		if err != nil {
			continue
		}
		if t.After(now) {
			t = t.AddDate(-1, 0, 0)
		}
		return t.Format(isoDate)
	}
	return ""
}

func cellAt(row []interface{}, i int) interface{} {
	if i >= len(row) {
		return nil
	}
	return row[i]
}

func cellString(cell interface{}) string {
	if cell == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", cell))
}
