package entry

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"training_log/internal/dates"
	"training_log/internal/header"
	"training_log/internal/sheets"

	"github.com/rs/zerolog/log"
)

// UpsertRequest is one player's entry for one date.
type UpsertRequest struct {
	Player   string `json:"player"`
	Date     string `json:"date"`
	Duration string `json:"duration"`
	Activity string `json:"activity"`
}

// Result is the durable outcome of a successful upsert. Score is nil
// when the player has no score column or the service runs dry.
type Result struct {
	Player         string      `json:"player"`
	Date           string      `json:"date"`
	Row            int         `json:"row"`
	Duration       string      `json:"duration"`
	Activity       string      `json:"activity"`
	DurationColumn string      `json:"durationColumn"`
	ActivityColumn string      `json:"activityColumn"`
	Score          interface{} `json:"score"`
	DryRun         bool        `json:"dryRun,omitempty"`
}

// playerColumns is a player's column map resolved to sheet letters.
// score is empty when the player has no score column.
type playerColumns struct {
	duration string
	activity string
	score    string

	durationIdx int
	activityIdx int
	scoreIdx    int // -1 when absent
}

func resolveColumns(c header.Columns) playerColumns {
	cols := playerColumns{
		duration:    header.IndexToLetter(c.Duration),
		activity:    header.IndexToLetter(c.Activity),
		durationIdx: c.Duration,
		activityIdx: c.Activity,
		scoreIdx:    c.Score,
	}
	if c.HasScore() {
		cols.score = header.IndexToLetter(c.Score)
	}
	return cols
}

// rowState is a point-in-time snapshot of one player's cells at one
// row, read immediately before acting on that row and never cached.
type rowState struct {
	existingDuration string
	existingActivity string
	existingScore    string
}

func (r rowState) hasDuration() bool { return r.existingDuration != "" }

// An activity of "-" is the rest-day placeholder and counts as empty.
func (r rowState) hasActivity() bool {
	return r.existingActivity != "" && r.existingActivity != "-"
}

func (r rowState) hasScore() bool { return r.existingScore != "" }

func (r rowState) occupied() bool { return r.hasDuration() || r.hasActivity() }

// Upsert writes one player's duration and activity into the row for
// the requested date, then waits for the derived score to settle.
//
// Validation, row resolution, the live column-mapping check, and the
// conflict check are hard gates: failing any of them aborts the call
// with no write issued. Once the write has gone out, nothing can fail
// the call; a score that refuses to settle degrades to the last raw
// value seen.
//
// The conflict check is a point-in-time read, not a lock: a concurrent
// writer racing between the check and the write can still collide.
func (s *Service) Upsert(ctx context.Context, req UpsertRequest) (Result, error) {
	// Resolve and validate the request.
	info, err := s.ledger.HeaderInfo(ctx, false)
	if err != nil {
		return Result{}, err
	}

	player, ok := info.FindPlayer(req.Player)
	if !ok {
		return Result{}, &UnknownPlayerError{Player: req.Player}
	}

	if !validActivity(req.Activity) {
		return Result{}, ErrInvalidActivity
	}

	normalizedDate, err := dates.Normalize(req.Date)
	if err != nil {
		return Result{}, ErrInvalidDate
	}

	duration := strings.TrimSpace(req.Duration)
	if duration == "" {
		return Result{}, ErrMissingDuration
	}

	// Locate the target row. The service never appends rows; the date
	// must already exist in the ledger.
	index, err := s.dateRows(ctx, upsertDateScanRows)
	if err != nil {
		return Result{}, err
	}

	targetRow := 0
	for _, r := range index {
		if r.Date == normalizedDate {
			targetRow = r.Row
			break
		}
	}
	if targetRow == 0 {
		return Result{}, ErrDateRowNotFound
	}

	cols := resolveColumns(player.Columns)

	log.Debug().
		Str("player", req.Player).
		Str("date", normalizedDate).
		Int("row", targetRow).
		Str("duration_column", cols.duration).
		Str("activity_column", cols.activity).
		Msg("Resolved upsert target")

	// The cached header may be stale relative to a restructured sheet;
	// re-read the subheader live before trusting the column mapping.
	if err := s.assertColumnMappingSafe(ctx, cols, info.SubheaderRow); err != nil {
		return Result{}, err
	}

	state, err := s.readRowState(ctx, cols, targetRow)
	if err != nil {
		return Result{}, err
	}

	if state.occupied() {
		suggestion, reachedLimit, err := s.findSuggestedDate(ctx, index, normalizedDate, cols)
		if err != nil {
			return Result{}, err
		}
		log.Info().
			Str("player", req.Player).
			Str("date", normalizedDate).
			Int("row", targetRow).
			Bool("has_suggestion", suggestion != nil).
			Msg("Target row already populated, nothing written")
		return Result{}, &DateOccupiedError{
			ExistingDuration:  state.existingDuration,
			ExistingActivity:  state.existingActivity,
			Suggestion:        suggestion,
			ReachedCheckLimit: reachedLimit,
		}
	}

	// Snapshot the score formula so it can be restored if the write
	// transiently strips it.
	existingFormula := ""
	if cols.score != "" {
		_, existingFormula, err = s.scoreState(ctx, cols.score, targetRow)
		if err != nil {
			return Result{}, err
		}
	}

	result := Result{
		Player:         req.Player,
		Date:           normalizedDate,
		Row:            targetRow,
		Duration:       duration,
		Activity:       req.Activity,
		DurationColumn: cols.duration,
		ActivityColumn: cols.activity,
	}

	if s.dryRun {
		result.DryRun = true
		log.Info().
			Str("player", req.Player).
			Str("date", normalizedDate).
			Int("row", targetRow).
			Msg("Dry run, skipping write")
		return result, nil
	}

	err = s.ledger.BatchWrite(ctx, []sheets.RangeValues{
		{Range: fmt.Sprintf("%s%d", cols.duration, targetRow), Values: [][]interface{}{{duration}}},
		{Range: fmt.Sprintf("%s%d", cols.activity, targetRow), Values: [][]interface{}{{req.Activity}}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to write entry: %w", err)
	}

	if cols.score != "" {
		result.Score = s.settleScore(ctx, cols.score, targetRow, existingFormula)
	}

	log.Info().
		Str("player", req.Player).
		Str("date", normalizedDate).
		Int("row", targetRow).
		Str("duration", duration).
		Str("activity", req.Activity).
		Msg("Entry written")

	return result, nil
}

func validActivity(activity string) bool {
	for _, opt := range ActivityOptions {
		if activity == opt {
			return true
		}
	}
	return false
}

// assertColumnMappingSafe re-reads the subheader row live and verifies
// the mapped columns still carry their expected labels.
func (s *Service) assertColumnMappingSafe(ctx context.Context, cols playerColumns, subheaderRow int) error {
	endIdx := cols.activityIdx
	if cols.durationIdx > endIdx {
		endIdx = cols.durationIdx
	}
	if cols.scoreIdx > endIdx {
		endIdx = cols.scoreIdx
	}

	cells := fmt.Sprintf("A%d:%s%d", subheaderRow, header.IndexToLetter(endIdx), subheaderRow)
	values, err := s.ledger.FetchRange(ctx, cells, sheets.RenderFormatted)
	if err != nil {
		return fmt.Errorf("failed to read subheader row: %w", err)
	}

	var row []interface{}
	if len(values) > 0 {
		row = values[0]
	}

	durationLabel := header.Normalize(stringAt(row, cols.durationIdx))
	activityLabel := header.Normalize(stringAt(row, cols.activityIdx))
	scoreLabel := "score"
	if cols.scoreIdx >= 0 {
		scoreLabel = header.Normalize(stringAt(row, cols.scoreIdx))
	}

	if durationLabel != "duration (hh:mm)" || activityLabel != "activity" || scoreLabel != "score" {
		log.Warn().
			Str("duration_label", durationLabel).
			Str("activity_label", activityLabel).
			Str("score_label", scoreLabel).
			Msg("Live subheader no longer matches cached column mapping")
		return ErrColumnMappingUnsafe
	}
	return nil
}

// readRowState reads the player's cells at one row in a single ranged
// get spanning the duration column through the score column (or the
// activity column when no score column exists).
func (s *Service) readRowState(ctx context.Context, cols playerColumns, row int) (rowState, error) {
	end := cols.activity
	if cols.score != "" {
		end = cols.score
	}

	cells := fmt.Sprintf("%s%d:%s%d", cols.duration, row, end, row)
	values, err := s.ledger.FetchRange(ctx, cells, sheets.RenderUnformatted)
	if err != nil {
		return rowState{}, fmt.Errorf("failed to read row state: %w", err)
	}

	var line []interface{}
	if len(values) > 0 {
		line = values[0]
	}

	state := rowState{
		existingDuration: strings.TrimSpace(stringAt(line, 0)),
		existingActivity: strings.TrimSpace(stringAt(line, cols.activityIdx-cols.durationIdx)),
	}
	if cols.scoreIdx >= 0 {
		state.existingScore = strings.TrimSpace(stringAt(line, cols.scoreIdx-cols.durationIdx))
	}
	return state, nil
}

// findSuggestedDate searches backward through dates strictly earlier
// than the target, most recent first, for the first row whose score is
// still blank. The search is capped: it is a best-effort convenience,
// not a guarantee that no older empty row exists beyond the cap.
func (s *Service) findSuggestedDate(ctx context.Context, index []dates.Row, beforeDate string, cols playerColumns) (*Suggestion, bool, error) {
	var older []dates.Row
	for _, r := range index {
		if r.Date < beforeDate {
			older = append(older, r)
		}
	}
	sort.Slice(older, func(a, b int) bool { return older[a].Date > older[b].Date })

	reachedLimit := len(older) > s.maxSuggestionRowChecks
	candidates := older
	if reachedLimit {
		candidates = older[:s.maxSuggestionRowChecks]
	}

	for _, r := range candidates {
		state, err := s.readRowState(ctx, cols, r.Row)
		if err != nil {
			return nil, false, err
		}
		if !state.hasScore() {
			log.Debug().
				Str("date", r.Date).
				Int("row", r.Row).
				Msg("Found alternative empty row")
			return &Suggestion{Date: r.Date, Row: r.Row}, false, nil
		}
	}

	return nil, reachedLimit, nil
}

func stringAt(row []interface{}, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return cellText(row[i])
}

func cellText(cell interface{}) string {
	if cell == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", cell))
}

func isZeroValue(raw interface{}) bool {
	switch v := raw.(type) {
	case float64:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	default:
		n, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprintf("%v", raw)), 64)
		return err == nil && n == 0
	}
}
