package entry

import (
	"context"
	"fmt"
	"time"

	"training_log/internal/dates"
	"training_log/internal/header"
	"training_log/internal/ledger"
	"training_log/internal/poll"
	"training_log/internal/sheets"

	"github.com/rs/zerolog/log"
)

// ActivityOptions is the fixed, ordered set of loggable activities.
// "-" is the placeholder for a rest day and counts as an empty cell.
var ActivityOptions = []string{"-", "Bike", "Hike", "IndoorLow", "IndoorHigh", "Run", "Swim", "Tennis", "Walk"}

const (
	// DefaultMaxSuggestionRowChecks caps the backward search for an
	// alternative empty row. Completeness is traded for bounded latency:
	// every checked row is a remote read.
	DefaultMaxSuggestionRowChecks = 45

	// DefaultScoreSettleAttempts and DefaultScoreSettleDelay bound the
	// poll loop that waits for a formula-backed score to recompute.
	DefaultScoreSettleAttempts = 20
	DefaultScoreSettleDelay    = 500 * time.Millisecond

	// DefaultRecentDateLimit is how many recent dates a listing returns
	// when the caller does not say.
	DefaultRecentDateLimit = 60

	// upsertDateScanRows is how many recent date rows an upsert scans
	// when resolving the target row.
	upsertDateScanRows = 500

	// minDateScanSpan is the smallest row span a date scan reads, so
	// short limits still see a useful window of the ledger.
	minDateScanSpan = 120
)

// Service orchestrates ledger access: it resolves players and dates to
// cells, guards writes, and settles derived scores. All remote I/O
// goes through the ledger client.
type Service struct {
	ledger *ledger.Client
	dryRun bool

	maxSuggestionRowChecks int
	settle                 poll.Config
	now                    func() time.Time
}

// Option adjusts a Service at construction.
type Option func(*Service)

// WithDryRun makes upserts skip the write and return a synthetic
// result. All validation still runs.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) { s.dryRun = dryRun }
}

// WithSuggestionRowChecks overrides the backward conflict-search cap.
func WithSuggestionRowChecks(n int) Option {
	return func(s *Service) { s.maxSuggestionRowChecks = n }
}

// WithScoreSettle overrides the score poll budget.
func WithScoreSettle(attempts int, delay time.Duration) Option {
	return func(s *Service) { s.settle = poll.Config{Attempts: attempts, Delay: delay} }
}

// WithClock overrides the clock used for month-day date resolution,
// for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(l *ledger.Client, opts ...Option) *Service {
	s := &Service{
		ledger:                 l,
		maxSuggestionRowChecks: DefaultMaxSuggestionRowChecks,
		settle:                 poll.Config{Attempts: DefaultScoreSettleAttempts, Delay: DefaultScoreSettleDelay},
		now:                    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlayerFields is the column addressing a caller needs to render one
// player's entry form.
type PlayerFields struct {
	DurationColumn string `json:"durationColumn"`
	ActivityColumn string `json:"activityColumn"`
}

// PlayerInfo is one player as exposed at the API boundary.
type PlayerInfo struct {
	Player string       `json:"player"`
	Fields PlayerFields `json:"fields"`
}

// Players is the player-metadata listing.
type Players struct {
	ActivityOptions []string     `json:"activityOptions"`
	FirstDataRow    int          `json:"firstDataRow"`
	Players         []PlayerInfo `json:"players"`
}

// GetPlayers returns player metadata from the ledger header.
func (s *Service) GetPlayers(ctx context.Context) (Players, error) {
	info, err := s.ledger.HeaderInfo(ctx, false)
	if err != nil {
		return Players{}, err
	}

	result := Players{
		ActivityOptions: ActivityOptions,
		FirstDataRow:    info.FirstDataRow,
		Players:         make([]PlayerInfo, 0, len(info.Players)),
	}
	for _, p := range info.Players {
		result.Players = append(result.Players, PlayerInfo{
			Player: p.Name,
			Fields: PlayerFields{
				DurationColumn: header.IndexToLetter(p.Columns.Duration),
				ActivityColumn: header.IndexToLetter(p.Columns.Activity),
			},
		})
	}
	return result, nil
}

// GetRecentDates returns up to limit recently used dates, most recent
// first, deduplicated.
func (s *Service) GetRecentDates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRecentDateLimit
	}

	index, err := s.dateRows(ctx, limit*2)
	if err != nil {
		return nil, err
	}

	recent := dates.Recent(index, limit)
	log.Debug().
		Int("limit", limit).
		Int("indexed_rows", len(index)).
		Int("returned", len(recent)).
		Msg("Listed recent dates")
	return recent, nil
}

// dateRows reads the two date columns below the header and builds the
// row index. limit sizes the scan window; the window never shrinks
// below minDateScanSpan rows.
func (s *Service) dateRows(ctx context.Context, limit int) ([]dates.Row, error) {
	info, err := s.ledger.HeaderInfo(ctx, false)
	if err != nil {
		return nil, err
	}

	start := info.FirstDataRow
	span := limit * 2
	if span < minDateScanSpan {
		span = minDateScanSpan
	}

	cells := fmt.Sprintf("A%d:B%d", start, start+span)
	rows, err := s.ledger.FetchRange(ctx, cells, sheets.RenderUnformatted)
	if err != nil {
		return nil, fmt.Errorf("failed to read date rows: %w", err)
	}

	return dates.Index(rows, start, s.now()), nil
}
