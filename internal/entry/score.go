package entry

import (
	"context"
	"fmt"
	"strings"

	"training_log/internal/poll"
	"training_log/internal/sheets"

	"github.com/rs/zerolog/log"
)

// scoreState reads a score cell both ways: its computed value and its
// underlying formula text. A formula-backed cell must be inspected
// both ways to tell "not yet recomputed" from "formula gone".
func (s *Service) scoreState(ctx context.Context, scoreColumn string, row int) (interface{}, string, error) {
	raw, err := s.ledger.FetchCell(ctx, scoreColumn, row, sheets.RenderUnformatted)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read score value: %w", err)
	}

	formula, err := s.ledger.FetchCell(ctx, scoreColumn, row, sheets.RenderFormula)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read score formula: %w", err)
	}

	return raw, cellText(formula), nil
}

// settleScore polls the score cell until its computed value is usable
// or the budget runs out. The remote recompute pipeline is eventually
// consistent: right after a write the cell may read blank or zero, and
// the write can even transiently strip the formula, in which case the
// snapshot taken before the write is put back.
//
// Exhaustion is not a failure. This runs after the entry write has
// succeeded, so the worst outcome is the last raw value seen, possibly
// blank or zero.
func (s *Service) settleScore(ctx context.Context, scoreColumn string, row int, existingFormula string) interface{} {
	hadFormula := strings.HasPrefix(existingFormula, "=")

	result, err := poll.Until(ctx, s.settle, func(ctx context.Context, attempt int, final bool) (interface{}, bool, error) {
		raw, formulaText, err := s.scoreState(ctx, scoreColumn, row)
		if err != nil {
			return nil, false, err
		}

		if hadFormula && !strings.HasPrefix(formulaText, "=") {
			log.Warn().
				Str("column", scoreColumn).
				Int("row", row).
				Int("attempt", attempt).
				Msg("Write stripped the score formula, restoring it")
			if err := s.ledger.WriteRange(ctx,
				fmt.Sprintf("%s%d:%s%d", scoreColumn, row, scoreColumn, row),
				[][]interface{}{{existingFormula}},
			); err != nil {
				return raw, false, fmt.Errorf("failed to restore score formula: %w", err)
			}
			return raw, false, nil
		}

		if cellText(raw) == "" {
			return raw, false, nil
		}

		// A zero usually means the formula has not re-evaluated yet; keep
		// waiting unless the budget is spent.
		if isZeroValue(raw) && !final {
			return raw, false, nil
		}
		return raw, true, nil
	})

	if err != nil {
		log.Warn().
			Err(err).
			Str("column", scoreColumn).
			Int("row", row).
			Int("attempts", result.Attempts).
			Msg("Score settle aborted, returning last value seen")
	} else if result.Exhausted {
		log.Debug().
			Str("column", scoreColumn).
			Int("row", row).
			Msg("Score never settled within budget, returning last value seen")
	}

	return result.Value
}
